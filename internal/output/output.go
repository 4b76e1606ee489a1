// Package output renders file listings and run reports for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/NorthSeacoder/codetransformer/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	separatorLine = "----------------------------------------"

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	repeatedNodeSuffix = " (see above)"
	reachSuffixFormat  = " (%s)"
	fallbackLineFormat = "Fallback: directory walk (%s)\n"
	baseDirectoryLabel = "Base directory: "
	configLabel        = "Pipeline: "
	dryRunLabel        = "Dry run: no file was transformed"
	cancelledLabel     = "Cancelled before all files were processed"
	rewrittenHeader    = "Rewritten:"
	artifactsHeader    = "Artifacts:"
	listItemPrefix     = "  "
)

// UnsupportedFormatError is returned for format names no renderer handles.
type UnsupportedFormatError struct {
	Format string
}

func (unsupported UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q", unsupported.Format)
}

// RenderFileListing writes listing to writer in the requested format.
func RenderFileListing(writer io.Writer, listing types.FileListing, format string) error {
	switch strings.ToLower(format) {
	case "", types.FormatRaw:
		writeListingRaw(writer, listing)
		return nil
	case types.FormatJSON:
		return writeJSON(writer, listing)
	case types.FormatTree:
		writeListingTree(writer, listing)
		return nil
	default:
		return UnsupportedFormatError{Format: format}
	}
}

// RenderRunReport writes report to writer in the requested format.
func RenderRunReport(writer io.Writer, report types.RunReport, format string) error {
	switch strings.ToLower(format) {
	case "", types.FormatRaw, types.FormatTree:
		writeReportRaw(writer, report)
		return nil
	case types.FormatJSON:
		return writeJSON(writer, report)
	default:
		return UnsupportedFormatError{Format: format}
	}
}

// FileList returns the newline-separated file paths of listing, the text copied to
// the clipboard.
func FileList(listing types.FileListing) string {
	return strings.Join(listing.Files, "\n")
}

// SummarizeRun aggregates counts from report.
func SummarizeRun(report types.RunReport) types.OutputSummary {
	return types.OutputSummary{
		TotalFiles:     len(report.Files),
		RewrittenFiles: len(report.Rewritten),
		Artifacts:      len(report.Artifacts),
	}
}

// FormatSummaryLine formats an OutputSummary into the raw summary line.
func FormatSummaryLine(summary types.OutputSummary) string {
	return fmt.Sprintf("Summary: %s, %d rewritten, %s",
		pluralize(summary.TotalFiles, "file", "files"),
		summary.RewrittenFiles,
		pluralize(summary.Artifacts, "artifact", "artifacts"))
}

func pluralize(count int, singular string, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

func writeJSON(writer io.Writer, value any) error {
	encoded, encodeErr := json.MarshalIndent(value, indentPrefix, indentSpacer)
	if encodeErr != nil {
		return fmt.Errorf("encode json: %w", encodeErr)
	}
	_, writeErr := fmt.Fprintln(writer, string(encoded))
	return writeErr
}

func writeListingHeader(writer io.Writer, listing types.FileListing) {
	if listing.BaseDirectory != "" {
		fmt.Fprintln(writer, baseDirectoryLabel+listing.BaseDirectory)
	}
	if listing.Fallback {
		fmt.Fprintf(writer, fallbackLineFormat, listing.FallbackReason)
	}
}

func writeListingRaw(writer io.Writer, listing types.FileListing) {
	writeListingHeader(writer, listing)
	fmt.Fprintln(writer, pluralize(len(listing.Files), "file", "files"))
	fmt.Fprintln(writer, separatorLine)
	for _, file := range listing.Files {
		fmt.Fprintln(writer, file)
	}
}

// writeListingTree prints the import graph from each file nothing imports. A file
// reached a second time is printed once more, marked, without its imports.
func writeListingTree(writer io.Writer, listing types.FileListing) {
	writeListingHeader(writer, listing)
	if len(listing.Graph) == 0 {
		for _, file := range listing.Files {
			fmt.Fprintln(writer, file)
		}
		return
	}
	order := listing.GraphOrder
	if len(order) == 0 {
		order = make([]string, 0, len(listing.Graph))
		for file := range listing.Graph {
			order = append(order, file)
		}
		sort.Strings(order)
	}
	expanded := map[string]struct{}{}
	for _, root := range GraphRoots(order, listing.Graph) {
		rootLabel := root
		if count, counted := listing.Reach[root]; counted {
			rootLabel += fmt.Sprintf(reachSuffixFormat, pluralize(count, "file", "files"))
		}
		writeGraphNode(writer, listing.Graph, root, rootLabel, "", true, true, expanded)
	}
}

// GraphRoots returns the files of order that no file in graph imports. A graph made
// only of cycles yields its first file.
func GraphRoots(order []string, graph map[string][]string) []string {
	imported := map[string]struct{}{}
	for _, dependencies := range graph {
		for _, dependency := range dependencies {
			imported[dependency] = struct{}{}
		}
	}
	var roots []string
	for _, file := range order {
		if _, isImported := imported[file]; !isImported {
			roots = append(roots, file)
		}
	}
	if len(roots) == 0 && len(order) > 0 {
		roots = append(roots, order[0])
	}
	return roots
}

func treeNodeLinePrefix(prefix string, isRoot bool, isLast bool) (string, string) {
	if isRoot {
		return "", ""
	}
	connector := treeBranchConnector
	childPrefix := prefix + treeBranchPadding
	if isLast {
		connector = treeLastConnector
		childPrefix = prefix + treeLastPadding
	}
	return prefix + connector, childPrefix
}

func writeGraphNode(writer io.Writer, graph map[string][]string, file string, label string, prefix string, isRoot bool, isLast bool, expanded map[string]struct{}) {
	linePrefix, childPrefix := treeNodeLinePrefix(prefix, isRoot, isLast)
	if _, seen := expanded[file]; seen {
		fmt.Fprintf(writer, "%s%s%s\n", linePrefix, label, repeatedNodeSuffix)
		return
	}
	expanded[file] = struct{}{}
	fmt.Fprintf(writer, "%s%s\n", linePrefix, label)
	dependencies := graph[file]
	for index, dependency := range dependencies {
		writeGraphNode(writer, graph, dependency, dependency, childPrefix, false, index == len(dependencies)-1, expanded)
	}
}

func writeReportRaw(writer io.Writer, report types.RunReport) {
	if report.ConfigPath != "" {
		fmt.Fprintln(writer, configLabel+report.ConfigPath)
	}
	if report.DryRun {
		fmt.Fprintln(writer, dryRunLabel)
		for _, file := range report.Files {
			fmt.Fprintln(writer, file)
		}
		return
	}
	fmt.Fprintln(writer, FormatSummaryLine(SummarizeRun(report)))
	writeSection(writer, rewrittenHeader, report.Rewritten)
	writeSection(writer, artifactsHeader, report.Artifacts)
	if report.Cancelled {
		fmt.Fprintln(writer, cancelledLabel)
	}
}

func writeSection(writer io.Writer, header string, entries []string) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintln(writer, header)
	for _, entry := range entries {
		fmt.Fprintln(writer, listItemPrefix+entry)
	}
}
