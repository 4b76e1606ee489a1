package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NorthSeacoder/codetransformer/internal/graph"
	"github.com/NorthSeacoder/codetransformer/internal/output"
	"github.com/NorthSeacoder/codetransformer/internal/types"
)

const (
	filesUse              = "files <path>"
	filesAlias            = "f"
	filesShortDescription = "list the files a transform would visit (" + filesAlias + ")"
	// filesLongDescription provides detailed help for the files command.
	filesLongDescription = `Resolve the JavaScript and TypeScript files reachable from <path> through static
imports. When dependency analysis fails the directory is walked instead, and the
output says so. Use --format to select raw, json, or tree output.`
	// filesUsageExample demonstrates files command usage.
	filesUsageExample = `  # Print the import tree of an entry file
  codetransformer files --format tree src/index.ts

  # Copy the resolved file list to the clipboard
  codetransformer f --clipboard src/pages`

	clipboardFlagName        = "clipboard"
	clipboardFlagDescription = "copy the resolved file list to the clipboard"

	clipboardCopiedMessage = "Copied %d file paths to the clipboard"
)

type filesOptions struct {
	format    string
	clipboard bool
}

func isSupportedListingFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatTree:
		return true
	default:
		return false
	}
}

// createFilesCommand returns the files subcommand.
func createFilesCommand(dependencies Dependencies, options *globalOptions) *cobra.Command {
	var outputFormat string
	var copyToClipboard bool

	filesCommand := &cobra.Command{
		Use:     filesUse,
		Aliases: []string{filesAlias},
		Short:   filesShortDescription,
		Long:    filesLongDescription,
		Example: filesUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			outputFormatLower := strings.ToLower(outputFormat)
			if !isSupportedListingFormat(outputFormatLower) {
				return fmt.Errorf(invalidFormatMessage, outputFormatLower)
			}
			return runFiles(command.Context(), dependencies, options, arguments[0], filesOptions{
				format:    outputFormatLower,
				clipboard: copyToClipboard,
			})
		},
	}

	filesCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatRaw, formatFlagDescription)
	registerToggle(filesCommand.Flags(), &copyToClipboard, clipboardFlagName, false, clipboardFlagDescription)
	return filesCommand
}

func runFiles(ctx context.Context, dependencies Dependencies, options *globalOptions, entryArgument string, files filesOptions) error {
	session, sessionErr := newSession(dependencies, options, entryArgument)
	if sessionErr != nil {
		return sessionErr
	}
	resolution, resolveErr := session.resolver.ResolveDetailed(ctx, session.entry.AbsolutePath)
	if resolveErr != nil {
		return resolveErr
	}

	listing := types.FileListing{
		Entry:         session.entry.AbsolutePath,
		BaseDirectory: resolution.BaseDirectory,
		Fallback:      resolution.Fallback,
		Files:         resolution.Files,
	}
	if resolution.FallbackReason != nil {
		listing.FallbackReason = resolution.FallbackReason.Error()
	}
	if resolution.Graph != nil {
		listing.Graph = resolution.Graph.Obj()
		listing.GraphOrder = resolution.Graph.Files()
		listing.Reach = reachCounts(resolution.Graph, output.GraphRoots(listing.GraphOrder, listing.Graph))
	}
	if renderErr := output.RenderFileListing(dependencies.Stdout, listing, files.format); renderErr != nil {
		return renderErr
	}

	if !files.clipboard {
		return nil
	}
	if copyErr := dependencies.Clipboard.Copy(output.FileList(listing)); copyErr != nil {
		return copyErr
	}
	notifier{writer: dependencies.Stderr}.Info(clipboardCopiedMessage, len(listing.Files))
	return nil
}

// reachCounts returns how many files each root reaches through its imports.
func reachCounts(dependencyGraph *graph.DependencyGraph, roots []string) map[string]int {
	counts := make(map[string]int, len(roots))
	for _, root := range roots {
		reachable, reachErr := dependencyGraph.Reachable(root)
		if reachErr != nil {
			continue
		}
		counts[root] = len(reachable)
	}
	return counts
}
