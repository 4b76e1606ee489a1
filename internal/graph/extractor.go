package graph

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NorthSeacoder/codetransformer/internal/syntax"
	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

var (
	errEntryOutsideBase     = errors.New("entry path is outside the base directory")
	errUnsupportedEntry     = errors.New("entry file has no recognised source extension")
	errMissingBaseDirectory = errors.New("base directory is required")
)

const (
	// directoryProbeName is joined onto a directory path to ask whether every file
	// inside it would be excluded.
	directoryProbeName = "__probe__"

	errorInvalidExcludeFormat = "invalid exclude pattern %q"
)

// ImportExtractor builds dependency graphs by parsing import statements with tree-sitter.
type ImportExtractor struct {
	logger      *zap.Logger
	concurrency int
}

// ExtractorOption configures an ImportExtractor.
type ExtractorOption func(*ImportExtractor)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) ExtractorOption {
	return func(extractor *ImportExtractor) {
		extractor.logger = utils.LoggerOrNop(logger)
	}
}

// WithConcurrency bounds the number of files parsed in parallel.
func WithConcurrency(limit int) ExtractorOption {
	return func(extractor *ImportExtractor) {
		if limit > 0 {
			extractor.concurrency = limit
		}
	}
}

// NewImportExtractor constructs an ImportExtractor.
func NewImportExtractor(options ...ExtractorOption) *ImportExtractor {
	extractor := &ImportExtractor{logger: zap.NewNop(), concurrency: runtime.GOMAXPROCS(0)}
	for _, option := range options {
		option(extractor)
	}
	return extractor
}

var _ Extractor = (*ImportExtractor)(nil)

// extraction carries the state of a single Extract call.
type extraction struct {
	options       ResolutionOptions
	baseDirectory string
	resolver      *moduleResolver
	graph         *DependencyGraph
}

type parsedFile struct {
	path         string
	dependencies []string
	err          error
}

// Extract walks the import graph breadth first from entryPath. A directory entry
// seeds the walk with every matching file beneath it.
func (extractor *ImportExtractor) Extract(ctx context.Context, entryPath string, options ResolutionOptions) (*DependencyGraph, error) {
	dependencyGraph, extractErr := extractor.extract(ctx, entryPath, options)
	if extractErr != nil {
		if errors.Is(extractErr, context.Canceled) || errors.Is(extractErr, context.DeadlineExceeded) {
			return nil, extractErr
		}
		return nil, &ExtractionError{EntryPath: entryPath, Err: extractErr}
	}
	return dependencyGraph, nil
}

func (extractor *ImportExtractor) extract(ctx context.Context, entryPath string, options ResolutionOptions) (*DependencyGraph, error) {
	if options.BaseDirectory == "" {
		return nil, errMissingBaseDirectory
	}
	baseDirectory, baseErr := filepath.Abs(options.BaseDirectory)
	if baseErr != nil {
		return nil, baseErr
	}
	absoluteEntry, entryErr := filepath.Abs(entryPath)
	if entryErr != nil {
		return nil, entryErr
	}
	if !utils.IsWithin(baseDirectory, absoluteEntry) {
		return nil, fmt.Errorf("%w: %s not under %s", errEntryOutsideBase, absoluteEntry, baseDirectory)
	}
	for _, pattern := range options.ExcludePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf(errorInvalidExcludeFormat, pattern)
		}
	}
	if len(options.FileExtensions) == 0 {
		options.FileExtensions = syntax.SourceExtensions
	}

	resolver, resolverErr := newModuleResolver(options.FileExtensions, options.AuxiliaryConfigPaths.TypeConfig)
	if resolverErr != nil {
		return nil, resolverErr
	}
	state := &extraction{
		options:       options,
		baseDirectory: baseDirectory,
		resolver:      resolver,
		graph:         newDependencyGraph(),
	}

	seeds, seedErr := state.seedFiles(absoluteEntry)
	if seedErr != nil {
		return nil, seedErr
	}
	extractor.logger.Debug("dependency extraction started",
		zap.String("entry", absoluteEntry),
		zap.String("baseDirectory", baseDirectory),
		zap.Int("seeds", len(seeds)))

	visited := map[string]struct{}{}
	for _, seed := range seeds {
		visited[seed] = struct{}{}
		if addErr := state.addFile(seed); addErr != nil {
			return nil, addErr
		}
	}

	frontier := seeds
	isSeedFrontier := true
	for len(frontier) > 0 {
		parsed, parseErr := extractor.parseFrontier(ctx, state, frontier)
		if parseErr != nil {
			return nil, parseErr
		}
		var next []string
		for _, result := range parsed {
			if result.err != nil {
				if isSeedFrontier {
					return nil, result.err
				}
				extractor.logger.Warn("dependency analysis skipped file", zap.String("file", result.path), zap.Error(result.err))
				continue
			}
			for _, dependency := range result.dependencies {
				if addErr := state.addDependency(result.path, dependency); addErr != nil {
					return nil, addErr
				}
				if _, seen := visited[dependency]; seen {
					continue
				}
				visited[dependency] = struct{}{}
				next = append(next, dependency)
			}
		}
		frontier = next
		isSeedFrontier = false
	}

	files, edges := state.graph.Size()
	extractor.logger.Debug("dependency extraction finished", zap.Int("files", files), zap.Int("imports", edges))
	return state.graph, nil
}

// parseFrontier parses every file of one breadth-first level concurrently. Results
// keep the frontier order so the graph is deterministic.
func (extractor *ImportExtractor) parseFrontier(ctx context.Context, state *extraction, frontier []string) ([]parsedFile, error) {
	results := make([]parsedFile, len(frontier))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(extractor.concurrency)
	for index, file := range frontier {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			dependencies, fileErr := state.fileDependencies(groupCtx, file)
			if errors.Is(fileErr, context.Canceled) {
				return fileErr
			}
			results[index] = parsedFile{path: file, dependencies: dependencies, err: fileErr}
			return nil
		})
	}
	if waitErr := group.Wait(); waitErr != nil {
		return nil, waitErr
	}
	return results, nil
}

// fileDependencies returns the in-scope files imported by file.
func (state *extraction) fileDependencies(ctx context.Context, file string) ([]string, error) {
	source, readErr := os.ReadFile(file)
	if readErr != nil {
		return nil, readErr
	}
	tree, parseErr := syntax.Parse(ctx, file, source)
	if parseErr != nil {
		return nil, parseErr
	}
	root := tree.RootNode()
	if syntaxErr := syntax.CheckSyntax(file, root); syntaxErr != nil {
		return nil, syntaxErr
	}
	var dependencies []string
	for _, specifier := range collectSpecifiers(root, source) {
		resolved := state.resolver.resolve(file, specifier)
		if resolved == "" || resolved == file || !state.inScope(resolved) {
			continue
		}
		dependencies = append(dependencies, resolved)
	}
	return dependencies, nil
}

// seedFiles returns the entry file itself, or every in-scope file beneath an entry
// directory in lexical order.
func (state *extraction) seedFiles(absoluteEntry string) ([]string, error) {
	info, statErr := os.Stat(absoluteEntry)
	if statErr != nil {
		return nil, statErr
	}
	if !info.IsDir() {
		if !syntax.HasExtension(absoluteEntry, state.options.FileExtensions) {
			return nil, fmt.Errorf("%w: %s", errUnsupportedEntry, absoluteEntry)
		}
		return []string{absoluteEntry}, nil
	}
	var seeds []string
	walkErr := filepath.WalkDir(absoluteEntry, func(currentPath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if currentPath != absoluteEntry && state.excludesDirectory(currentPath) {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.Type().IsRegular() && state.inScope(currentPath) {
			seeds = append(seeds, currentPath)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return seeds, nil
}

// inScope reports whether file lies under the base directory, carries an accepted
// extension and matches no exclude pattern.
func (state *extraction) inScope(file string) bool {
	if !utils.IsWithin(state.baseDirectory, file) || !syntax.HasExtension(file, state.options.FileExtensions) {
		return false
	}
	relativePath, relErr := utils.ToSlashRelative(state.baseDirectory, file)
	if relErr != nil {
		return false
	}
	return !state.excluded(relativePath)
}

func (state *extraction) excludesDirectory(directory string) bool {
	relativePath, relErr := utils.ToSlashRelative(state.baseDirectory, directory)
	if relErr != nil {
		return false
	}
	return state.excluded(path.Join(relativePath, directoryProbeName))
}

func (state *extraction) excluded(relativePath string) bool {
	for _, pattern := range state.options.ExcludePatterns {
		if doublestar.MatchUnvalidated(pattern, relativePath) {
			return true
		}
	}
	return false
}

func (state *extraction) addFile(file string) error {
	relativePath, relErr := utils.ToSlashRelative(state.baseDirectory, file)
	if relErr != nil {
		return relErr
	}
	return state.graph.addFile(relativePath)
}

func (state *extraction) addDependency(file string, dependency string) error {
	relativeFile, fileErr := utils.ToSlashRelative(state.baseDirectory, file)
	if fileErr != nil {
		return fileErr
	}
	relativeDependency, dependencyErr := utils.ToSlashRelative(state.baseDirectory, dependency)
	if dependencyErr != nil {
		return dependencyErr
	}
	return state.graph.addDependency(relativeFile, relativeDependency)
}
