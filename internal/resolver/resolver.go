// Package resolver turns an entry path into the set of source files reachable through
// its static imports, falling back to a plain directory walk when analysis fails.
package resolver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/NorthSeacoder/codetransformer/internal/graph"
	"github.com/NorthSeacoder/codetransformer/internal/syntax"
	"github.com/NorthSeacoder/codetransformer/internal/utils"
	"github.com/NorthSeacoder/codetransformer/internal/workspace"
)

const (
	errorAbsolutePathFormat = "resolve absolute path for %s: %w"
	errorWalkFormat         = "walk %s: %w"
	errorDetectConfigFormat = "detect %s: %w"

	logMessageFallback      = "dependency analysis failed, collecting files by directory walk"
	logMessageResolved      = "resolved files from dependency graph"
	logMessageBaseDirectory = "selected base directory"
	logFieldEntry           = "entry"
	logFieldBaseDirectory   = "baseDirectory"
	logFieldFiles           = "files"
	logFieldBuildToolConfig = "buildToolConfig"
	logFieldTypeConfig      = "typeConfig"
)

// ExplicitConfigs overrides build-tool and type-config detection. Relative paths are
// taken relative to the project root.
type ExplicitConfigs struct {
	BuildToolConfig string
	TypeConfig      string
}

// Resolution describes how a file set was obtained.
type Resolution struct {
	Files          []string
	BaseDirectory  string
	Graph          *graph.DependencyGraph
	Fallback       bool
	FallbackReason error
}

// Resolver selects the source files reachable from an entry path.
type Resolver struct {
	workspace *workspace.Workspace
	extractor graph.Extractor
	explicit  ExplicitConfigs
	logger    *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExplicitConfigs supplies user-configured build-tool and type-config paths.
func WithExplicitConfigs(explicit ExplicitConfigs) Option {
	return func(resolver *Resolver) {
		resolver.explicit = explicit
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(resolver *Resolver) {
		resolver.logger = utils.LoggerOrNop(logger)
	}
}

// New constructs a Resolver.
func New(projectWorkspace *workspace.Workspace, extractor graph.Extractor, options ...Option) *Resolver {
	resolver := &Resolver{workspace: projectWorkspace, extractor: extractor, logger: zap.NewNop()}
	for _, option := range options {
		option(resolver)
	}
	return resolver
}

// Resolve returns the absolute, duplicate-free paths of the source files reachable
// from entryPath.
func (resolver *Resolver) Resolve(ctx context.Context, entryPath string) ([]string, error) {
	resolution, err := resolver.ResolveDetailed(ctx, entryPath)
	if err != nil {
		return nil, err
	}
	return resolution.Files, nil
}

// ResolveDetailed behaves like Resolve and also reports the base directory, the
// dependency graph and whether the directory-walk fallback was used.
func (resolver *Resolver) ResolveDetailed(ctx context.Context, entryPath string) (Resolution, error) {
	resolution, analysisErr := resolver.fromGraph(ctx, entryPath)
	if analysisErr == nil {
		return resolution, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Resolution{}, ctxErr
	}
	resolver.logger.Info(logMessageFallback, zap.String(logFieldEntry, entryPath), zap.Error(analysisErr))
	files, walkErr := WalkSourceFiles(entryPath)
	if walkErr != nil {
		return Resolution{}, walkErr
	}
	return Resolution{Files: files, Fallback: true, FallbackReason: analysisErr}, nil
}

func (resolver *Resolver) fromGraph(ctx context.Context, entryPath string) (Resolution, error) {
	absoluteEntry, absErr := filepath.Abs(entryPath)
	if absErr != nil {
		return Resolution{}, fmt.Errorf(errorAbsolutePathFormat, entryPath, absErr)
	}
	projectRoot, rootErr := resolver.workspace.Root(absoluteEntry)
	if rootErr != nil {
		return Resolution{}, rootErr
	}
	auxiliaryPaths, configErr := resolver.auxiliaryConfigPaths(projectRoot, absoluteEntry)
	if configErr != nil {
		return Resolution{}, configErr
	}
	baseDirectory := selectBaseDirectory(projectRoot, auxiliaryPaths)
	resolver.logger.Debug(logMessageBaseDirectory,
		zap.String(logFieldBaseDirectory, baseDirectory),
		zap.String(logFieldBuildToolConfig, auxiliaryPaths.BuildToolConfig),
		zap.String(logFieldTypeConfig, auxiliaryPaths.TypeConfig))

	dependencyGraph, extractErr := resolver.extractor.Extract(ctx, absoluteEntry, graph.ResolutionOptions{
		IncludeExternalPackages: false,
		FileExtensions:          syntax.SourceExtensions,
		ExcludePatterns:         graph.DefaultExcludePatterns(),
		BaseDirectory:           baseDirectory,
		AuxiliaryConfigPaths:    auxiliaryPaths,
	})
	if extractErr != nil {
		return Resolution{}, extractErr
	}

	files := collectGraphFiles(baseDirectory, dependencyGraph)
	resolver.logger.Debug(logMessageResolved, zap.String(logFieldEntry, absoluteEntry), zap.Int(logFieldFiles, len(files)))
	return Resolution{Files: files, BaseDirectory: baseDirectory, Graph: dependencyGraph}, nil
}

// auxiliaryConfigPaths returns the explicit config paths, or the nearest
// webpack.config.js and tsconfig.json between the entry and the project root.
func (resolver *Resolver) auxiliaryConfigPaths(projectRoot string, absoluteEntry string) (graph.AuxiliaryConfigPaths, error) {
	buildToolConfig, buildErr := resolver.configPath(projectRoot, absoluteEntry, resolver.explicit.BuildToolConfig, utils.WebpackConfigFileName)
	if buildErr != nil {
		return graph.AuxiliaryConfigPaths{}, buildErr
	}
	typeConfig, typeErr := resolver.configPath(projectRoot, absoluteEntry, resolver.explicit.TypeConfig, utils.TypeScriptConfigFileName)
	if typeErr != nil {
		return graph.AuxiliaryConfigPaths{}, typeErr
	}
	return graph.AuxiliaryConfigPaths{BuildToolConfig: buildToolConfig, TypeConfig: typeConfig}, nil
}

func (resolver *Resolver) configPath(projectRoot string, absoluteEntry string, explicitPath string, fileName string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return filepath.Clean(explicitPath), nil
		}
		return filepath.Join(projectRoot, explicitPath), nil
	}
	detected, found, findErr := resolver.workspace.FindFile(absoluteEntry, fileName)
	if findErr != nil {
		return "", fmt.Errorf(errorDetectConfigFormat, fileName, findErr)
	}
	if !found {
		return "", nil
	}
	return detected, nil
}

// selectBaseDirectory prefers the build-tool config directory, then the type-config
// directory, then the project root.
func selectBaseDirectory(projectRoot string, auxiliaryPaths graph.AuxiliaryConfigPaths) string {
	switch {
	case auxiliaryPaths.BuildToolConfig != "":
		return filepath.Dir(auxiliaryPaths.BuildToolConfig)
	case auxiliaryPaths.TypeConfig != "":
		return filepath.Dir(auxiliaryPaths.TypeConfig)
	default:
		return projectRoot
	}
}

// collectGraphFiles joins every graph key and dependency onto baseDirectory in
// first-seen order, keeping recognised source files only.
func collectGraphFiles(baseDirectory string, dependencyGraph *graph.DependencyGraph) []string {
	var files []string
	seen := map[string]struct{}{}
	add := func(relativePath string) {
		if !syntax.IsSourceFile(relativePath) {
			return
		}
		absolutePath := utils.FromSlashJoin(baseDirectory, relativePath)
		if _, duplicate := seen[absolutePath]; duplicate {
			return
		}
		seen[absolutePath] = struct{}{}
		files = append(files, absolutePath)
	}
	for _, file := range dependencyGraph.Files() {
		add(file)
		for _, dependency := range dependencyGraph.Dependencies(file) {
			add(dependency)
		}
	}
	return files
}

// WalkSourceFiles collects every source file under entryPath in lexical order,
// skipping node_modules directories. A file entry yields itself when it is a source file.
func WalkSourceFiles(entryPath string) ([]string, error) {
	absoluteEntry, absErr := filepath.Abs(entryPath)
	if absErr != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, entryPath, absErr)
	}
	var files []string
	walkErr := filepath.WalkDir(absoluteEntry, func(currentPath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if currentPath != absoluteEntry && entry.Name() == utils.NodeModulesDirectoryName {
				return filepath.SkipDir
			}
			return nil
		}
		if syntax.IsSourceFile(currentPath) {
			files = append(files, currentPath)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf(errorWalkFormat, absoluteEntry, walkErr)
	}
	return files, nil
}
