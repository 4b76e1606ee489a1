// Package graph extracts the static import graph of JavaScript and TypeScript sources.
package graph

import (
	"context"
	"errors"
	"fmt"

	graphlib "github.com/dominikbraun/graph"
)

// Extractor computes the dependency graph reachable from an entry path.
type Extractor interface {
	Extract(ctx context.Context, entryPath string, options ResolutionOptions) (*DependencyGraph, error)
}

// AuxiliaryConfigPaths locates project configuration files that influence resolution.
type AuxiliaryConfigPaths struct {
	BuildToolConfig string
	TypeConfig      string
}

// ResolutionOptions controls which files an extraction visits.
type ResolutionOptions struct {
	IncludeExternalPackages bool
	FileExtensions          []string
	ExcludePatterns         []string
	BaseDirectory           string
	AuxiliaryConfigPaths    AuxiliaryConfigPaths
}

// DefaultExcludePatterns skips declaration files, dependency stores and build outputs.
func DefaultExcludePatterns() []string {
	return []string{
		"**/*.d.ts",
		"**/node_modules/**",
		"**/dist/**",
		"**/build/**",
		"**/coverage/**",
	}
}

// ExtractionError reports a failure of the underlying graph analysis.
type ExtractionError struct {
	EntryPath string
	Err       error
}

func (extractionError *ExtractionError) Error() string {
	return fmt.Sprintf("extract dependency graph for %s: %v", extractionError.EntryPath, extractionError.Err)
}

func (extractionError *ExtractionError) Unwrap() error {
	return extractionError.Err
}

// DependencyGraph maps files, relative to the base directory in forward-slash form,
// to the files they import directly.
type DependencyGraph struct {
	graph        graphlib.Graph[string, string]
	files        []string
	dependencies map[string][]string
}

func newDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		graph:        graphlib.New(graphlib.StringHash, graphlib.Directed()),
		dependencies: map[string][]string{},
	}
}

func (dependencyGraph *DependencyGraph) addFile(file string) error {
	addErr := dependencyGraph.graph.AddVertex(file)
	if errors.Is(addErr, graphlib.ErrVertexAlreadyExists) {
		return nil
	}
	if addErr != nil {
		return addErr
	}
	dependencyGraph.files = append(dependencyGraph.files, file)
	dependencyGraph.dependencies[file] = []string{}
	return nil
}

func (dependencyGraph *DependencyGraph) addDependency(file string, dependency string) error {
	if err := dependencyGraph.addFile(file); err != nil {
		return err
	}
	if err := dependencyGraph.addFile(dependency); err != nil {
		return err
	}
	edgeErr := dependencyGraph.graph.AddEdge(file, dependency)
	if errors.Is(edgeErr, graphlib.ErrEdgeAlreadyExists) {
		return nil
	}
	if edgeErr != nil {
		return edgeErr
	}
	dependencyGraph.dependencies[file] = append(dependencyGraph.dependencies[file], dependency)
	return nil
}

// Obj returns a copy of the file-to-dependencies mapping. Dependencies keep the order
// in which they first appear in the importing file.
func (dependencyGraph *DependencyGraph) Obj() map[string][]string {
	result := make(map[string][]string, len(dependencyGraph.dependencies))
	for file, dependencies := range dependencyGraph.dependencies {
		result[file] = append([]string{}, dependencies...)
	}
	return result
}

// Files returns every file in the graph in discovery order.
func (dependencyGraph *DependencyGraph) Files() []string {
	return append([]string(nil), dependencyGraph.files...)
}

// Dependencies returns the direct dependencies of file.
func (dependencyGraph *DependencyGraph) Dependencies(file string) []string {
	return append([]string(nil), dependencyGraph.dependencies[file]...)
}

// Reachable returns file and everything it transitively imports, breadth first.
func (dependencyGraph *DependencyGraph) Reachable(file string) ([]string, error) {
	var reachable []string
	walkErr := graphlib.BFS(dependencyGraph.graph, file, func(visited string) bool {
		reachable = append(reachable, visited)
		return false
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return reachable, nil
}

// Size returns the number of files and import edges.
func (dependencyGraph *DependencyGraph) Size() (int, int) {
	order, orderErr := dependencyGraph.graph.Order()
	if orderErr != nil {
		order = len(dependencyGraph.files)
	}
	size, sizeErr := dependencyGraph.graph.Size()
	if sizeErr != nil {
		size = 0
	}
	return order, size
}
