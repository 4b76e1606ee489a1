// Package workspace models the set of project roots a run operates in.
//
// Roots are either supplied explicitly (the equivalent of editor workspace folders)
// or detected from marker files such as package.json. Every upward file search is
// bounded by the root enclosing its starting directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

// ErrNoProjectRoot indicates that a path lies outside every known project root.
var ErrNoProjectRoot = errors.New("no project root found")

const (
	errorNoProjectRootFormat = "%w for %s"
	errorAbsolutePathFormat  = "resolve absolute path for %s: %w"
	errorStatFormat          = "stat %s: %w"
)

// DefaultMarkers lists the files and directories that identify a project root
// when no explicit roots are configured.
var DefaultMarkers = []string{utils.PackageManifestFileName, utils.GitDirectoryName}

// Workspace resolves project roots for paths.
type Workspace struct {
	roots   []string
	markers []string
}

// New constructs a Workspace from explicit roots. With no roots, project roots are
// detected from DefaultMarkers.
func New(roots []string) *Workspace {
	cleanedRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		absoluteRoot, absErr := filepath.Abs(root)
		if absErr != nil {
			continue
		}
		cleanedRoots = append(cleanedRoots, filepath.Clean(absoluteRoot))
	}
	cleanedRoots = utils.DeduplicateStrings(cleanedRoots)
	// deepest roots first so nested workspaces win
	sort.SliceStable(cleanedRoots, func(left, right int) bool {
		return len(cleanedRoots[left]) > len(cleanedRoots[right])
	})
	return &Workspace{roots: cleanedRoots, markers: DefaultMarkers}
}

// Root returns the project root enclosing path.
func (workspace *Workspace) Root(path string) (string, error) {
	absolutePath, absErr := filepath.Abs(path)
	if absErr != nil {
		return "", fmt.Errorf(errorAbsolutePathFormat, path, absErr)
	}
	if len(workspace.roots) > 0 {
		for _, root := range workspace.roots {
			if utils.IsWithin(root, absolutePath) {
				return root, nil
			}
		}
		return "", fmt.Errorf(errorNoProjectRootFormat, ErrNoProjectRoot, absolutePath)
	}
	for currentDirectory := startingDirectory(absolutePath); ; {
		for _, marker := range workspace.markers {
			if _, statErr := os.Stat(filepath.Join(currentDirectory, marker)); statErr == nil {
				return currentDirectory, nil
			}
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", fmt.Errorf(errorNoProjectRootFormat, ErrNoProjectRoot, absolutePath)
		}
		currentDirectory = parentDirectory
	}
}

// FindFile searches for fileName in startPath (or its directory when startPath is a
// file) and then in each parent, never leaving the project root enclosing startPath.
// It reports false when the file is absent or startPath has no project root.
func (workspace *Workspace) FindFile(startPath string, fileName string) (string, bool, error) {
	root, rootErr := workspace.Root(startPath)
	if rootErr != nil {
		if errors.Is(rootErr, ErrNoProjectRoot) {
			return "", false, nil
		}
		return "", false, rootErr
	}
	absoluteStart, absErr := filepath.Abs(startPath)
	if absErr != nil {
		return "", false, fmt.Errorf(errorAbsolutePathFormat, startPath, absErr)
	}
	for currentDirectory := startingDirectory(absoluteStart); utils.IsWithin(root, currentDirectory); {
		candidatePath := filepath.Join(currentDirectory, fileName)
		info, statErr := os.Stat(candidatePath)
		switch {
		case statErr == nil && !info.IsDir():
			return candidatePath, true, nil
		case statErr != nil && !os.IsNotExist(statErr):
			return "", false, fmt.Errorf(errorStatFormat, candidatePath, statErr)
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}
	return "", false, nil
}

// DependencyStores returns the existing node_modules directories that may hold
// packages for code under path: those between path and its project root (nearest
// first), followed by the stores of the remaining explicit roots.
func (workspace *Workspace) DependencyStores(path string) []string {
	var stores []string
	absolutePath, absErr := filepath.Abs(path)
	if absErr != nil {
		return nil
	}
	root, rootErr := workspace.Root(absolutePath)
	if rootErr == nil {
		for currentDirectory := startingDirectory(absolutePath); utils.IsWithin(root, currentDirectory); {
			stores = appendStore(stores, currentDirectory)
			parentDirectory := filepath.Dir(currentDirectory)
			if parentDirectory == currentDirectory {
				break
			}
			currentDirectory = parentDirectory
		}
	}
	for _, explicitRoot := range workspace.roots {
		stores = appendStore(stores, explicitRoot)
	}
	return utils.DeduplicateStrings(stores)
}

func appendStore(stores []string, directory string) []string {
	storePath := filepath.Join(directory, utils.NodeModulesDirectoryName)
	if utils.IsDirectory(storePath) {
		return append(stores, storePath)
	}
	return stores
}

// startingDirectory returns path when it is a directory (or does not exist) and its
// parent when it names a file.
func startingDirectory(path string) string {
	if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
		return filepath.Dir(path)
	}
	return path
}
