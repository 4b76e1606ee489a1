// Package utils contains general helper functions used across codetransformer.
package utils

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	pathSegmentSeparator = "/"
	parentDirectoryToken = ".."
)

// DeduplicateStrings removes duplicate values from a slice while preserving order.
// The first occurrence of each unique value is kept.
func DeduplicateStrings(values []string) []string {
	encounteredValues := make(map[string]struct{})
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, exists := encounteredValues[value]; !exists {
			encounteredValues[value] = struct{}{}
			result = append(result, value)
		}
	}
	return result
}

// ContainsString checks if a slice of strings contains a specific target string.
func ContainsString(stringSlice []string, targetString string) bool {
	for _, currentString := range stringSlice {
		if currentString == targetString {
			return true
		}
	}
	return false
}

// IsWithin reports whether candidatePath equals root or lies beneath it.
// Both paths are compared in cleaned absolute form, so "/a/bc" is not within "/a/b".
func IsWithin(root, candidatePath string) bool {
	relativePath, relErr := filepath.Rel(filepath.Clean(root), filepath.Clean(candidatePath))
	if relErr != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	return relativePath != parentDirectoryToken && !strings.HasPrefix(relativePath, parentDirectoryToken+string(filepath.Separator))
}

// ToSlashRelative returns candidatePath relative to root in forward-slash form.
func ToSlashRelative(root, candidatePath string) (string, error) {
	relativePath, relErr := filepath.Rel(root, candidatePath)
	if relErr != nil {
		return "", relErr
	}
	return filepath.ToSlash(relativePath), nil
}

// FromSlashJoin joins a forward-slash relative path onto an OS directory.
func FromSlashJoin(directory, slashPath string) string {
	return filepath.Join(directory, filepath.FromSlash(strings.TrimPrefix(slashPath, pathSegmentSeparator)))
}

// IsRegularFile reports whether path names an existing regular file.
func IsRegularFile(path string) bool {
	info, statErr := os.Stat(path)
	return statErr == nil && info.Mode().IsRegular()
}

// IsDirectory reports whether path names an existing directory.
func IsDirectory(path string) bool {
	info, statErr := os.Stat(path)
	return statErr == nil && info.IsDir()
}

// IsExecutableFile reports whether path names a regular file with an execute bit set.
func IsExecutableFile(path string) bool {
	info, statErr := os.Stat(path)
	return statErr == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
