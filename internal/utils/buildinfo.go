package utils

import (
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion     = "unknown"
	developmentVersion = "(devel)"
)

// Version may be overridden at link time with -ldflags "-X .../internal/utils.Version=v1.2.3".
var Version = ""

// GetApplicationVersion determines the application version.
// It prefers the link-time Version, then Go build info, then git describe run from the
// repository enclosing the working directory.
func GetApplicationVersion() string {
	if Version != "" {
		return Version
	}
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != developmentVersion {
		return buildInfo.Main.Version
	}

	repositoryDirectory, found := findRepositoryDirectory(".")
	if !found {
		return unknownVersion
	}
	for _, describeArguments := range [][]string{
		{"describe", "--tags", "--exact-match"},
		{"describe", "--tags", "--long", "--dirty"},
	} {
		if described := runGitDescribe(repositoryDirectory, describeArguments); described != "" {
			return described
		}
	}
	return unknownVersion
}

// #nosec G204
func runGitDescribe(directory string, arguments []string) string {
	gitCommand := exec.Command("git", arguments...)
	gitCommand.Dir = directory
	commandOutput, commandError := gitCommand.Output()
	if commandError != nil {
		return ""
	}
	return strings.TrimSpace(string(commandOutput))
}

// findRepositoryDirectory searches upward from startDirectory for a directory holding .git.
func findRepositoryDirectory(startDirectory string) (string, bool) {
	absoluteStartDirectory, errorAbsolute := filepath.Abs(startDirectory)
	if errorAbsolute != nil {
		return "", false
	}
	for currentDirectory := absoluteStartDirectory; ; {
		if IsDirectory(filepath.Join(currentDirectory, GitDirectoryName)) {
			return currentDirectory, true
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", false
		}
		currentDirectory = parentDirectory
	}
}
