package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

// InitTarget identifies which configuration file should be initialized.
type InitTarget string

const (
	// InitTargetPipeline writes a .transformer.json pipeline into the working directory.
	InitTargetPipeline InitTarget = "pipeline"
	// InitTargetGlobal writes the application configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	defaultPipelineTemplate = `{
  "rules": {
    "plugins": ["find-chinese"],
    "presets": []
  }
}
`

	defaultApplicationTemplate = `# Explicit build-tool and type configuration paths, relative to the project root.
webpack_config: ""
ts_config: ""
# Project roots; detected from package.json or .git when empty.
roots: []
# File name for artifacts whose plugin does not choose one.
output_filename: out.md
`
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// InitializeConfiguration writes the default configuration to the requested target.
func InitializeConfiguration(options InitOptions) (string, error) {
	target := options.Target
	if target == "" {
		target = InitTargetPipeline
	}
	var destinationPath string
	var template string
	switch target {
	case InitTargetPipeline:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		destinationPath = filepath.Join(workingDirectory, utils.TransformerConfigFileName)
		template = defaultPipelineTemplate
	case InitTargetGlobal:
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory for configuration: %w", err)
		}
		configurationDirectory := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
		if err := os.MkdirAll(configurationDirectory, 0o755); err != nil {
			return "", fmt.Errorf("create configuration directory %s: %w", configurationDirectory, err)
		}
		destinationPath = filepath.Join(configurationDirectory, utils.GlobalConfigFileName)
		template = defaultApplicationTemplate
	default:
		return "", fmt.Errorf("unsupported init target %q", target)
	}

	if _, err := os.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}

	if err := os.WriteFile(destinationPath, []byte(template), 0o644); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}

	return destinationPath, nil
}
