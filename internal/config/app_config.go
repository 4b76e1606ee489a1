// Package config loads the application configuration and writes default
// configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

const (
	keyWebpackConfig  = "webpack_config"
	keyTSConfig       = "ts_config"
	keyRoots          = "roots"
	keyOutputFilename = "output_filename"

	rootsEnvironmentSeparator = string(os.PathListSeparator)
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds user settings that are not part of a project's
// pipeline configuration.
type ApplicationConfiguration struct {
	WebpackConfig  string   `mapstructure:"webpack_config"`
	TSConfig       string   `mapstructure:"ts_config"`
	Roots          []string `mapstructure:"roots"`
	OutputFilename string   `mapstructure:"output_filename"`
}

// LoadApplicationConfiguration loads configuration from the global file, the local
// file and CODETRANSFORMER_* environment variables, later sources winning.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)
	merged = merged.Merge(loadEnvironmentConfiguration())

	merged.Roots = utils.DeduplicateStrings(resolveRoots(workingDirectory, merged.Roots))
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath
		}
		return filepath.Join(workingDirectory, explicitPath)
	}
	return filepath.Join(workingDirectory, utils.ApplicationConfigFileName)
}

// loadConfigurationFromPath returns an empty configuration for a missing file
// unless the file was requested explicitly.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// loadEnvironmentConfiguration reads CODETRANSFORMER_WEBPACK_CONFIG,
// CODETRANSFORMER_TS_CONFIG, CODETRANSFORMER_ROOTS (path-list separated) and
// CODETRANSFORMER_OUTPUT_FILENAME.
func loadEnvironmentConfiguration() ApplicationConfiguration {
	reader := viper.New()
	reader.SetEnvPrefix(utils.EnvironmentPrefix)
	reader.AutomaticEnv()
	config := ApplicationConfiguration{
		WebpackConfig:  reader.GetString(keyWebpackConfig),
		TSConfig:       reader.GetString(keyTSConfig),
		OutputFilename: reader.GetString(keyOutputFilename),
	}
	if roots := reader.GetString(keyRoots); roots != "" {
		for _, root := range strings.Split(roots, rootsEnvironmentSeparator) {
			if trimmed := strings.TrimSpace(root); trimmed != "" {
				config.Roots = append(config.Roots, trimmed)
			}
		}
	}
	return config
}

func resolveRoots(workingDirectory string, roots []string) []string {
	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		if !filepath.IsAbs(root) {
			root = filepath.Join(workingDirectory, root)
		}
		resolved = append(resolved, filepath.Clean(root))
	}
	return resolved
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.WebpackConfig != "" {
		result.WebpackConfig = override.WebpackConfig
	}
	if override.TSConfig != "" {
		result.TSConfig = override.TSConfig
	}
	if len(override.Roots) > 0 {
		result.Roots = append([]string{}, override.Roots...)
	}
	if override.OutputFilename != "" {
		result.OutputFilename = override.OutputFilename
	}
	return result
}
