package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
	"github.com/NorthSeacoder/codetransformer/internal/utils"
	"github.com/NorthSeacoder/codetransformer/internal/workspace"
)

const (
	configurationType = "json"

	errorInstantiateFormat = "create plugin %s: %w"

	logMessageNoConfiguration = "no pipeline configuration found"
	logMessageLoaded          = "pipeline configuration loaded"
	logFieldStartDirectory    = "startDirectory"
	logFieldPath              = "path"
	logFieldPlugins           = "plugins"
	logFieldPresets           = "presets"
)

// Config is a fully resolved pipeline.
type Config struct {
	Plugins    []ResolvedPlugin
	Presets    []string
	ConfigPath string
}

// Empty reports whether the pipeline has neither plugins nor presets.
func (config Config) Empty() bool {
	return len(config.Plugins) == 0 && len(config.Presets) == 0
}

// Instantiate creates one instance of every plugin, in declared order.
func (config Config) Instantiate() ([]engine.Plugin, error) {
	instances := make([]engine.Plugin, 0, len(config.Plugins))
	for _, resolved := range config.Plugins {
		instance, factoryErr := resolved.Factory()
		if factoryErr != nil {
			return instances, fmt.Errorf(errorInstantiateFormat, resolved.Ref.Identifier(), factoryErr)
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

type configurationFile struct {
	Rules struct {
		Plugins []string `mapstructure:"plugins"`
		Presets []string `mapstructure:"presets"`
	} `mapstructure:"rules"`
}

// Loader finds and resolves the pipeline configuration for a directory.
type Loader struct {
	workspace    *workspace.Workspace
	moduleLoader ModuleLoader
	logger       *zap.Logger
}

// NewLoader constructs a Loader.
func NewLoader(projectWorkspace *workspace.Workspace, moduleLoader ModuleLoader, logger *zap.Logger) *Loader {
	return &Loader{workspace: projectWorkspace, moduleLoader: moduleLoader, logger: utils.LoggerOrNop(logger)}
}

// Load searches upward from startDirectory, within its project root, for
// .transformer.json. A missing file yields an empty pipeline. Every plugin is
// resolved before Load returns.
func (loader *Loader) Load(ctx context.Context, startDirectory string) (Config, error) {
	configPath, found, findErr := loader.workspace.FindFile(startDirectory, utils.TransformerConfigFileName)
	if findErr != nil {
		return Config{}, findErr
	}
	if !found {
		loader.logger.Debug(logMessageNoConfiguration, zap.String(logFieldStartDirectory, startDirectory))
		return Config{}, nil
	}

	parsed, parseErr := readConfigurationFile(configPath)
	if parseErr != nil {
		return Config{}, parseErr
	}

	configDirectory := filepath.Dir(configPath)
	resolution := ResolutionContext{
		ConfigDirectory:  configDirectory,
		DependencyStores: loader.workspace.DependencyStores(configDirectory),
	}
	config := Config{ConfigPath: configPath, Presets: append([]string(nil), parsed.Rules.Presets...)}
	for _, identifier := range parsed.Rules.Plugins {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Config{}, ctxErr
		}
		resolved, resolveErr := loader.resolve(ctx, ParseReference(identifier, configDirectory), resolution)
		if resolveErr != nil {
			return Config{}, resolveErr
		}
		config.Plugins = append(config.Plugins, resolved)
	}
	loader.logger.Debug(logMessageLoaded,
		zap.String(logFieldPath, configPath),
		zap.Int(logFieldPlugins, len(config.Plugins)),
		zap.Strings(logFieldPresets, config.Presets))
	return config, nil
}

func (loader *Loader) resolve(ctx context.Context, ref Reference, resolution ResolutionContext) (ResolvedPlugin, error) {
	switch typed := ref.(type) {
	case LocalModuleRef:
		factory, loadErr := loader.moduleLoader.LoadLocal(ctx, typed, resolution)
		if loadErr != nil {
			return ResolvedPlugin{}, &PluginLoadError{Path: typed.Path, Err: loadErr}
		}
		return ResolvedPlugin{Ref: typed, Factory: factory}, nil
	case PackageRef:
		factory, loadErr := loader.moduleLoader.LoadPackage(ctx, typed, resolution)
		if loadErr != nil {
			return ResolvedPlugin{}, &PluginNotInstalledError{Name: typed.Name, Err: loadErr}
		}
		return ResolvedPlugin{Ref: typed, Factory: factory}, nil
	default:
		return ResolvedPlugin{}, fmt.Errorf("unsupported plugin reference %T", ref)
	}
}

// readConfigurationFile decodes path strictly: list entries must be strings and
// unknown keys are rejected.
func readConfigurationFile(path string) (configurationFile, error) {
	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType(configurationType)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return configurationFile{}, &ConfigParseError{Path: path, Err: readErr}
	}
	var parsed configurationFile
	strict := func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.WeaklyTypedInput = false
		decoderConfig.ErrorUnused = true
	}
	if decodeErr := reader.Unmarshal(&parsed, strict); decodeErr != nil {
		return configurationFile{}, &ConfigParseError{Path: path, Err: decodeErr}
	}
	return parsed, nil
}
