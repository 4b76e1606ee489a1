package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
	"github.com/NorthSeacoder/codetransformer/internal/plugins"
	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

const (
	binDirectoryName    = ".bin"
	scriptInterpreter   = "node"
	errorManifestFormat = "read %s: %w"
)

var (
	errUnsupportedPluginFile = errors.New("plugin file is neither a definition, a script nor an executable")
	errPackageNotFound       = errors.New("package not found in any dependency store")
	errMissingInterpreter    = errors.New("node is required to run script plugins")
)

var scriptExtensions = []string{".js", ".mjs", ".cjs"}

type packageManifest struct {
	Name string          `json:"name"`
	Bin  json.RawMessage `json:"bin"`
}

// DefaultModuleLoader resolves local definition files, local executables and
// scripts, built-in plugins and packages installed in a dependency store.
type DefaultModuleLoader struct {
	logger     *zap.Logger
	lookupPath func(string) (string, error)
}

var _ ModuleLoader = (*DefaultModuleLoader)(nil)

// NewModuleLoader constructs a DefaultModuleLoader.
func NewModuleLoader(logger *zap.Logger) *DefaultModuleLoader {
	return &DefaultModuleLoader{logger: utils.LoggerOrNop(logger), lookupPath: exec.LookPath}
}

// LoadLocal loads the plugin file named by ref.
func (loader *DefaultModuleLoader) LoadLocal(_ context.Context, ref LocalModuleRef, _ ResolutionContext) (engine.PluginFactory, error) {
	info, statErr := os.Stat(ref.Path)
	if statErr != nil {
		return nil, statErr
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", errUnsupportedPluginFile, ref.Path)
	}
	if plugins.IsDefinitionFile(ref.Path) {
		return plugins.LoadDefinition(ref.Path)
	}
	return loader.executableFactory(pluginName(ref.Path), ref.Path)
}

// LoadPackage resolves a built-in plugin or an installed package binary.
func (loader *DefaultModuleLoader) LoadPackage(_ context.Context, ref PackageRef, resolution ResolutionContext) (engine.PluginFactory, error) {
	if factory, builtin := plugins.Lookup(ref.Name); builtin {
		return factory, nil
	}
	for _, store := range resolution.DependencyStores {
		if binPath := filepath.Join(store, binDirectoryName, path.Base(ref.Name)); utils.IsExecutableFile(binPath) {
			return loader.executableFactory(ref.Name, binPath)
		}
		manifestPath := filepath.Join(store, filepath.FromSlash(ref.Name), utils.PackageManifestFileName)
		if !utils.IsRegularFile(manifestPath) {
			continue
		}
		binPath, manifestErr := manifestBin(manifestPath, ref.Name)
		if manifestErr != nil {
			return nil, manifestErr
		}
		if binPath != "" {
			return loader.executableFactory(ref.Name, binPath)
		}
	}
	return nil, errPackageNotFound
}

// executableFactory runs script files through node and anything else directly.
func (loader *DefaultModuleLoader) executableFactory(name string, pluginPath string) (engine.PluginFactory, error) {
	if isScript(pluginPath) {
		interpreter, lookupErr := loader.lookupPath(scriptInterpreter)
		if lookupErr != nil {
			return nil, fmt.Errorf("%w: %v", errMissingInterpreter, lookupErr)
		}
		return plugins.NewProcessFactory(name, loader.logger, interpreter, pluginPath), nil
	}
	if !utils.IsExecutableFile(pluginPath) {
		return nil, fmt.Errorf("%w: %s", errUnsupportedPluginFile, pluginPath)
	}
	return plugins.NewProcessFactory(name, loader.logger, pluginPath), nil
}

// manifestBin returns the absolute executable declared by a package.json "bin"
// field, or "" when it declares none. A map-valued bin prefers the entry named
// after the package.
func manifestBin(manifestPath string, packageName string) (string, error) {
	content, readErr := os.ReadFile(manifestPath)
	if readErr != nil {
		return "", fmt.Errorf(errorManifestFormat, manifestPath, readErr)
	}
	var manifest packageManifest
	if decodeErr := json.Unmarshal(content, &manifest); decodeErr != nil {
		return "", fmt.Errorf(errorManifestFormat, manifestPath, decodeErr)
	}
	if len(manifest.Bin) == 0 {
		return "", nil
	}
	packageDirectory := filepath.Dir(manifestPath)
	var single string
	if json.Unmarshal(manifest.Bin, &single) == nil {
		if single == "" {
			return "", nil
		}
		return filepath.Join(packageDirectory, filepath.FromSlash(single)), nil
	}
	var named map[string]string
	if decodeErr := json.Unmarshal(manifest.Bin, &named); decodeErr != nil {
		return "", fmt.Errorf(errorManifestFormat, manifestPath, decodeErr)
	}
	if entry, ok := named[path.Base(packageName)]; ok {
		return filepath.Join(packageDirectory, filepath.FromSlash(entry)), nil
	}
	if len(named) == 1 {
		for _, entry := range named {
			return filepath.Join(packageDirectory, filepath.FromSlash(entry)), nil
		}
	}
	return "", nil
}

func isScript(pluginPath string) bool {
	extension := strings.ToLower(filepath.Ext(pluginPath))
	return utils.ContainsString(scriptExtensions, extension)
}

func pluginName(pluginPath string) string {
	return strings.TrimSuffix(filepath.Base(pluginPath), filepath.Ext(pluginPath))
}
