package pipeline

import (
	"fmt"
	"strings"

	"github.com/NorthSeacoder/codetransformer/internal/plugins"
)

const (
	installHintFormat       = "npm install %s --save-dev"
	notInstalledErrorFormat = "plugin %s is not installed (%v); install it with: %s, or use a built-in plugin: %s"
	builtinNamesSeparator   = ", "
)

// ConfigParseError reports a malformed pipeline configuration file.
type ConfigParseError struct {
	Path string
	Err  error
}

func (parseError *ConfigParseError) Error() string {
	return fmt.Sprintf("parse pipeline configuration %s: %v", parseError.Path, parseError.Err)
}

func (parseError *ConfigParseError) Unwrap() error {
	return parseError.Err
}

// PluginLoadError reports a local plugin that could not be loaded.
type PluginLoadError struct {
	Path string
	Err  error
}

func (loadError *PluginLoadError) Error() string {
	return fmt.Sprintf("load plugin %s: %v", loadError.Path, loadError.Err)
}

func (loadError *PluginLoadError) Unwrap() error {
	return loadError.Err
}

// PluginNotInstalledError reports a plugin package missing from every dependency store.
type PluginNotInstalledError struct {
	Name string
	Err  error
}

func (notInstalled *PluginNotInstalledError) Error() string {
	return fmt.Sprintf(notInstalledErrorFormat, notInstalled.Name, notInstalled.Err, notInstalled.InstallHint(),
		strings.Join(plugins.BuiltinNames(), builtinNamesSeparator))
}

func (notInstalled *PluginNotInstalledError) Unwrap() error {
	return notInstalled.Err
}

// InstallHint returns the command that installs the missing package.
func (notInstalled *PluginNotInstalledError) InstallHint() string {
	return fmt.Sprintf(installHintFormat, notInstalled.Name)
}
