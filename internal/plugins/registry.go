package plugins

import (
	"regexp"
	"sort"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
)

// Built-in plugin names.
const (
	FindChineseName   = "find-chinese"
	FindTextName      = "find-text"
	RemoveConsoleName = "remove-console"
	ReplaceTextName   = "replace-text"
)

// Built-in preset names.
const (
	CleanupPreset = "cleanup"
	I18nPreset    = "i18n"
)

const (
	chineseTextPattern   = `[\x{4e00}-\x{9fa5}]`
	chineseTextsFileName = "chinese-texts.txt"

	nonASCIITextPattern = `[^\x00-\x7F]`
	textsFileName       = "texts.txt"
)

var (
	chineseTextExpression  = regexp.MustCompile(chineseTextPattern)
	nonASCIITextExpression = regexp.MustCompile(nonASCIITextPattern)
)

// NewFindChinese returns a FindText plugin collecting literals that contain Chinese
// characters into chinese-texts.txt.
func NewFindChinese() *FindText {
	return NewFindText(FindTextOptions{
		Name:     FindChineseName,
		Pattern:  chineseTextExpression,
		Filename: chineseTextsFileName,
		Flush:    FlushRun,
	})
}

// NewFindNonASCII returns the default find-text plugin, which collects literals
// containing any non-ASCII character into texts.txt.
func NewFindNonASCII() *FindText {
	return NewFindText(FindTextOptions{
		Name:     FindTextName,
		Pattern:  nonASCIITextExpression,
		Filename: textsFileName,
		Flush:    FlushRun,
	})
}

var builtins = map[string]engine.PluginFactory{
	FindChineseName: func() (engine.Plugin, error) {
		return NewFindChinese(), nil
	},
	FindTextName: func() (engine.Plugin, error) {
		return NewFindNonASCII(), nil
	},
	RemoveConsoleName: func() (engine.Plugin, error) {
		return RemoveConsole{}, nil
	},
}

// Lookup returns the factory of the built-in plugin called name.
func Lookup(name string) (engine.PluginFactory, bool) {
	factory, ok := builtins[name]
	return factory, ok
}

// BuiltinNames lists the built-in plugin names in lexical order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets returns the plugin bundles addressable by preset name.
func Presets() map[string][]engine.PluginFactory {
	return map[string][]engine.PluginFactory{
		CleanupPreset: {builtins[RemoveConsoleName]},
		I18nPreset:    {builtins[FindChineseName]},
	}
}
