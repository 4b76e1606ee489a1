package plugins

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
)

// DefinitionExtensions are the file extensions read as declarative plugin definitions.
var DefinitionExtensions = []string{".json", ".yaml", ".yml", ".toml"}

var (
	errMissingPattern = errors.New("pattern is required")
	errUnknownKind    = errors.New("unknown plugin kind")
)

const (
	errorReadDefinitionFormat   = "read plugin definition %s: %w"
	errorDecodeDefinitionFormat = "decode plugin definition %s: %w"
	errorCompilePatternFormat   = "compile pattern %q: %w"
	errorKindFormat             = "%w %q (expected %s or %s)"
)

// Definition is a plugin described in a configuration file rather than code.
type Definition struct {
	Kind        string           `mapstructure:"kind"`
	Name        string           `mapstructure:"name"`
	Pattern     string           `mapstructure:"pattern"`
	Replacement string           `mapstructure:"replacement"`
	Flush       string           `mapstructure:"flush"`
	Output      OutputDefinition `mapstructure:"output"`
}

// OutputDefinition names the artifact of a find-text definition.
type OutputDefinition struct {
	Filename  string `mapstructure:"filename"`
	Directory string `mapstructure:"path"`
}

// IsDefinitionFile reports whether path has a declarative definition extension.
func IsDefinitionFile(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))
	for _, candidate := range DefinitionExtensions {
		if extension == candidate {
			return true
		}
	}
	return false
}

// LoadDefinition reads and validates the definition at path and returns a factory
// producing a fresh plugin per call.
func LoadDefinition(path string) (engine.PluginFactory, error) {
	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return nil, fmt.Errorf(errorReadDefinitionFormat, path, readErr)
	}
	var definition Definition
	if decodeErr := reader.Unmarshal(&definition); decodeErr != nil {
		return nil, fmt.Errorf(errorDecodeDefinitionFormat, path, decodeErr)
	}
	if definition.Name == "" {
		definition.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return definition.Factory()
}

// Factory validates the definition and returns a factory for its plugin.
func (definition Definition) Factory() (engine.PluginFactory, error) {
	if strings.TrimSpace(definition.Pattern) == "" {
		return nil, errMissingPattern
	}
	pattern, compileErr := regexp.Compile(definition.Pattern)
	if compileErr != nil {
		return nil, fmt.Errorf(errorCompilePatternFormat, definition.Pattern, compileErr)
	}
	switch strings.ToLower(definition.Kind) {
	case FindTextName:
		flush, flushErr := ParseFlushMode(definition.Flush)
		if flushErr != nil {
			return nil, flushErr
		}
		filename := definition.Output.Filename
		if filename == "" {
			filename = textsFileName
		}
		options := FindTextOptions{
			Name:      definition.Name,
			Pattern:   pattern,
			Filename:  filename,
			Directory: definition.Output.Directory,
			Flush:     flush,
		}
		return func() (engine.Plugin, error) {
			return NewFindText(options), nil
		}, nil
	case ReplaceTextName:
		return func() (engine.Plugin, error) {
			return NewReplaceText(definition.Name, pattern, definition.Replacement), nil
		}, nil
	default:
		return nil, fmt.Errorf(errorKindFormat, errUnknownKind, definition.Kind, FindTextName, ReplaceTextName)
	}
}
