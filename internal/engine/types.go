// Package engine runs source-to-source plugins over tree-sitter syntax trees.
package engine

import (
	"context"
	"errors"
	"fmt"
)

const (
	// MetadataNotTransform marks a file that must not be rewritten.
	MetadataNotTransform = "notTransform"
	// MetadataOutput carries the Output artifact produced for a file.
	MetadataOutput = "output"
)

// ErrUnknownPreset indicates a preset name without a registered plugin bundle.
var ErrUnknownPreset = errors.New("unknown preset")

// Output describes a side artifact. Empty Filename and Directory fall back to the
// run defaults.
type Output struct {
	Content   string `json:"content"`
	Filename  string `json:"filename,omitempty"`
	Directory string `json:"path,omitempty"`
}

// Metadata is the per-file bag plugins write to.
type Metadata map[string]any

// NotTransform reports whether the file must be left untouched.
func (metadata Metadata) NotTransform() bool {
	flag, ok := metadata[MetadataNotTransform].(bool)
	return ok && flag
}

// Output returns the artifact descriptor, if any.
func (metadata Metadata) Output() (Output, bool) {
	switch value := metadata[MetadataOutput].(type) {
	case Output:
		return value, true
	case *Output:
		if value == nil {
			return Output{}, false
		}
		return *value, true
	default:
		return Output{}, false
	}
}

// Outcome is the result of transforming one file. Code is nil when the engine
// produced no code.
type Outcome struct {
	Code     *string
	Metadata Metadata
}

// Options selects the plugins and presets applied to one file.
type Options struct {
	Filename string
	Plugins  []Plugin
	Presets  []string
}

// Transformer is the transform engine capability consumed by the runner.
type Transformer interface {
	Transform(ctx context.Context, source string, options Options) (Outcome, error)
	// Finish flushes every Finisher among the plugins and the presets' plugins.
	Finish(ctx context.Context, options Options) ([]Output, error)
	// Close releases plugin instances created for presets.
	Close() error
}

// Plugin visits one parsed file and records edits or metadata on it.
type Plugin interface {
	Name() string
	Apply(ctx context.Context, file *File) error
}

// Finisher is implemented by plugins that accumulate state across the files of a
// run and flush it once at the end.
type Finisher interface {
	Finish(ctx context.Context) (*Output, error)
}

// PluginFactory creates a fresh plugin instance for one run.
type PluginFactory func() (Plugin, error)

// TransformError reports an engine failure on a specific file.
type TransformError struct {
	Filename string
	Plugin   string
	Err      error
}

func (transformError *TransformError) Error() string {
	if transformError.Plugin == "" {
		return fmt.Sprintf("transform %s: %v", transformError.Filename, transformError.Err)
	}
	return fmt.Sprintf("transform %s with %s: %v", transformError.Filename, transformError.Plugin, transformError.Err)
}

func (transformError *TransformError) Unwrap() error {
	return transformError.Err
}
