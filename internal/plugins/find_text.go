package plugins

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
	"github.com/NorthSeacoder/codetransformer/internal/syntax"
)

// FlushMode selects when an accumulating plugin emits its artifact.
type FlushMode string

const (
	// FlushRun emits a single artifact once the run finishes.
	FlushRun FlushMode = "run"
	// FlushFile attaches the artifact accumulated so far to every file.
	FlushFile FlushMode = "file"
)

const (
	stringNodeType   = "string"
	templateNodeType = "template_string"
	jsxTextNodeType  = "jsx_text"

	errorFlushModeFormat = "unknown flush mode %q"
)

// ParseFlushMode converts a configuration value into a FlushMode. Empty means FlushRun.
func ParseFlushMode(value string) (FlushMode, error) {
	switch FlushMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", FlushRun:
		return FlushRun, nil
	case FlushFile:
		return FlushFile, nil
	default:
		return "", fmt.Errorf(errorFlushModeFormat, value)
	}
}

// FindTextOptions configures a FindText plugin.
type FindTextOptions struct {
	Name      string
	Pattern   *regexp.Regexp
	Filename  string
	Directory string
	Flush     FlushMode
}

// FindText collects the string, template and JSX text values matching a pattern
// across every file of a run. Files it visits are never rewritten.
type FindText struct {
	options     FindTextOptions
	accumulator *Accumulator
}

var (
	_ engine.Plugin   = (*FindText)(nil)
	_ engine.Finisher = (*FindText)(nil)
)

// NewFindText constructs a FindText plugin.
func NewFindText(options FindTextOptions) *FindText {
	if options.Flush == "" {
		options.Flush = FlushRun
	}
	return &FindText{options: options, accumulator: NewAccumulator()}
}

// Name returns the configured plugin name.
func (plugin *FindText) Name() string {
	return plugin.options.Name
}

// Apply records the matching literal values of file.
func (plugin *FindText) Apply(_ context.Context, file *engine.File) error {
	file.Walk(func(node *sitter.Node) bool {
		switch node.Type() {
		case stringNodeType:
			plugin.collect(syntax.StringValue(node, file.Source))
		case templateNodeType:
			for _, fragment := range syntax.TemplateFragments(node, file.Source) {
				plugin.collect(fragment)
			}
		case jsxTextNodeType:
			plugin.collect(strings.TrimSpace(file.Text(node)))
		}
		return true
	})
	file.SetNotTransform()
	if plugin.options.Flush == FlushFile {
		file.SetOutput(plugin.output())
	}
	return nil
}

// Finish returns the accumulated artifact in FlushRun mode.
func (plugin *FindText) Finish(context.Context) (*engine.Output, error) {
	if plugin.options.Flush != FlushRun {
		return nil, nil
	}
	output := plugin.output()
	return &output, nil
}

func (plugin *FindText) collect(value string) {
	if value == "" || plugin.options.Pattern == nil || !plugin.options.Pattern.MatchString(value) {
		return
	}
	plugin.accumulator.Add(value)
}

func (plugin *FindText) output() engine.Output {
	return engine.Output{
		Content:   plugin.accumulator.Content(),
		Filename:  plugin.options.Filename,
		Directory: plugin.options.Directory,
	}
}
