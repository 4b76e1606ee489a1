package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/NorthSeacoder/codetransformer/internal/syntax"
	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

const (
	errorPresetFormat       = "%w: %s"
	errorPresetPluginFormat = "create plugin for preset %s: %w"

	logMessagePluginApplied = "plugin applied"
	logFieldFile            = "file"
	logFieldPlugin          = "plugin"
	logFieldEdited          = "edited"
)

// Engine applies plugins one after another, reparsing the source between plugins so
// each one sees the edits of its predecessors. Plugin instances created for presets
// live as long as the Engine, which makes one Engine the unit of a run.
type Engine struct {
	presetFactories map[string][]PluginFactory
	presetPlugins   map[string][]Plugin
	logger          *zap.Logger
}

var _ Transformer = (*Engine)(nil)

// New constructs an Engine that expands preset names using presets.
func New(presets map[string][]PluginFactory, logger *zap.Logger) *Engine {
	return &Engine{
		presetFactories: presets,
		presetPlugins:   map[string][]Plugin{},
		logger:          utils.LoggerOrNop(logger),
	}
}

// Transform runs the plugins and then the presets' plugins over source.
func (engine *Engine) Transform(ctx context.Context, source string, options Options) (Outcome, error) {
	plugins, presetErr := engine.pipeline(options)
	if presetErr != nil {
		return Outcome{}, &TransformError{Filename: options.Filename, Err: presetErr}
	}
	file, parseErr := engine.parse(ctx, options.Filename, []byte(source))
	if parseErr != nil {
		return Outcome{}, &TransformError{Filename: options.Filename, Err: parseErr}
	}
	metadata := Metadata{}
	for _, plugin := range plugins {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		file.Metadata = metadata
		if applyErr := plugin.Apply(ctx, file); applyErr != nil {
			return Outcome{}, &TransformError{Filename: options.Filename, Plugin: plugin.Name(), Err: applyErr}
		}
		engine.logger.Debug(logMessagePluginApplied,
			zap.String(logFieldFile, options.Filename),
			zap.String(logFieldPlugin, plugin.Name()),
			zap.Bool(logFieldEdited, file.Edited()))
		if !file.Edited() {
			continue
		}
		edited, editErr := file.applyEdits()
		if editErr != nil {
			return Outcome{}, &TransformError{Filename: options.Filename, Plugin: plugin.Name(), Err: editErr}
		}
		// edits must leave the source parseable
		file, parseErr = engine.parse(ctx, options.Filename, edited)
		if parseErr != nil {
			return Outcome{}, &TransformError{Filename: options.Filename, Plugin: plugin.Name(), Err: parseErr}
		}
	}
	code := string(file.Source)
	return Outcome{Code: &code, Metadata: metadata}, nil
}

// Finish flushes every Finisher among options.Plugins and the presets' plugins in
// pipeline order.
func (engine *Engine) Finish(ctx context.Context, options Options) ([]Output, error) {
	plugins, presetErr := engine.pipeline(options)
	if presetErr != nil {
		return nil, presetErr
	}
	var outputs []Output
	for _, plugin := range plugins {
		finisher, ok := plugin.(Finisher)
		if !ok {
			continue
		}
		output, finishErr := finisher.Finish(ctx)
		if finishErr != nil {
			return outputs, fmt.Errorf("finish %s: %w", plugin.Name(), finishErr)
		}
		if output != nil {
			outputs = append(outputs, *output)
		}
	}
	return outputs, nil
}

// Close closes the preset plugin instances that implement io.Closer.
func (engine *Engine) Close() error {
	var closeErrs []error
	for _, plugins := range engine.presetPlugins {
		for _, plugin := range plugins {
			if closer, ok := plugin.(io.Closer); ok {
				closeErrs = append(closeErrs, closer.Close())
			}
		}
	}
	engine.presetPlugins = map[string][]Plugin{}
	return errors.Join(closeErrs...)
}

// pipeline returns options.Plugins followed by the plugins of each preset.
func (engine *Engine) pipeline(options Options) ([]Plugin, error) {
	plugins := append([]Plugin(nil), options.Plugins...)
	for _, preset := range options.Presets {
		presetPlugins, presetErr := engine.preset(preset)
		if presetErr != nil {
			return nil, presetErr
		}
		plugins = append(plugins, presetPlugins...)
	}
	return plugins, nil
}

func (engine *Engine) preset(name string) ([]Plugin, error) {
	if plugins, ok := engine.presetPlugins[name]; ok {
		return plugins, nil
	}
	factories, known := engine.presetFactories[name]
	if !known {
		return nil, fmt.Errorf(errorPresetFormat, ErrUnknownPreset, name)
	}
	plugins := make([]Plugin, 0, len(factories))
	for _, factory := range factories {
		plugin, factoryErr := factory()
		if factoryErr != nil {
			return nil, fmt.Errorf(errorPresetPluginFormat, name, factoryErr)
		}
		plugins = append(plugins, plugin)
	}
	engine.presetPlugins[name] = plugins
	return plugins, nil
}

func (engine *Engine) parse(ctx context.Context, filename string, source []byte) (*File, error) {
	tree, parseErr := syntax.Parse(ctx, filename, source)
	if parseErr != nil {
		return nil, parseErr
	}
	root := tree.RootNode()
	if syntaxErr := syntax.CheckSyntax(filename, root); syntaxErr != nil {
		return nil, syntaxErr
	}
	return &File{Filename: filename, Source: source, Root: root}, nil
}
