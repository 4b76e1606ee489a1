// Package runner applies a resolved pipeline to a list of files, one file at a time.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
	"github.com/NorthSeacoder/codetransformer/internal/pipeline"
	"github.com/NorthSeacoder/codetransformer/internal/plugins"
	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

const (
	progressMessageFormat = "Processing %d/%d"

	operationRead          = "read"
	operationWrite         = "write"
	operationCreateDir     = "create directory"
	operationWriteArtifact = "write artifact"

	artifactDirectoryPermissions = 0o755
	artifactFilePermissions      = 0o644

	logMessageRewritten = "file rewritten"
	logMessageArtifact  = "artifact written"
	logMessageCancelled = "run cancelled"
	logMessageFinished  = "run finished"
	logFieldFile        = "file"
	logFieldPath        = "path"
	logFieldProcessed   = "processed"
	logFieldTotal       = "total"
)

// Progress receives one report per processed file.
type Progress interface {
	Report(message string, incrementPercent float64)
}

type noopProgress struct{}

func (noopProgress) Report(string, float64) {}

// Summary describes what a run did.
type Summary struct {
	Files     []string
	Rewritten []string
	Artifacts []string
	Cancelled bool
}

// IOError reports a failed read or write of a file the run touches.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (ioError *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", ioError.Op, ioError.Path, ioError.Err)
}

func (ioError *IOError) Unwrap() error {
	return ioError.Err
}

// Runner executes pipelines.
type Runner struct {
	logger                *zap.Logger
	progress              Progress
	defaultOutputFilename string
	newTransformer        func(logger *zap.Logger) engine.Transformer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(runner *Runner) {
		runner.logger = utils.LoggerOrNop(logger)
	}
}

// WithProgress sets the progress sink.
func WithProgress(progress Progress) Option {
	return func(runner *Runner) {
		if progress != nil {
			runner.progress = progress
		}
	}
}

// WithDefaultOutputFilename overrides the file name used for artifacts that do not
// name their own file.
func WithDefaultOutputFilename(filename string) Option {
	return func(runner *Runner) {
		if filename != "" {
			runner.defaultOutputFilename = filename
		}
	}
}

// WithTransformer replaces the transform engine constructed for every run.
func WithTransformer(newTransformer func(logger *zap.Logger) engine.Transformer) Option {
	return func(runner *Runner) {
		if newTransformer != nil {
			runner.newTransformer = newTransformer
		}
	}
}

// New constructs a Runner backed by the tree-sitter engine and the built-in presets.
func New(options ...Option) *Runner {
	runner := &Runner{
		logger:                zap.NewNop(),
		progress:              noopProgress{},
		defaultOutputFilename: utils.DefaultOutputFileName,
		newTransformer: func(logger *zap.Logger) engine.Transformer {
			return engine.New(plugins.Presets(), logger)
		},
	}
	for _, option := range options {
		option(runner)
	}
	return runner
}

// Run transforms files in order. Plugin instances and the engine live for the whole
// run. A cancelled context stops the run between files and is reported through
// Summary.Cancelled rather than an error. Finishers run only when at least one file
// was processed.
func (runner *Runner) Run(ctx context.Context, files []string, config pipeline.Config, baseDirectory string) (summary Summary, err error) {
	instances, instantiateErr := config.Instantiate()
	defer func() {
		if closeErr := closePlugins(instances); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if instantiateErr != nil {
		return summary, instantiateErr
	}

	transformer := runner.newTransformer(runner.logger)
	defer func() {
		if closeErr := transformer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	options := engine.Options{Plugins: instances, Presets: config.Presets}
	total := len(files)
	if ctx.Err() != nil {
		summary.Cancelled = true
	}
	for index := 0; index < total && !summary.Cancelled; index++ {
		filePath := files[index]
		if processErr := runner.processFile(ctx, transformer, options, filePath, baseDirectory, &summary); processErr != nil {
			if ctx.Err() != nil && errors.Is(processErr, ctx.Err()) {
				summary.Cancelled = true
				break
			}
			return summary, processErr
		}
		summary.Files = append(summary.Files, filePath)
		runner.progress.Report(fmt.Sprintf(progressMessageFormat, index+1, total), 100/float64(total))
		if ctx.Err() != nil {
			summary.Cancelled = true
		}
	}
	if summary.Cancelled {
		runner.logger.Info(logMessageCancelled, zap.Int(logFieldProcessed, len(summary.Files)), zap.Int(logFieldTotal, total))
	}

	if len(summary.Files) == 0 {
		return summary, nil
	}
	// finishers flush even after cancellation
	outputs, finishErr := transformer.Finish(context.WithoutCancel(ctx), options)
	for _, output := range outputs {
		if writeErr := runner.writeArtifact(output, baseDirectory, &summary); writeErr != nil {
			return summary, writeErr
		}
	}
	if finishErr != nil {
		return summary, finishErr
	}
	runner.logger.Debug(logMessageFinished, zap.Int(logFieldProcessed, len(summary.Files)), zap.Int(logFieldTotal, total))
	return summary, nil
}

func (runner *Runner) processFile(ctx context.Context, transformer engine.Transformer, options engine.Options, filePath string, baseDirectory string, summary *Summary) error {
	content, readErr := os.ReadFile(filePath)
	if readErr != nil {
		return &IOError{Op: operationRead, Path: filePath, Err: readErr}
	}
	source := string(content)
	options.Filename = filePath
	outcome, transformErr := transformer.Transform(ctx, source, options)
	if transformErr != nil {
		return transformErr
	}

	if shouldRewrite(outcome, source) {
		if writeErr := writePreservingMode(filePath, *outcome.Code); writeErr != nil {
			return writeErr
		}
		summary.Rewritten = append(summary.Rewritten, filePath)
		runner.logger.Debug(logMessageRewritten, zap.String(logFieldFile, filePath))
	}
	if output, hasOutput := outcome.Metadata.Output(); hasOutput {
		return runner.writeArtifact(output, baseDirectory, summary)
	}
	return nil
}

// shouldRewrite applies the outcome policy: notTransform wins, missing or empty code
// never overwrites, and unchanged code is not written back.
func shouldRewrite(outcome engine.Outcome, original string) bool {
	if outcome.Metadata.NotTransform() {
		return false
	}
	if outcome.Code == nil || *outcome.Code == "" {
		return false
	}
	return *outcome.Code != original
}

func writePreservingMode(filePath string, content string) error {
	permissions := os.FileMode(artifactFilePermissions)
	if info, statErr := os.Stat(filePath); statErr == nil {
		permissions = info.Mode().Perm()
	}
	if writeErr := os.WriteFile(filePath, []byte(content), permissions); writeErr != nil {
		return &IOError{Op: operationWrite, Path: filePath, Err: writeErr}
	}
	return nil
}

// ArtifactPath returns where output is written: Directory (relative paths taken from
// baseDirectory, empty meaning baseDirectory) joined with Filename or defaultFilename.
func ArtifactPath(output engine.Output, baseDirectory string, defaultFilename string) string {
	directory := output.Directory
	switch {
	case directory == "":
		directory = baseDirectory
	case !filepath.IsAbs(directory):
		directory = filepath.Join(baseDirectory, directory)
	}
	filename := output.Filename
	if filename == "" {
		filename = defaultFilename
	}
	return filepath.Join(directory, filename)
}

func (runner *Runner) writeArtifact(output engine.Output, baseDirectory string, summary *Summary) error {
	artifactPath := ArtifactPath(output, baseDirectory, runner.defaultOutputFilename)
	artifactDirectory := filepath.Dir(artifactPath)
	if mkdirErr := os.MkdirAll(artifactDirectory, artifactDirectoryPermissions); mkdirErr != nil {
		return &IOError{Op: operationCreateDir, Path: artifactDirectory, Err: mkdirErr}
	}
	if writeErr := os.WriteFile(artifactPath, []byte(output.Content), artifactFilePermissions); writeErr != nil {
		return &IOError{Op: operationWriteArtifact, Path: artifactPath, Err: writeErr}
	}
	if !utils.ContainsString(summary.Artifacts, artifactPath) {
		summary.Artifacts = append(summary.Artifacts, artifactPath)
	}
	runner.logger.Debug(logMessageArtifact, zap.String(logFieldPath, artifactPath))
	return nil
}

func closePlugins(instances []engine.Plugin) error {
	var closeErrs []error
	for _, instance := range instances {
		if closer, ok := instance.(io.Closer); ok {
			closeErrs = append(closeErrs, closer.Close())
		}
	}
	return errors.Join(closeErrs...)
}
