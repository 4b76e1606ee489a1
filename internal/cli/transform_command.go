package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/NorthSeacoder/codetransformer/internal/output"
	"github.com/NorthSeacoder/codetransformer/internal/pipeline"
	"github.com/NorthSeacoder/codetransformer/internal/runner"
	"github.com/NorthSeacoder/codetransformer/internal/types"
)

const (
	transformUse              = "transform <path>"
	transformAlias            = "t"
	transformShortDescription = "run the transform pipeline (" + transformAlias + ")"
	// transformLongDescription provides detailed help for the transform command.
	transformLongDescription = `Resolve the files reachable from <path> and run the pipeline configured in the
nearest .transformer.json over each of them, in order.
Use --dry-run to list the files without transforming them.`
	// transformUsageExample demonstrates transform command usage.
	transformUsageExample = `  # Transform everything reachable from an entry file
  codetransformer transform src/index.tsx

  # Show which files would be transformed
  codetransformer t --dry-run src/pages`

	dryRunFlagName        = "dry-run"
	dryRunFlagDescription = "list the resolved files without transforming them"

	transformFinishedMessage  = "Transformation finished: %s"
	transformCancelledMessage = "transformation cancelled after %d of %d files: %s"
	emptyPipelineMessage      = "no plugins or presets configured for %s; files are only checked for syntax errors"
)

type transformOptions struct {
	dryRun bool
	format string
}

func isSupportedReportFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON:
		return true
	default:
		return false
	}
}

// createTransformCommand returns the transform subcommand.
func createTransformCommand(dependencies Dependencies, options *globalOptions) *cobra.Command {
	var dryRun bool
	var outputFormat string

	transformCommand := &cobra.Command{
		Use:     transformUse,
		Aliases: []string{transformAlias},
		Short:   transformShortDescription,
		Long:    transformLongDescription,
		Example: transformUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			outputFormatLower := strings.ToLower(outputFormat)
			if !isSupportedReportFormat(outputFormatLower) {
				return fmt.Errorf(invalidFormatMessage, outputFormatLower)
			}
			return runTransform(command.Context(), dependencies, options, arguments[0], transformOptions{
				dryRun: dryRun,
				format: outputFormatLower,
			})
		},
	}

	registerToggle(transformCommand.Flags(), &dryRun, dryRunFlagName, false, dryRunFlagDescription)
	transformCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatRaw, formatFlagDescription)
	return transformCommand
}

// runTransform loads the pipeline and resolves the files concurrently; both finish
// before the first file is transformed.
func runTransform(ctx context.Context, dependencies Dependencies, options *globalOptions, entryArgument string, transform transformOptions) error {
	session, sessionErr := newSession(dependencies, options, entryArgument)
	if sessionErr != nil {
		return sessionErr
	}
	startDirectory := session.startDirectory()

	var pipelineConfig pipeline.Config
	var files []string
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		loader := pipeline.NewLoader(session.workspace, pipeline.NewModuleLoader(dependencies.Logger), dependencies.Logger)
		loaded, loadErr := loader.Load(groupCtx, startDirectory)
		pipelineConfig = loaded
		return loadErr
	})
	group.Go(func() error {
		resolved, resolveErr := session.resolver.Resolve(groupCtx, session.entry.AbsolutePath)
		files = resolved
		return resolveErr
	})
	if waitErr := group.Wait(); waitErr != nil {
		return waitErr
	}

	messages := notifier{writer: dependencies.Stderr}
	if pipelineConfig.Empty() {
		messages.Warn(emptyPipelineMessage, startDirectory)
	}

	report := types.RunReport{
		Entry:      session.entry.AbsolutePath,
		ConfigPath: pipelineConfig.ConfigPath,
		DryRun:     transform.dryRun,
	}
	if transform.dryRun {
		report.Files = files
		return output.RenderRunReport(dependencies.Stdout, report, transform.format)
	}

	progress := newTerminalProgress(dependencies.Stderr)
	transformRunner := runner.New(
		runner.WithLogger(dependencies.Logger),
		runner.WithProgress(progress),
		runner.WithDefaultOutputFilename(session.appConfig.OutputFilename),
	)
	summary, runErr := transformRunner.Run(ctx, files, pipelineConfig, startDirectory)
	progress.Done()
	if runErr != nil {
		return runErr
	}

	report.Files = summary.Files
	report.Rewritten = summary.Rewritten
	report.Artifacts = summary.Artifacts
	report.Cancelled = summary.Cancelled
	if renderErr := output.RenderRunReport(dependencies.Stdout, report, transform.format); renderErr != nil {
		return renderErr
	}
	if summary.Cancelled {
		messages.Warn(transformCancelledMessage, len(summary.Files), len(files), entryArgument)
		return nil
	}
	messages.Info(transformFinishedMessage, entryArgument)
	return nil
}
