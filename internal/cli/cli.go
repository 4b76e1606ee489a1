// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/NorthSeacoder/codetransformer/internal/config"
	"github.com/NorthSeacoder/codetransformer/internal/graph"
	"github.com/NorthSeacoder/codetransformer/internal/resolver"
	"github.com/NorthSeacoder/codetransformer/internal/services/clipboard"
	"github.com/NorthSeacoder/codetransformer/internal/types"
	"github.com/NorthSeacoder/codetransformer/internal/utils"
	"github.com/NorthSeacoder/codetransformer/internal/workspace"
)

const (
	rootUse              = "codetransformer"
	rootShortDescription = "codetransformer command line interface"
	rootLongDescription  = `codetransformer runs a pipeline of source transforms over the JavaScript and
TypeScript files reachable from an entry file through its static imports.
The pipeline is read from the nearest .transformer.json inside the project root.`
	versionTemplate = "codetransformer version: {{.Version}}\n"

	rootFlagName                = "root"
	configFlagName              = "config"
	webpackConfigFlagName       = "webpack-config"
	tsConfigFlagName            = "ts-config"
	verboseFlagName             = "verbose"
	formatFlagName              = "format"
	rootFlagDescription         = "project root (repeatable); detected from package.json or .git when omitted"
	configFlagDescription       = "application configuration file (default ./.codetransformer.yaml)"
	webpackConfigDescription    = "webpack configuration path, relative to the project root"
	tsConfigDescription         = "tsconfig path, relative to the project root"
	verboseFlagDescription      = "enable debug logging"
	formatFlagDescription       = "output format"
	invalidFormatMessage        = "invalid format value '%s'"
	errorAbsolutePathFormat     = "abs failed for '%s': %w"
	errorPathMissingFormat      = "path '%s' does not exist"
	errorStatFormat             = "stat failed for '%s': %w"
	workingDirectoryErrorFormat = "unable to determine working directory: %w"
)

// Dependencies are the process-level services the commands use.
type Dependencies struct {
	Logger    *zap.Logger
	LogLevel  *zap.AtomicLevel
	Stdout    io.Writer
	Stderr    io.Writer
	Clipboard clipboard.Copier
	Version   string
}

func (dependencies Dependencies) withDefaults() Dependencies {
	dependencies.Logger = utils.LoggerOrNop(dependencies.Logger)
	if dependencies.Stdout == nil {
		dependencies.Stdout = os.Stdout
	}
	if dependencies.Stderr == nil {
		dependencies.Stderr = os.Stderr
	}
	if dependencies.Clipboard == nil {
		dependencies.Clipboard = clipboard.NewService()
	}
	return dependencies
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	roots         []string
	configPath    string
	webpackConfig string
	tsConfig      string
	verbose       bool
}

// Execute runs the codetransformer application with the process arguments.
func Execute(ctx context.Context, dependencies Dependencies) error {
	if dependencies.Version == "" {
		dependencies.Version = utils.GetApplicationVersion()
	}
	rootCommand := NewRootCommand(dependencies)
	rootCommand.SetArgs(joinToggleArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	dependencies = dependencies.withDefaults()
	options := &globalOptions{}

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Version:       dependencies.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if options.verbose && dependencies.LogLevel != nil {
				dependencies.LogLevel.SetLevel(zapcore.DebugLevel)
			}
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)
	rootCommand.SetOut(dependencies.Stdout)
	rootCommand.SetErr(dependencies.Stderr)

	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringArrayVar(&options.roots, rootFlagName, nil, rootFlagDescription)
	persistentFlags.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	persistentFlags.StringVar(&options.webpackConfig, webpackConfigFlagName, "", webpackConfigDescription)
	persistentFlags.StringVar(&options.tsConfig, tsConfigFlagName, "", tsConfigDescription)
	registerToggle(persistentFlags, &options.verbose, verboseFlagName, false, verboseFlagDescription)

	rootCommand.AddCommand(
		createTransformCommand(dependencies, options),
		createFilesCommand(dependencies, options),
		createInitCommand(dependencies),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// session is the per-invocation state shared by transform and files.
type session struct {
	entry     types.ValidatedPath
	appConfig config.ApplicationConfiguration
	workspace *workspace.Workspace
	resolver  *resolver.Resolver
	logger    *zap.Logger
}

// startDirectory is where the pipeline search starts and where artifacts land by
// default: the entry itself when it is a directory, otherwise its directory.
func (session *session) startDirectory() string {
	if session.entry.IsDir {
		return session.entry.AbsolutePath
	}
	return filepath.Dir(session.entry.AbsolutePath)
}

func newSession(dependencies Dependencies, options *globalOptions, entryArgument string) (*session, error) {
	entry, validateErr := resolveAndValidatePath(entryArgument)
	if validateErr != nil {
		return nil, validateErr
	}
	workingDirectory, workingDirectoryErr := os.Getwd()
	if workingDirectoryErr != nil {
		return nil, fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryErr)
	}
	appConfig, configErr := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if configErr != nil {
		return nil, configErr
	}

	roots := appConfig.Roots
	if len(options.roots) > 0 {
		roots = options.roots
	}
	explicit := resolver.ExplicitConfigs{BuildToolConfig: appConfig.WebpackConfig, TypeConfig: appConfig.TSConfig}
	if options.webpackConfig != "" {
		explicit.BuildToolConfig = options.webpackConfig
	}
	if options.tsConfig != "" {
		explicit.TypeConfig = options.tsConfig
	}

	projectWorkspace := workspace.New(roots)
	extractor := graph.NewImportExtractor(graph.WithLogger(dependencies.Logger))
	fileResolver := resolver.New(projectWorkspace, extractor,
		resolver.WithExplicitConfigs(explicit),
		resolver.WithLogger(dependencies.Logger))
	return &session{
		entry:     entry,
		appConfig: appConfig,
		workspace: projectWorkspace,
		resolver:  fileResolver,
		logger:    dependencies.Logger,
	}, nil
}

// resolveAndValidatePath converts an input path to absolute form and validates its existence.
func resolveAndValidatePath(inputPath string) (types.ValidatedPath, error) {
	absolutePath, absolutePathError := filepath.Abs(inputPath)
	if absolutePathError != nil {
		return types.ValidatedPath{}, fmt.Errorf(errorAbsolutePathFormat, inputPath, absolutePathError)
	}
	cleanPath := filepath.Clean(absolutePath)
	info, fileStatusError := os.Stat(cleanPath)
	if fileStatusError != nil {
		if os.IsNotExist(fileStatusError) {
			return types.ValidatedPath{}, fmt.Errorf(errorPathMissingFormat, inputPath)
		}
		return types.ValidatedPath{}, fmt.Errorf(errorStatFormat, inputPath, fileStatusError)
	}
	return types.ValidatedPath{AbsolutePath: cleanPath, IsDir: info.IsDir()}, nil
}
