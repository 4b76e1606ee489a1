package cli

import (
	"github.com/spf13/cobra"

	"github.com/NorthSeacoder/codetransformer/internal/config"
)

const (
	initUse              = "init [directory]"
	initShortDescription = "write a default .transformer.json"
	initLongDescription  = `Write a default .transformer.json into [directory] (the working directory by
default). Use --global to write the application configuration to
~/.codetransformer/config.yaml instead, and --force to overwrite an existing file.`

	forceFlagName         = "force"
	forceFlagDescription  = "overwrite an existing configuration file"
	globalFlagName        = "global"
	globalFlagDescription = "write the global application configuration"

	initWrittenMessage = "Configuration written to %s"
)

// createInitCommand returns the init subcommand.
func createInitCommand(dependencies Dependencies) *cobra.Command {
	var force bool
	var global bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			initOptions := config.InitOptions{Target: config.InitTargetPipeline, Force: force}
			if global {
				initOptions.Target = config.InitTargetGlobal
			}
			if len(arguments) == 1 {
				directory, validateErr := resolveAndValidatePath(arguments[0])
				if validateErr != nil {
					return validateErr
				}
				initOptions.WorkingDirectory = directory.AbsolutePath
			}
			writtenPath, initErr := config.InitializeConfiguration(initOptions)
			if initErr != nil {
				return initErr
			}
			notifier{writer: dependencies.Stdout}.Info(initWrittenMessage, writtenPath)
			return nil
		},
	}

	registerToggle(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	registerToggle(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	return initCommand
}
