// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/dirstat/internal/config"
	"github.com/temirov/dirstat/internal/services/clipboard"
	"github.com/temirov/dirstat/internal/utils"
)

const (
	versionFlagName        = "version"
	configFlagName         = "config"
	logLevelFlagName       = "log-level"
	versionTemplate        = "dirstat version: %s\n"
	defaultPath            = "."
	rootUse                = "dirstat"
	rootShortDescription   = "dirstat directory size analyzer"
	rootLongDescription    = `dirstat reads a directory tree and reports accumulated sizes, item counts and modification times.
Large directories group their files under a <Files> entry. A finished scan can be saved to a cache file and loaded later without touching the disk.
Use --format to select raw, json, or ndjson output, and --version to print the application version.`
	versionFlagDescription  = "display application version"
	configFlagDescription   = "path to a configuration file (defaults to ./" + utils.LocalConfigFileName + ")"
	logLevelFlagDescription = "log level (debug, info, warn, error)"
)

// environment holds the process resources commands write to.
type environment struct {
	stdout           io.Writer
	stderr           io.Writer
	copier           clipboard.Copier
	workingDirectory string
}

func defaultEnvironment() environment {
	return environment{
		stdout: os.Stdout,
		stderr: os.Stderr,
		copier: clipboard.NewService(),
	}
}

// applicationState is shared by all subcommands of one invocation.
type applicationState struct {
	environment
	configFilePath string
	logLevel       string
	configuration  config.ApplicationConfiguration
	logger         *zap.Logger
}

// prepare loads configuration files and builds the logger.
func (state *applicationState) prepare() error {
	configuration, loadErr := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: state.workingDirectory,
		ExplicitFilePath: state.configFilePath,
	})
	if loadErr != nil {
		return loadErr
	}
	levelName := configuration.Logging.Level
	if state.logLevel != "" {
		levelName = state.logLevel
	}
	logger, loggerErr := utils.NewApplicationLogger(levelName)
	if loggerErr != nil {
		return loggerErr
	}
	state.configuration = configuration
	state.logger = logger
	return nil
}

// resolvePath makes a user supplied path absolute relative to the working directory.
func (state *applicationState) resolvePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if state.workingDirectory != "" {
		return filepath.Join(state.workingDirectory, path), nil
	}
	absolutePath, absErr := filepath.Abs(path)
	if absErr != nil {
		return "", fmt.Errorf("abs failed for '%s': %w", path, absErr)
	}
	return absolutePath, nil
}

func (state *applicationState) sync() {
	if state.logger != nil {
		_ = state.logger.Sync()
	}
}

// Execute runs the dirstat application.
func Execute() error {
	rootCommand := newRootCommand(defaultEnvironment())
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// newRootCommand builds the root Cobra command.
func newRootCommand(env environment) *cobra.Command {
	state := &applicationState{environment: env}
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Fprintf(state.stdout, versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
		PersistentPostRun: func(command *cobra.Command, arguments []string) {
			state.sync()
		},
	}
	rootCommand.SetOut(env.stdout)
	rootCommand.SetErr(env.stderr)
	registerBooleanFlag(rootCommand.PersistentFlags(), &showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&state.configFilePath, configFlagName, "", configFlagDescription)
	rootCommand.PersistentFlags().StringVar(&state.logLevel, logLevelFlagName, "", logLevelFlagDescription)
	rootCommand.AddCommand(
		newScanCommand(state),
		newLoadCommand(state),
		newInitCommand(state),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}
