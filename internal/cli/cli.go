// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TwoAbove/lc/internal/config"
	"github.com/TwoAbove/lc/internal/services/sink"
	"github.com/TwoAbove/lc/internal/tokenizer"
	"github.com/TwoAbove/lc/internal/utils"
)

const (
	directoryOnlyFlagName   = "directory-only"
	directoryOnlyShorthand  = "d"
	tokenLimitFlagName      = "token-limit"
	tokenLimitShorthand     = "t"
	modelFlagName           = "model"
	outputFlagName          = "output"
	outputShorthand         = "o"
	stdoutFlagName          = "stdout"
	noGitignoreFlagName     = "no-gitignore"
	noGlobalIgnoreFlagName  = "no-global-ignore"
	exclusionFlagName       = "exclude"
	exclusionShorthand      = "e"
	concurrencyFlagName     = "concurrency"
	configFlagName          = "config"
	debugFlagName           = "debug"
	versionFlagName         = "version"
	globalFlagName          = "global"
	forceFlagName           = "force"
	versionTemplate         = "lc version: %s\n"
	defaultPath             = "."
	rootUse                 = "lc [subfolder]"
	rootShortDescription    = "collect a codebase into a shareable snapshot"
	rootLongDescription     = `lc walks a directory, skips ignored and version-control paths, and folds the
files into a structured snapshot. The snapshot is merged into the current
clipboard content (or --output file), replacing an earlier snapshot of the same
repository and keeping snapshots of other repositories.`
	rootUsageExample = `  # Snapshot the current repository into the clipboard
  lc

  # Only list the structure of a subfolder
  lc -d ./internal

  # Accumulate snapshots in a file instead of the clipboard
  lc --output context.xml ../other-repo`
	watchUse              = "watch [subfolder]"
	watchShortDescription = "re-run the snapshot whenever files change"
	watchLongDescription  = `Take a snapshot, then keep watching the directory and take a new one after
each burst of changes.`
	configUse                  = "config"
	configShortDescription     = "manage lc configuration"
	configInitUse              = "init"
	configInitShortDescription = "write the default configuration file"

	directoryOnlyFlagDescription  = "list the structure without file contents"
	tokenLimitFlagDescription     = "report files whose token count exceeds this limit"
	modelFlagDescription          = "tokenizer model or encoding used for token counts"
	outputFlagDescription         = "merge into this file instead of the clipboard"
	stdoutFlagDescription         = "print the snapshot instead of merging into the clipboard"
	noGitignoreFlagDescription    = "do not use .gitignore and .git/info/exclude"
	noGlobalIgnoreFlagDescription = "do not use the global ~/" + utils.ToolIgnoreFileName
	exclusionFlagDescription      = "exclude path pattern (repeatable)"
	concurrencyFlagDescription    = "number of files inspected in parallel (0 uses all CPUs)"
	configFlagDescription         = "configuration file used instead of ./" + utils.ConfigFileName
	debugFlagDescription          = "enable debug logging"
	versionFlagDescription        = "display application version"
	globalFlagDescription         = "write the configuration to ~/" + utils.GlobalConfigDirectoryName + "/" + utils.ConfigFileName
	forceFlagDescription          = "overwrite an existing configuration file"

	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	configurationErrorFormat    = "load configuration: %w"
	configInitMessageFormat     = "Configuration written to %s\n"
)

// environment holds the process facing collaborators of a command tree.
type environment struct {
	workingDirectory string
	homeDirectory    string
	stdout           io.Writer
	stderr           io.Writer
	newCounter       func(tokenizer.Config) (tokenizer.Counter, string, error)
	newClipboard     func() sink.Sink
	newLogger        func(writer io.Writer, debug bool) *zap.Logger
}

func defaultEnvironment() (environment, error) {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return environment{}, fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}
	homeDirectory, _ := os.UserHomeDir()
	return environment{
		workingDirectory: workingDirectory,
		homeDirectory:    homeDirectory,
		stdout:           os.Stdout,
		stderr:           os.Stderr,
		newCounter:       tokenizer.NewCounter,
		newClipboard:     func() sink.Sink { return sink.NewClipboardSink() },
		newLogger:        utils.NewApplicationLogger,
	}, nil
}

// Execute runs the lc application until it finishes or the process is interrupted.
func Execute() error {
	env, environmentError := defaultEnvironment()
	if environmentError != nil {
		return environmentError
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCommand := createRootCommand(env)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// snapshotFlags stores the values of the flags shared by the root and watch commands.
type snapshotFlags struct {
	directoryOnly     bool
	tokenLimit        int
	model             string
	output            string
	stdout            bool
	disableGitignore  bool
	disableGlobal     bool
	exclusionPatterns []string
	concurrency       int
	configPath        string
	debug             bool
}

// createRootCommand builds the root Cobra command.
func createRootCommand(env environment) *cobra.Command {
	var flags snapshotFlags
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				_, err := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return err
			}
			invocation, invocationError := newInvocation(command, env, flags, arguments)
			if invocationError != nil {
				return invocationError
			}
			defer invocation.close()
			return invocation.run(command.Context())
		},
	}
	rootCommand.SetOut(env.stdout)
	rootCommand.SetErr(env.stderr)

	registerSnapshotFlags(rootCommand, &flags)
	rootCommand.Flags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.AddCommand(
		createWatchCommand(env, &flags),
		createConfigCommand(env),
	)
	return rootCommand
}

// resolveSettings loads the configuration files and applies every flag the
// user set explicitly on top of them.
func resolveSettings(command *cobra.Command, env environment, flags snapshotFlags) (config.Settings, error) {
	loaded, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: env.workingDirectory,
		ExplicitFilePath: flags.configPath,
		HomeDirectory:    env.homeDirectory,
	})
	if loadError != nil {
		return config.Settings{}, fmt.Errorf(configurationErrorFormat, loadError)
	}
	settings, resolveError := loaded.Resolve()
	if resolveError != nil {
		return config.Settings{}, fmt.Errorf(configurationErrorFormat, resolveError)
	}

	changed := command.Flags().Changed
	if changed(directoryOnlyFlagName) {
		settings.DirectoryOnly = flags.directoryOnly
	}
	if changed(tokenLimitFlagName) {
		settings.TokenLimit = flags.tokenLimit
	}
	if changed(modelFlagName) {
		settings.Model = flags.model
	}
	if changed(outputFlagName) {
		settings.Output = flags.output
	}
	if changed(noGitignoreFlagName) {
		settings.UseGitignore = !flags.disableGitignore
	}
	if changed(noGlobalIgnoreFlagName) {
		settings.UseGlobalIgnore = !flags.disableGlobal
	}
	if changed(exclusionFlagName) {
		settings.Exclude = utils.DeduplicatePatterns(append(settings.Exclude, flags.exclusionPatterns...))
	}
	if changed(concurrencyFlagName) {
		settings.Concurrency = flags.concurrency
	}
	if settings.Output != "" && !filepath.IsAbs(settings.Output) {
		settings.Output = filepath.Join(env.workingDirectory, settings.Output)
	}
	return settings, nil
}

func createConfigCommand(env environment) *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   configInitUse,
		Short: configInitShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: env.workingDirectory,
				HomeDirectory:    env.homeDirectory,
			})
			if initError != nil {
				return initError
			}
			_, err := fmt.Fprintf(command.OutOrStdout(), configInitMessageFormat, path)
			return err
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, "", false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, "", false, forceFlagDescription)

	configCommand := &cobra.Command{
		Use:   configUse,
		Short: configShortDescription,
	}
	configCommand.AddCommand(initCommand)
	return configCommand
}
