package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TwoAbove/lc/internal/commands"
	"github.com/TwoAbove/lc/internal/services/sink"
	"github.com/TwoAbove/lc/internal/services/watch"
)

const (
	watchRunFailedMessage = "snapshot failed"
	watchStartedMessage   = "watching for changes"
)

func createWatchCommand(env environment, flags *snapshotFlags) *cobra.Command {
	return &cobra.Command{
		Use:   watchUse,
		Short: watchShortDescription,
		Long:  watchLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			current, invocationError := newInvocation(command, env, *flags, arguments)
			if invocationError != nil {
				return invocationError
			}
			defer current.close()
			return watchAndRun(command.Context(), current)
		},
	}
}

// watchAndRun takes a snapshot and then one more after every burst of
// relevant changes until ctx is done. Failed runs after the first are logged.
func watchAndRun(ctx context.Context, current *invocation) error {
	if runError := current.run(ctx); runError != nil {
		return runError
	}

	options := current.snapshotOptions()
	var excluded []string
	if fileSink, isFile := current.destination.(*sink.FileSink); isFile {
		excluded = append(excluded, fileSink.Path)
	}
	filter, filterError := commands.ChangeFilter(options, excluded...)
	if filterError != nil {
		return filterError
	}

	service := watch.NewService(current.target, filter, current.logger)
	if startError := service.Start(); startError != nil {
		return startError
	}
	defer service.Stop()
	current.logger.Info(watchStartedMessage, zap.String("path", current.target))

	return service.Run(ctx, func(runContext context.Context) error {
		if runError := current.run(runContext); runError != nil {
			current.logger.Warn(watchRunFailedMessage, zap.Error(runError))
		}
		return nil
	})
}
