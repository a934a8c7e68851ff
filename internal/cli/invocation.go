package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TwoAbove/lc/internal/commands"
	"github.com/TwoAbove/lc/internal/config"
	"github.com/TwoAbove/lc/internal/document"
	"github.com/TwoAbove/lc/internal/ignore"
	"github.com/TwoAbove/lc/internal/merge"
	"github.com/TwoAbove/lc/internal/output"
	"github.com/TwoAbove/lc/internal/services/sink"
	"github.com/TwoAbove/lc/internal/tokenizer"
)

const (
	tokenizerUnavailableMessage = "tokenizer unavailable; token counts will be reported as unknown"
	debugTokenizerMessage       = "tokenizer ready"
	debugMergedMessage          = "snapshot merged"
	readSinkErrorFormat         = "read existing output: %w"
	writeSinkErrorFormat        = "write output: %w"
	writeSummaryErrorFormat     = "write summary: %w"
)

// invocation carries everything one snapshot run needs. In watch mode a
// single invocation is run repeatedly.
type invocation struct {
	settings      config.Settings
	target        string
	logger        *zap.Logger
	accountant    tokenizer.Accountant
	destination   sink.Sink
	summaryWriter io.Writer
	homeDirectory string
}

func newInvocation(command *cobra.Command, env environment, flags snapshotFlags, arguments []string) (*invocation, error) {
	logger := env.newLogger(command.ErrOrStderr(), flags.debug)
	settings, settingsError := resolveSettings(command, env, flags)
	if settingsError != nil {
		return nil, settingsError
	}

	target := defaultPath
	if len(arguments) > 0 {
		target = arguments[0]
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(env.workingDirectory, target)
	}

	counter, encodingName, counterError := env.newCounter(tokenizer.Config{Model: settings.Model})
	if counterError != nil {
		logger.Warn(tokenizerUnavailableMessage, zap.String("model", settings.Model), zap.Error(counterError))
		counter = tokenizer.UnavailableCounter{Cause: counterError}
	} else {
		logger.Debug(debugTokenizerMessage, zap.String("encoding", encodingName))
	}

	created := &invocation{
		settings:      settings,
		target:        target,
		logger:        logger,
		accountant:    tokenizer.Accountant{Counter: counter, Limit: settings.TokenLimit},
		summaryWriter: command.OutOrStdout(),
		homeDirectory: env.homeDirectory,
	}
	switch {
	case flags.stdout:
		created.destination = &sink.StdoutSink{Writer: command.OutOrStdout()}
		created.summaryWriter = command.ErrOrStderr()
	case settings.Output != "":
		created.destination = sink.NewFileSink(settings.Output)
	default:
		created.destination = env.newClipboard()
	}
	return created, nil
}

func (current *invocation) snapshotOptions() commands.SnapshotOptions {
	globalIgnorePath := ""
	if current.settings.UseGlobalIgnore {
		globalIgnorePath = ignore.GlobalIgnorePath(current.homeDirectory)
	}
	var skipPaths []string
	if fileSink, isFile := current.destination.(*sink.FileSink); isFile {
		skipPaths = append(skipPaths, fileSink.Path)
	}
	return commands.SnapshotOptions{
		TargetDirectory:    current.target,
		DirectoryOnly:      current.settings.DirectoryOnly,
		Accountant:         current.accountant,
		Concurrency:        current.settings.Concurrency,
		UseGitignore:       current.settings.UseGitignore,
		ToolIgnoreFileName: current.settings.IgnoreFileName,
		GlobalIgnorePath:   globalIgnorePath,
		DefaultPatterns:    current.settings.DefaultIgnores,
		ExcludePatterns:    current.settings.Exclude,
		SkipPaths:          skipPaths,
		Logger:             current.logger,
	}
}

// run builds the snapshot, merges it into the sink's current text and prints
// the summary. Nothing is written when reading the sink fails.
func (current *invocation) run(ctx context.Context) error {
	codebaseDocument, buildError := commands.BuildSnapshot(ctx, current.snapshotOptions())
	if buildError != nil {
		return buildError
	}

	prior, readError := current.destination.Read()
	if readError != nil {
		return fmt.Errorf(readSinkErrorFormat, readError)
	}
	merged, state := merge.Merge(prior, codebaseDocument)
	if writeError := current.destination.Write(merged); writeError != nil {
		return fmt.Errorf(writeSinkErrorFormat, writeError)
	}
	current.logger.Debug(debugMergedMessage,
		zap.String("root", codebaseDocument.Root),
		zap.Int("codebases", len(state.Documents)))

	summary := output.Summary{
		Root:          codebaseDocument.Root,
		DirectoryOnly: codebaseDocument.DirectoryOnly,
		Current:       codebaseDocument.Stats(current.settings.TokenLimit),
		Merged:        document.StatsOf(current.settings.TokenLimit, state.Documents...),
	}
	if summaryError := output.WriteSummary(current.summaryWriter, summary); summaryError != nil {
		return fmt.Errorf(writeSummaryErrorFormat, summaryError)
	}
	return nil
}

func (current *invocation) close() {
	_ = current.logger.Sync()
}
