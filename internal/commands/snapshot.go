// Package commands assembles codebase snapshots from the filesystem.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TwoAbove/lc/internal/document"
	"github.com/TwoAbove/lc/internal/ignore"
	"github.com/TwoAbove/lc/internal/tokenizer"
	"github.com/TwoAbove/lc/internal/utils"
)

const (
	WarningDirectoryReadMessage    = "skipping unreadable directory"
	WarningEntryStatMessage        = "skipping entry that cannot be inspected"
	WarningFileReadMessage         = "failed to read file"
	WarningTokenCountMessage       = "token count failed"
	DebugSkippedSpecialFileMessage = "skipping special file"
	DebugSymlinkCycleMessage       = "skipping already visited directory"
	DebugOverLimitMessage          = "file exceeds token limit"
	DebugSnapshotBuiltMessage      = "snapshot built"
)

const (
	invalidDirectoryErrorFormat = "%s is not a valid directory"
	resolveRootErrorFormat      = "resolve document root for %s: %w"
	loadIgnoreRulesErrorFormat  = "load ignore rules: %w"
	walkErrorFormat             = "walk %s: %w"
)

// ErrInvalidDirectory reports a target that does not exist or is not a directory.
var ErrInvalidDirectory = errors.New("invalid directory")

// SnapshotOptions configures BuildSnapshot.
type SnapshotOptions struct {
	TargetDirectory    string
	DirectoryOnly      bool
	Accountant         tokenizer.Accountant
	Concurrency        int
	UseGitignore       bool
	ToolIgnoreFileName string
	GlobalIgnorePath   string
	DefaultPatterns    []string
	ExcludePatterns    []string
	// SkipPaths lists files, such as the output file, left out of the snapshot.
	SkipPaths []string
	Logger    *zap.Logger
}

// BuildSnapshot walks the target directory and assembles the document for its
// codebase. The document is keyed by the enclosing repository root when there
// is one; files are inspected by a bounded worker pool and the result does not
// depend on completion order.
func BuildSnapshot(ctx context.Context, options SnapshotOptions) (document.CodebaseDocument, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scope, scopeError := resolveScope(options, logger)
	if scopeError != nil {
		return document.CodebaseDocument{}, scopeError
	}
	documentRoot := scope.documentRoot
	canonicalTarget := scope.targetDirectory
	matcher := scope.matcher
	ignoreOptions := scope.ignoreOptions

	records, walkError := Walk(ctx, WalkOptions{
		DocumentRoot:    documentRoot,
		TargetDirectory: canonicalTarget,
		Matcher:         matcher,
		IgnoreOptions:   ignoreOptions,
		SkipPaths:       canonicalPathSet(options.SkipPaths),
		Logger:          logger,
	})
	if walkError != nil {
		return document.CodebaseDocument{}, fmt.Errorf(walkErrorFormat, canonicalTarget, walkError)
	}

	var entries []document.FileEntry
	if options.DirectoryOnly {
		entries = structureEntries(records)
	} else {
		var inspectError error
		entries, inspectError = inspectRecords(ctx, records, matcher, options, logger)
		if inspectError != nil {
			return document.CodebaseDocument{}, inspectError
		}
	}

	codebaseDocument := document.Build(documentRoot, options.DirectoryOnly, entries)
	logger.Debug(DebugSnapshotBuiltMessage,
		zap.String("root", documentRoot),
		zap.String("target", canonicalTarget),
		zap.Int("entries", len(codebaseDocument.Entries)))
	return codebaseDocument, nil
}

type snapshotScope struct {
	documentRoot    string
	targetDirectory string
	ignoreOptions   ignore.Options
	matcher         *ignore.Matcher
}

// resolveScope validates the target and loads the ignore rules in effect at it.
func resolveScope(options SnapshotOptions, logger *zap.Logger) (snapshotScope, error) {
	targetInfo, statError := os.Stat(options.TargetDirectory)
	if statError != nil || !targetInfo.IsDir() {
		return snapshotScope{}, fmt.Errorf("%w: "+invalidDirectoryErrorFormat, ErrInvalidDirectory, options.TargetDirectory)
	}
	canonicalTarget, canonicalError := utils.CanonicalPath(options.TargetDirectory)
	if canonicalError != nil {
		return snapshotScope{}, fmt.Errorf(resolveRootErrorFormat, options.TargetDirectory, canonicalError)
	}
	documentRoot, isRepository, rootError := utils.ResolveDocumentRoot(canonicalTarget)
	if rootError != nil {
		return snapshotScope{}, fmt.Errorf(resolveRootErrorFormat, options.TargetDirectory, rootError)
	}

	ignoreOptions := ignore.Options{
		DocumentRoot:       documentRoot,
		TargetDirectory:    canonicalTarget,
		IsRepository:       isRepository,
		UseGitignore:       options.UseGitignore,
		ToolIgnoreFileName: options.ToolIgnoreFileName,
		GlobalIgnorePath:   options.GlobalIgnorePath,
		DefaultPatterns:    options.DefaultPatterns,
		ExcludePatterns:    options.ExcludePatterns,
		Logger:             logger,
	}
	matcher, loadError := ignore.LoadStack(ignoreOptions)
	if loadError != nil {
		return snapshotScope{}, fmt.Errorf(loadIgnoreRulesErrorFormat, loadError)
	}
	return snapshotScope{
		documentRoot:    documentRoot,
		targetDirectory: canonicalTarget,
		ignoreOptions:   ignoreOptions,
		matcher:         matcher,
	}, nil
}

func canonicalPathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		if absolutePath, absError := filepath.Abs(path); absError == nil {
			set[canonicalOrSelf(absolutePath)] = struct{}{}
		}
	}
	return set
}

func structureEntries(records []Record) []document.FileEntry {
	entries := make([]document.FileEntry, 0, len(records))
	for _, record := range records {
		kind := document.KindText
		if record.IsDirectory {
			kind = document.KindDirectory
		}
		entries = append(entries, document.FileEntry{Path: record.Path, Kind: kind})
	}
	return entries
}

// inspectRecords inspects every file record with at most options.Concurrency
// workers. Results are stored by record index.
func inspectRecords(ctx context.Context, records []Record, matcher *ignore.Matcher, options SnapshotOptions, logger *zap.Logger) ([]document.FileEntry, error) {
	fileRecords := make([]Record, 0, len(records))
	for _, record := range records {
		if !record.IsDirectory {
			fileRecords = append(fileRecords, record)
		}
	}

	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	entries := make([]document.FileEntry, len(fileRecords))
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for index, record := range fileRecords {
		index, record := index, record
		group.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			entries[index] = inspectFile(record, fileInspectionConfig{
				Accountant:   options.Accountant,
				ForcedBinary: matcher.IsForcedBinary(record.Path),
				Logger:       logger,
			})
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}
	return entries, nil
}
