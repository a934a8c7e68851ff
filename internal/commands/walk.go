package commands

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/TwoAbove/lc/internal/ignore"
	"github.com/TwoAbove/lc/internal/utils"
)

// Record is one non-ignored path found by Walk.
type Record struct {
	// Path is relative to the document root and uses forward slashes.
	Path         string
	AbsolutePath string
	IsDirectory  bool
	SizeBytes    int64
}

// WalkOptions configures a traversal.
type WalkOptions struct {
	// DocumentRoot is the canonical directory Record paths are relative to.
	DocumentRoot string
	// TargetDirectory is the canonical directory the traversal starts from.
	TargetDirectory string
	// Matcher holds the rules in effect at TargetDirectory.
	Matcher *ignore.Matcher
	// IgnoreOptions locates the ignore files of each visited directory.
	IgnoreOptions ignore.Options
	// SkipPaths holds canonical absolute paths that are never recorded.
	SkipPaths map[string]struct{}
	Logger    *zap.Logger
}

type walkContext struct {
	context context.Context
	options WalkOptions
	logger  *zap.Logger
	visited map[string]struct{}
	records []Record
}

// Walk lists every non-ignored file and directory below TargetDirectory,
// sorted by path. Symbolic links to directories are followed once per
// canonical directory. Unreadable directories are logged and skipped.
func Walk(ctx context.Context, options WalkOptions) ([]Record, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	matcher := options.Matcher
	if matcher == nil {
		matcher = ignore.NewMatcher()
	}

	walker := &walkContext{
		context: ctx,
		options: options,
		logger:  logger,
		visited: make(map[string]struct{}),
	}
	canonicalTarget, canonicalError := utils.CanonicalPath(options.TargetDirectory)
	if canonicalError != nil {
		return nil, canonicalError
	}
	walker.visited[canonicalTarget] = struct{}{}

	relativeTarget := utils.RelativePathOrSelf(options.TargetDirectory, options.DocumentRoot)
	if relativeTarget == "." {
		relativeTarget = ""
	}
	if walkError := walker.walkDirectory(options.TargetDirectory, relativeTarget, matcher); walkError != nil {
		return nil, walkError
	}

	sort.Slice(walker.records, func(left, right int) bool {
		return walker.records[left].Path < walker.records[right].Path
	})
	return walker.records, nil
}

func (walker *walkContext) walkDirectory(absolutePath string, relativePath string, matcher *ignore.Matcher) error {
	if contextError := walker.context.Err(); contextError != nil {
		return contextError
	}

	entries, readError := os.ReadDir(absolutePath)
	if readError != nil {
		walker.logger.Warn(WarningDirectoryReadMessage, zap.String("path", absolutePath), zap.Error(readError))
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if utils.IsVersionControlDirectory(name) {
			continue
		}
		childAbsolutePath := filepath.Join(absolutePath, name)
		childRelativePath := utils.JoinRelative(relativePath, name)
		if _, skip := walker.options.SkipPaths[childAbsolutePath]; skip {
			continue
		}

		entryInfo, infoError := resolveEntryInfo(entry, childAbsolutePath)
		if infoError != nil {
			walker.logger.Warn(WarningEntryStatMessage, zap.String("path", childAbsolutePath), zap.Error(infoError))
			continue
		}
		isDirectory := entryInfo.IsDir()
		if !isDirectory && !entryInfo.Mode().IsRegular() {
			walker.logger.Debug(DebugSkippedSpecialFileMessage, zap.String("path", childAbsolutePath))
			continue
		}
		if matcher.DecideEntry(childRelativePath, isDirectory).Ignored {
			continue
		}

		if !isDirectory {
			walker.records = append(walker.records, Record{
				Path:         childRelativePath,
				AbsolutePath: childAbsolutePath,
				SizeBytes:    entryInfo.Size(),
			})
			continue
		}

		canonicalChild, canonicalError := utils.CanonicalPath(childAbsolutePath)
		if canonicalError != nil {
			walker.logger.Warn(WarningEntryStatMessage, zap.String("path", childAbsolutePath), zap.Error(canonicalError))
			continue
		}
		if _, seen := walker.visited[canonicalChild]; seen {
			walker.logger.Debug(DebugSymlinkCycleMessage, zap.String("path", childAbsolutePath), zap.String("target", canonicalChild))
			continue
		}
		walker.visited[canonicalChild] = struct{}{}

		walker.records = append(walker.records, Record{
			Path:         childRelativePath,
			AbsolutePath: childAbsolutePath,
			IsDirectory:  true,
		})
		childMatcher := matcher.Push(walker.options.IgnoreOptions.DirectoryRuleSets(childAbsolutePath, childRelativePath)...)
		if walkError := walker.walkDirectory(childAbsolutePath, childRelativePath, childMatcher); walkError != nil {
			return walkError
		}
	}
	return nil
}

// resolveEntryInfo returns the info of the entry, following symbolic links.
func resolveEntryInfo(entry fs.DirEntry, absolutePath string) (fs.FileInfo, error) {
	if entry.Type()&fs.ModeSymlink != 0 {
		return os.Stat(absolutePath)
	}
	return entry.Info()
}
