package commands

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/TwoAbove/lc/internal/utils"
)

// ChangeFilter returns a predicate reporting whether a change to an absolute
// path can affect the snapshot described by options. Paths outside the target,
// paths ignored by the target's rules and the excluded paths never qualify.
// Nested ignore files are not consulted, so the predicate may over-report.
func ChangeFilter(options SnapshotOptions, excludedPaths ...string) (func(absolutePath string, isDirectory bool) bool, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scope, scopeError := resolveScope(options, logger)
	if scopeError != nil {
		return nil, scopeError
	}

	excluded := canonicalPathSet(excludedPaths)

	targetRelative := utils.RelativePathOrSelf(scope.targetDirectory, scope.documentRoot)
	return func(absolutePath string, isDirectory bool) bool {
		canonical := canonicalOrSelf(absolutePath)
		if isExcludedPath(canonical, excluded) {
			return false
		}
		relativePath, relError := filepath.Rel(scope.documentRoot, canonical)
		if relError != nil {
			return false
		}
		relativePath = filepath.ToSlash(relativePath)
		if relativePath == ".." || strings.HasPrefix(relativePath, "../") {
			return false
		}
		if relativePath == "." {
			return true
		}
		if targetRelative != "." && relativePath != targetRelative && !isBelow(relativePath, targetRelative) {
			return false
		}
		return !scope.matcher.Decide(relativePath, isDirectory).Ignored
	}, nil
}

// isExcludedPath matches an excluded path and the temporary siblings written
// while it is replaced.
func isExcludedPath(path string, excluded map[string]struct{}) bool {
	if _, skip := excluded[path]; skip {
		return true
	}
	for excludedPath := range excluded {
		if filepath.Dir(excludedPath) == filepath.Dir(path) && strings.HasPrefix(filepath.Base(path), "."+filepath.Base(excludedPath)+".") {
			return true
		}
	}
	return false
}

// canonicalOrSelf resolves symbolic links, falling back to the parent
// directory so that removed paths still compare equal to their canonical form.
func canonicalOrSelf(path string) string {
	if resolved, resolveError := filepath.EvalSymlinks(path); resolveError == nil {
		return filepath.Clean(resolved)
	}
	if parent, parentError := filepath.EvalSymlinks(filepath.Dir(path)); parentError == nil {
		return filepath.Join(parent, filepath.Base(path))
	}
	return filepath.Clean(path)
}

func isBelow(relativePath string, directory string) bool {
	return len(relativePath) > len(directory) && relativePath[:len(directory)] == directory && relativePath[len(directory)] == '/'
}
