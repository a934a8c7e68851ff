// Package utils contains general helper functions used across the lc tool.
package utils

import (
	"path/filepath"
)

// File and directory names used across the project.
const (
	// ToolIgnoreFileName is the name of the tool-specific ignore file.
	ToolIgnoreFileName = ".repoignore"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// GitExcludeRelativePath locates the repository-local exclude file under the Git directory.
	GitExcludeRelativePath = "info/exclude"
	// ConfigFileName is the name of the configuration file, both local and global.
	ConfigFileName = ".lc.yaml"
	// GlobalConfigDirectoryName is the directory under the home directory holding global configuration.
	GlobalConfigDirectoryName = ".lc"
)

const pathSegmentSeparator = "/"

// versionControlDirectories are skipped unconditionally during traversal.
var versionControlDirectories = map[string]struct{}{
	GitDirectoryName: {},
	".hg":            {},
	".svn":           {},
	".bzr":           {},
	".repo":          {},
}

// IsVersionControlDirectory reports whether name is a version-control metadata directory.
func IsVersionControlDirectory(name string) bool {
	_, exists := versionControlDirectories[name]
	return exists
}

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}


// RelativePathOrSelf calculates the forward-slash relative path from root to fullPath.
// Returns the cleaned fullPath if relative calculation fails.
// Returns "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, err := filepath.Abs(root)
	if err != nil {
		return cleanPath
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)

	if cleanPath == cleanAbsoluteRoot {
		return "."
	}

	relativePath, relErr := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relErr != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// JoinRelative joins forward-slash relative path segments, treating "" and "." as the root.
func JoinRelative(parent, name string) string {
	if parent == "" || parent == "." {
		return name
	}
	return parent + pathSegmentSeparator + name
}
