package utils

import (
	"os"
	"path/filepath"
)

// CanonicalPath returns the absolute, symlink-resolved form of path.
// When symlinks cannot be resolved the cleaned absolute path is returned.
func CanonicalPath(path string) (string, error) {
	absolutePath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		return "", absoluteError
	}
	resolvedPath, resolveError := filepath.EvalSymlinks(absolutePath)
	if resolveError != nil {
		return filepath.Clean(absolutePath), nil
	}
	return filepath.Clean(resolvedPath), nil
}

// FindRepositoryRoot searches upward from startDirectory for a directory containing
// a .git entry and returns that directory. The second result is false when no
// repository encloses startDirectory.
func FindRepositoryRoot(startDirectory string) (string, bool) {
	currentDirectory, canonicalError := CanonicalPath(startDirectory)
	if canonicalError != nil {
		return "", false
	}
	for {
		gitPath := filepath.Join(currentDirectory, GitDirectoryName)
		if _, statError := os.Stat(gitPath); statError == nil {
			return currentDirectory, true
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", false
		}
		currentDirectory = parentDirectory
	}
}

// ResolveDocumentRoot returns the canonical root under which a snapshot of
// targetDirectory is keyed: the enclosing repository root when one exists,
// otherwise targetDirectory itself.
func ResolveDocumentRoot(targetDirectory string) (string, bool, error) {
	canonicalTarget, canonicalError := CanonicalPath(targetDirectory)
	if canonicalError != nil {
		return "", false, canonicalError
	}
	if repositoryRoot, found := FindRepositoryRoot(canonicalTarget); found {
		return repositoryRoot, true, nil
	}
	return canonicalTarget, false, nil
}
