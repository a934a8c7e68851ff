package sink

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	fileReadErrorFormat  = "read %s: %w"
	fileWriteErrorFormat = "write %s: %w"
	outputFilePermission = 0o644
)

// FileSink stores output in a file. A missing file reads as empty.
type FileSink struct {
	Path string
}

// NewFileSink constructs a FileSink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// Read returns the file content.
//
// #nosec G304
func (sink *FileSink) Read() (string, error) {
	content, readError := os.ReadFile(sink.Path)
	if readError != nil {
		if os.IsNotExist(readError) {
			return "", nil
		}
		return "", fmt.Errorf(fileReadErrorFormat, sink.Path, readError)
	}
	return string(content), nil
}

// Write replaces the file content through a temporary file in the same directory.
func (sink *FileSink) Write(text string) error {
	directory := filepath.Dir(sink.Path)
	temporaryFile, createError := os.CreateTemp(directory, "."+filepath.Base(sink.Path)+".*")
	if createError != nil {
		return fmt.Errorf(fileWriteErrorFormat, sink.Path, createError)
	}
	temporaryPath := temporaryFile.Name()
	if _, writeError := temporaryFile.WriteString(text); writeError != nil {
		temporaryFile.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf(fileWriteErrorFormat, sink.Path, writeError)
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf(fileWriteErrorFormat, sink.Path, closeError)
	}
	if chmodError := os.Chmod(temporaryPath, outputFilePermission); chmodError != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf(fileWriteErrorFormat, sink.Path, chmodError)
	}
	if renameError := os.Rename(temporaryPath, sink.Path); renameError != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf(fileWriteErrorFormat, sink.Path, renameError)
	}
	return nil
}

var _ Sink = (*FileSink)(nil)
