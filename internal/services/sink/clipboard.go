package sink

import (
	"fmt"

	"github.com/atotto/clipboard"
)

const (
	clipboardReadErrorFormat  = "read clipboard: %w"
	clipboardWriteErrorFormat = "write clipboard: %w"
)

// ClipboardSink stores output in the system clipboard using github.com/atotto/clipboard.
type ClipboardSink struct{}

// NewClipboardSink constructs a ClipboardSink.
func NewClipboardSink() *ClipboardSink {
	return &ClipboardSink{}
}

// Read returns the clipboard text.
func (sink *ClipboardSink) Read() (string, error) {
	if clipboard.Unsupported {
		return "", ErrSinkUnavailable
	}
	text, readError := clipboard.ReadAll()
	if readError != nil {
		return "", fmt.Errorf(clipboardReadErrorFormat, readError)
	}
	return text, nil
}

// Write replaces the clipboard text.
func (sink *ClipboardSink) Write(text string) error {
	if clipboard.Unsupported {
		return ErrSinkUnavailable
	}
	if writeError := clipboard.WriteAll(text); writeError != nil {
		return fmt.Errorf(clipboardWriteErrorFormat, writeError)
	}
	return nil
}

var _ Sink = (*ClipboardSink)(nil)
