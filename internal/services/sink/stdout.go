package sink

import (
	"io"
	"os"
)

// StdoutSink writes output to a stream and never has prior content, so every
// run produces a container holding only the new document.
type StdoutSink struct {
	Writer io.Writer
}

// NewStdoutSink constructs a StdoutSink writing to os.Stdout.
func NewStdoutSink() *StdoutSink {
	return &StdoutSink{Writer: os.Stdout}
}

// Read always returns an empty string.
func (sink *StdoutSink) Read() (string, error) {
	return "", nil
}

// Write prints text followed by a newline.
func (sink *StdoutSink) Write(text string) error {
	writer := sink.Writer
	if writer == nil {
		writer = os.Stdout
	}
	_, writeError := io.WriteString(writer, text+"\n")
	return writeError
}

var _ Sink = (*StdoutSink)(nil)
