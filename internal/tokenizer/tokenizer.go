// Package tokenizer estimates token and line counts for snapshot entries.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters provided by the CLI.
type Config struct {
	// Model is either a tiktoken encoding name or a model name resolved through tiktoken.
	Model string
}

const (
	// DefaultEncodingName is used when no model is configured.
	DefaultEncodingName  = "o200k_base"
	fallbackEncodingName = "cl100k_base"
)

const (
	initializeEncodingErrorFormat = "initialize tokenizer %s: %w"
)

var knownEncodingNames = map[string]struct{}{
	"o200k_base":  {},
	"cl100k_base": {},
	"p50k_base":   {},
	"p50k_edit":   {},
	"r50k_base":   {},
}

// NewCounter returns a Counter for the requested model or encoding together with
// the name of the encoding actually in use. Unknown model names fall back to
// cl100k_base.
func NewCounter(cfg Config) (Counter, string, error) {
	model := strings.ToLower(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = DefaultEncodingName
	}

	if _, isEncodingName := knownEncodingNames[model]; isEncodingName {
		encoding, encodingError := tiktoken.GetEncoding(model)
		if encodingError != nil {
			return nil, "", fmt.Errorf(initializeEncodingErrorFormat, model, encodingError)
		}
		return encodingCounter{encoding: encoding, name: model}, model, nil
	}

	encoding, modelError := tiktoken.EncodingForModel(model)
	if modelError == nil && encoding != nil {
		return encodingCounter{encoding: encoding, name: model}, model, nil
	}
	fallback, fallbackError := tiktoken.GetEncoding(fallbackEncodingName)
	if fallbackError != nil {
		return nil, "", fmt.Errorf(initializeEncodingErrorFormat, fallbackEncodingName, fallbackError)
	}
	return encodingCounter{encoding: fallback, name: fallbackEncodingName}, fallbackEncodingName, nil
}

// UnavailableCounter reports the same error for every input. It stands in for a
// tokenizer that could not be initialized so that every file is reported uncounted.
type UnavailableCounter struct {
	Cause error
}

// Name identifies the counter.
func (counter UnavailableCounter) Name() string {
	return "unavailable"
}

// CountString always fails with the initialization error.
func (counter UnavailableCounter) CountString(string) (int, error) {
	return 0, counter.Cause
}
