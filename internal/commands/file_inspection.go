package commands

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/TwoAbove/lc/internal/document"
	"github.com/TwoAbove/lc/internal/tokenizer"
	"github.com/TwoAbove/lc/internal/utils"
)

type fileInspectionConfig struct {
	Accountant   tokenizer.Accountant
	ForcedBinary bool
	Logger       *zap.Logger
}

// inspectFile turns a file record into a document entry. Only a bounded
// sample is read before a file is classified. Read failures never abort; they
// produce an error entry describing the failure.
func inspectFile(record Record, config fileInspectionConfig) document.FileEntry {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if config.ForcedBinary || utils.HasBinaryExtension(record.Path) {
		return placeholderEntry(record, document.KindBinary, document.BinaryPlaceholder, config.Accountant)
	}

	sample, sampleError := utils.ReadSample(record.AbsolutePath)
	if sampleError != nil {
		return readFailureEntry(record, sampleError, config.Accountant, logger)
	}
	if utils.ClassifyContent(record.Path, sample) == utils.ClassificationBinary {
		return placeholderEntry(record, document.KindBinary, document.BinaryPlaceholder, config.Accountant)
	}

	// #nosec G304
	fileBytes, readError := os.ReadFile(record.AbsolutePath)
	if readError != nil {
		return readFailureEntry(record, readError, config.Accountant, logger)
	}
	record.SizeBytes = int64(len(fileBytes))

	content := document.SanitizeText(string(fileBytes))
	accounting := config.Accountant.Account(content)
	logAccounting(logger, record, accounting)
	return document.FileEntry{
		Path:      record.Path,
		Kind:      document.KindText,
		Content:   content,
		Lines:     accounting.Lines,
		Tokens:    accounting.Tokens,
		SizeBytes: record.SizeBytes,
		Counted:   accounting.Counted,
	}
}

func readFailureEntry(record Record, readError error, accountant tokenizer.Accountant, logger *zap.Logger) document.FileEntry {
	logger.Warn(WarningFileReadMessage, zap.String("path", record.AbsolutePath), zap.Error(readError))
	return placeholderEntry(record, document.KindError, fmt.Sprintf(document.ErrorBodyFormat, readError), accountant)
}

// placeholderEntry builds an entry whose body stands in for the file content.
// The body is token-counted but contributes no lines.
func placeholderEntry(record Record, kind document.EntryKind, body string, accountant tokenizer.Accountant) document.FileEntry {
	accounting := accountant.Account(body)
	entry := document.FileEntry{
		Path:    record.Path,
		Kind:    kind,
		Content: body,
		Tokens:  accounting.Tokens,
		Counted: accounting.Counted,
	}
	if kind != document.KindError {
		entry.SizeBytes = record.SizeBytes
	}
	return entry
}

func logAccounting(logger *zap.Logger, record Record, accounting tokenizer.Accounting) {
	switch {
	case !accounting.Counted:
		logger.Warn(WarningTokenCountMessage, zap.String("path", record.Path), zap.Error(accounting.Err))
	case accounting.OverLimit:
		logger.Debug(DebugOverLimitMessage, zap.String("path", record.Path), zap.Int("tokens", accounting.Tokens))
	}
}
