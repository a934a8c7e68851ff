package utils

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SniffLength defines the maximum number of bytes inspected when detecting binary content.
const SniffLength = 8000

// nonPrintableRatioThreshold is the share of non-printable content above which a sample is binary.
const nonPrintableRatioThreshold = 0.30

// Classification is the outcome of binary detection.
type Classification int

const (
	// ClassificationText marks content that is embedded verbatim.
	ClassificationText Classification = iota
	// ClassificationBinary marks content replaced by a placeholder.
	ClassificationBinary
)

// binaryExtensions lists file suffixes that are always treated as binary without reading content.
var binaryExtensions = []string{
	".wasm", ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".svg", ".webp", ".tiff", ".tff",
	".woff", ".woff2", ".tif", ".psd", ".raw", ".heif", ".indd", ".ai", ".eps", ".pdf", ".docx",
	".pptx", ".xlsx", ".mp3", ".flac", ".wav", ".aac", ".wma", ".ogg", ".mp4", ".m4a", ".mkv",
	".webm", ".avi", ".mov", ".wmv", ".mpg", ".mpeg", ".flv", ".3gp", ".zip", ".rar", ".7z",
	".gz", ".tar", ".tgz", ".bz2", ".xz", ".lz", ".lz4", ".lzo", ".zst", ".zstd", ".z",
}

// printableControlRunes are control characters that commonly appear in text files.
var printableControlRunes = map[rune]struct{}{
	'\t':   {},
	'\n':   {},
	'\r':   {},
	'\f':   {},
	'\v':   {},
	'\b':   {},
	'\x1b': {},
}

// HasBinaryExtension reports whether path ends with a known binary extension.
// Multi-part suffixes such as ".tar.gz" are covered by their final component.
func HasBinaryExtension(path string) bool {
	lowerName := strings.ToLower(filepath.Base(path))
	for _, extension := range binaryExtensions {
		if strings.HasSuffix(lowerName, extension) {
			return true
		}
	}
	return false
}

// ClassifyContent decides whether a file is embedded as text or replaced by a binary placeholder.
// Known binary extensions short-circuit; otherwise the bounded prefix of sample is inspected.
func ClassifyContent(path string, sample []byte) Classification {
	if HasBinaryExtension(path) {
		return ClassificationBinary
	}
	if IsBinary(sample) {
		return ClassificationBinary
	}
	return ClassificationText
}

// IsBinary reports whether the provided byte slice appears to contain binary data.
// Only the first SniffLength bytes are inspected. A NUL byte or a high ratio of
// non-printable content marks the data as binary; empty data is text.
func IsBinary(data []byte) bool {
	truncated := false
	if len(data) > SniffLength {
		data = data[:SniffLength]
		truncated = true
	}
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}

	nonPrintable := 0
	for offset := 0; offset < len(data); {
		runeValue, runeWidth := utf8.DecodeRune(data[offset:])
		if runeValue == utf8.RuneError && runeWidth == 1 {
			if truncated && !utf8.FullRune(data[offset:]) {
				break
			}
			nonPrintable++
		} else if unicode.IsControl(runeValue) {
			if _, allowed := printableControlRunes[runeValue]; !allowed {
				nonPrintable += runeWidth
			}
		}
		offset += runeWidth
	}
	return float64(nonPrintable)/float64(len(data)) > nonPrintableRatioThreshold
}

// ReadSample reads up to SniffLength bytes from the file at path.
func ReadSample(path string) ([]byte, error) {
	fileHandle, openError := os.Open(path)
	if openError != nil {
		return nil, openError
	}
	defer fileHandle.Close()

	buffer := make([]byte, SniffLength)
	bytesRead, readError := io.ReadFull(fileHandle, buffer)
	if readError != nil && readError != io.EOF && readError != io.ErrUnexpectedEOF {
		return nil, readError
	}
	return buffer[:bytesRead], nil
}
