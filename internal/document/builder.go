package document

import (
	"strings"
	"unicode/utf8"
)

// Build assembles a document from entries in any order. Entries are sorted by
// path; when the same path occurs more than once the first occurrence is kept.
// Paths, the root, and text content are sanitized for the markup.
func Build(root string, directoryOnly bool, entries []FileEntry) CodebaseDocument {
	sortedEntries := make([]FileEntry, len(entries))
	for index, entry := range entries {
		entry.Path = SanitizeText(entry.Path)
		sortedEntries[index] = entry
	}
	sortEntries(sortedEntries)

	uniqueEntries := make([]FileEntry, 0, len(sortedEntries))
	for _, entry := range sortedEntries {
		if count := len(uniqueEntries); count > 0 && uniqueEntries[count-1].Path == entry.Path {
			continue
		}
		if directoryOnly {
			entry = structureEntry(entry)
		} else {
			entry.Content = SanitizeText(entry.Content)
		}
		uniqueEntries = append(uniqueEntries, entry)
	}

	return CodebaseDocument{
		Root:          SanitizeText(root),
		DirectoryOnly: directoryOnly,
		Entries:       uniqueEntries,
	}
}

// structureEntry strips everything but the path and the directory distinction.
func structureEntry(entry FileEntry) FileEntry {
	kind := KindText
	if entry.IsDirectory() {
		kind = KindDirectory
	}
	return FileEntry{Path: entry.Path, Kind: kind}
}

// SanitizeText replaces invalid UTF-8 and characters that XML 1.0 cannot carry
// with U+FFFD. Valid input is returned unchanged.
func SanitizeText(text string) string {
	if isMarkupSafe(text) {
		return text
	}
	var builder strings.Builder
	builder.Grow(len(text))
	for offset := 0; offset < len(text); {
		runeValue, runeWidth := utf8.DecodeRuneInString(text[offset:])
		if (runeValue == utf8.RuneError && runeWidth == 1) || !isMarkupRune(runeValue) {
			builder.WriteRune(utf8.RuneError)
		} else {
			builder.WriteString(text[offset : offset+runeWidth])
		}
		offset += runeWidth
	}
	return builder.String()
}

func isMarkupSafe(text string) bool {
	for offset := 0; offset < len(text); {
		runeValue, runeWidth := utf8.DecodeRuneInString(text[offset:])
		if runeValue == utf8.RuneError && runeWidth == 1 {
			return false
		}
		if !isMarkupRune(runeValue) {
			return false
		}
		offset += runeWidth
	}
	return true
}

// isMarkupRune reports whether r is a legal XML 1.0 character.
func isMarkupRune(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= utf8.MaxRune:
		return true
	default:
		return false
	}
}
