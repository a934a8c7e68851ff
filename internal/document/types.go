// Package document models a codebase snapshot and its markup encoding.
package document

import (
	"sort"
)

// EntryKind classifies how an entry's body is represented.
type EntryKind string

const (
	// KindText entries embed their content.
	KindText EntryKind = "text"
	// KindBinary entries carry the binary placeholder.
	KindBinary EntryKind = "binary"
	// KindError entries carry a read-failure description.
	KindError EntryKind = "error"
	// KindDirectory entries appear only in directory-only documents.
	KindDirectory EntryKind = "directory"
)

const (
	// BinaryPlaceholder is the body of binary entries.
	BinaryPlaceholder = "[Binary file]"
	// ErrorBodyFormat formats the body of entries whose content could not be read.
	ErrorBodyFormat = "[Error reading file: %v]"
)

// FileEntry is one path in a snapshot. Path is relative to the document root
// and uses forward slashes.
type FileEntry struct {
	Path      string
	Kind      EntryKind
	Content   string
	Lines     int
	Tokens    int
	SizeBytes int64
	// Counted is false when the token count could not be determined.
	Counted bool
}

// IsDirectory reports whether the entry is a directory.
func (entry FileEntry) IsDirectory() bool {
	return entry.Kind == KindDirectory
}

// CodebaseDocument is the snapshot of one codebase keyed by its canonical root.
type CodebaseDocument struct {
	Root          string
	DirectoryOnly bool
	Entries       []FileEntry
}

// OverLimitFile names a file whose token count exceeds the limit.
type OverLimitFile struct {
	Root      string
	Path      string
	Tokens    int
	SizeBytes int64
}

// Stats aggregates counts over one or more documents. It is never serialized.
type Stats struct {
	Documents int
	// Files counts file entries of content documents.
	Files int
	// StructureEntries counts entries of directory-only documents.
	StructureEntries int
	Lines            int
	Tokens           int
	OverLimit        []OverLimitFile
	// Uncounted lists "root/path" of files whose token count failed.
	Uncounted []string
}

// HasUncounted reports whether any token count is missing from Tokens.
func (stats Stats) HasUncounted() bool {
	return len(stats.Uncounted) > 0
}

// Stats computes the aggregate counts of the document. A non-positive limit
// disables over-limit flagging.
func (codebaseDocument CodebaseDocument) Stats(limit int) Stats {
	stats := Stats{Documents: 1}
	if codebaseDocument.DirectoryOnly {
		stats.StructureEntries = len(codebaseDocument.Entries)
		return stats
	}
	for _, entry := range codebaseDocument.Entries {
		if entry.IsDirectory() {
			continue
		}
		stats.Files++
		stats.Lines += entry.Lines
		stats.Tokens += entry.Tokens
		if !entry.Counted {
			stats.Uncounted = append(stats.Uncounted, joinRootPath(codebaseDocument.Root, entry.Path))
			continue
		}
		if limit > 0 && entry.Tokens > limit {
			stats.OverLimit = append(stats.OverLimit, OverLimitFile{
				Root:      codebaseDocument.Root,
				Path:      entry.Path,
				Tokens:    entry.Tokens,
				SizeBytes: entry.SizeBytes,
			})
		}
	}
	return stats
}

// CombineStats sums stats in order.
func CombineStats(statsList ...Stats) Stats {
	combined := Stats{}
	for _, stats := range statsList {
		combined.Documents += stats.Documents
		combined.Files += stats.Files
		combined.StructureEntries += stats.StructureEntries
		combined.Lines += stats.Lines
		combined.Tokens += stats.Tokens
		combined.OverLimit = append(combined.OverLimit, stats.OverLimit...)
		combined.Uncounted = append(combined.Uncounted, stats.Uncounted...)
	}
	return combined
}

// StatsOf computes combined stats over documents.
func StatsOf(limit int, documents ...CodebaseDocument) Stats {
	statsList := make([]Stats, 0, len(documents))
	for _, codebaseDocument := range documents {
		statsList = append(statsList, codebaseDocument.Stats(limit))
	}
	return CombineStats(statsList...)
}

func joinRootPath(root string, relativePath string) string {
	if root == "" {
		return relativePath
	}
	if root[len(root)-1] == '/' {
		return root + relativePath
	}
	return root + "/" + relativePath
}

func sortEntries(entries []FileEntry) {
	sort.SliceStable(entries, func(left, right int) bool {
		return entries[left].Path < entries[right].Path
	})
}
