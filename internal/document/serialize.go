package document

import (
	"strconv"
	"strings"
)

// Markup element and attribute names.
const (
	ContainerElement    = "lc"
	InstructionsElement = "instructions"
	CodebaseElement     = "codebase"
	FileElement         = "file"
	DirectoryElement    = "directory"

	pathAttribute   = "path"
	modeAttribute   = "mode"
	kindAttribute   = "kind"
	tokensAttribute = "tokens"
	linesAttribute  = "lines"
	sizeAttribute   = "size"

	directoryModeValue = "directory"
)

// ContainerOpenTag and ContainerCloseTag delimit the serialized container.
const (
	ContainerOpenTag  = "<" + ContainerElement + ">"
	ContainerCloseTag = "</" + ContainerElement + ">"
)

// DefaultInstructions describes the markup to the reader of the assembled context.
const DefaultInstructions = `This document contains a representation of one or more codebases.
Each codebase element carries the absolute root path of the project in its path attribute.
Each file element carries the path of the file relative to that root, and its body holds the file contents with &, less-than and greater-than signs escaped.
Files marked kind="binary" contain a placeholder instead of their contents; files marked kind="error" could not be read.
Codebases marked mode="directory" list directory and file elements without contents.`

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\r", "&#xD;",
	)
	attributeEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\r", "&#xD;",
		"\n", "&#xA;",
		"\t", "&#x9;",
	)
)

// EscapeText escapes text for an element body. Newlines are kept literal.
func EscapeText(text string) string {
	return textEscaper.Replace(text)
}

// EscapeAttribute escapes text for a double-quoted attribute value.
func EscapeAttribute(text string) string {
	return attributeEscaper.Replace(text)
}

// Serialize renders the container holding instructions and every document in order.
// Empty instructions are replaced by DefaultInstructions.
func Serialize(instructions string, documents []CodebaseDocument) string {
	trimmedInstructions := strings.TrimSpace(instructions)
	if trimmedInstructions == "" {
		trimmedInstructions = DefaultInstructions
	}

	var builder strings.Builder
	builder.WriteString(ContainerOpenTag)
	builder.WriteString("\n")
	builder.WriteString("<" + InstructionsElement + ">\n")
	builder.WriteString(EscapeText(SanitizeText(trimmedInstructions)))
	builder.WriteString("\n</" + InstructionsElement + ">\n")
	for _, codebaseDocument := range documents {
		writeCodebase(&builder, codebaseDocument)
	}
	builder.WriteString(ContainerCloseTag)
	return builder.String()
}

func writeCodebase(builder *strings.Builder, codebaseDocument CodebaseDocument) {
	builder.WriteString("<" + CodebaseElement)
	writeAttribute(builder, pathAttribute, codebaseDocument.Root)
	if codebaseDocument.DirectoryOnly {
		writeAttribute(builder, modeAttribute, directoryModeValue)
	}
	builder.WriteString(">\n")
	for _, entry := range codebaseDocument.Entries {
		if codebaseDocument.DirectoryOnly {
			writeStructureEntry(builder, entry)
		} else {
			writeContentEntry(builder, entry)
		}
		builder.WriteString("\n")
	}
	builder.WriteString("</" + CodebaseElement + ">\n")
}

func writeStructureEntry(builder *strings.Builder, entry FileEntry) {
	elementName := FileElement
	if entry.IsDirectory() {
		elementName = DirectoryElement
	}
	builder.WriteString("<" + elementName)
	writeAttribute(builder, pathAttribute, entry.Path)
	builder.WriteString("/>")
}

func writeContentEntry(builder *strings.Builder, entry FileEntry) {
	builder.WriteString("<" + FileElement)
	writeAttribute(builder, pathAttribute, entry.Path)
	switch entry.Kind {
	case KindBinary, KindError:
		writeAttribute(builder, kindAttribute, string(entry.Kind))
	}
	if entry.Counted {
		writeAttribute(builder, tokensAttribute, strconv.Itoa(entry.Tokens))
	}
	if entry.Kind == KindText || entry.Kind == "" {
		writeAttribute(builder, linesAttribute, strconv.Itoa(entry.Lines))
	}
	if entry.Kind != KindError {
		writeAttribute(builder, sizeAttribute, strconv.FormatInt(entry.SizeBytes, 10))
	}
	builder.WriteString(">")
	builder.WriteString(EscapeText(entry.Content))
	builder.WriteString("</" + FileElement + ">")
}

func writeAttribute(builder *strings.Builder, name string, value string) {
	builder.WriteString(" ")
	builder.WriteString(name)
	builder.WriteString(`="`)
	builder.WriteString(EscapeAttribute(value))
	builder.WriteString(`"`)
}
