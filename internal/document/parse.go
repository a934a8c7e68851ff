package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	errMissingContainer = errors.New("container element not found")
	errMissingRootPath  = errors.New("codebase element without path")
	errMissingEntryPath = errors.New("entry element without path")
)

const invalidAttributeErrorFormat = "invalid %s attribute %q: %w"

// ParsedContainer is the structured content of a serialized container.
type ParsedContainer struct {
	Instructions string
	Documents    []CodebaseDocument
}

// Parse decodes a serialized container. The boolean result is false when text
// is not a well-formed container; unknown elements inside it are skipped.
func Parse(text string) (ParsedContainer, bool) {
	parsed, parseError := decodeContainer(text)
	if parseError != nil {
		return ParsedContainer{}, false
	}
	return parsed, true
}

func decodeContainer(text string) (ParsedContainer, error) {
	decoder := xml.NewDecoder(strings.NewReader(text))
	decoder.Strict = true

	if findError := findContainerStart(decoder); findError != nil {
		return ParsedContainer{}, findError
	}

	parsed := ParsedContainer{}
	for {
		token, tokenError := decoder.Token()
		if tokenError != nil {
			return ParsedContainer{}, tokenError
		}
		switch typedToken := token.(type) {
		case xml.StartElement:
			switch typedToken.Name.Local {
			case InstructionsElement:
				body, readError := readBody(decoder)
				if readError != nil {
					return ParsedContainer{}, readError
				}
				parsed.Instructions = strings.TrimSpace(body)
			case CodebaseElement:
				codebaseDocument, codebaseError := decodeCodebase(decoder, typedToken)
				if codebaseError != nil {
					return ParsedContainer{}, codebaseError
				}
				parsed.Documents = append(parsed.Documents, codebaseDocument)
			default:
				if skipError := decoder.Skip(); skipError != nil {
					return ParsedContainer{}, skipError
				}
			}
		case xml.EndElement:
			return parsed, nil
		}
	}
}

// findContainerStart consumes tokens up to and including the container start element.
// Only whitespace, comments, and processing instructions may precede it.
func findContainerStart(decoder *xml.Decoder) error {
	for {
		token, tokenError := decoder.Token()
		if tokenError != nil {
			if errors.Is(tokenError, io.EOF) {
				return errMissingContainer
			}
			return tokenError
		}
		switch typedToken := token.(type) {
		case xml.StartElement:
			if typedToken.Name.Local != ContainerElement {
				return errMissingContainer
			}
			return nil
		case xml.CharData:
			if strings.TrimSpace(string(typedToken)) != "" {
				return errMissingContainer
			}
		}
	}
}

func decodeCodebase(decoder *xml.Decoder, start xml.StartElement) (CodebaseDocument, error) {
	root, hasRoot := attributeValue(start, pathAttribute)
	if !hasRoot || root == "" {
		return CodebaseDocument{}, errMissingRootPath
	}
	mode, _ := attributeValue(start, modeAttribute)
	codebaseDocument := CodebaseDocument{Root: root, DirectoryOnly: mode == directoryModeValue}

	for {
		token, tokenError := decoder.Token()
		if tokenError != nil {
			return CodebaseDocument{}, tokenError
		}
		switch typedToken := token.(type) {
		case xml.StartElement:
			switch typedToken.Name.Local {
			case FileElement, DirectoryElement:
				entry, entryError := decodeEntry(decoder, typedToken, codebaseDocument.DirectoryOnly)
				if entryError != nil {
					return CodebaseDocument{}, entryError
				}
				codebaseDocument.Entries = append(codebaseDocument.Entries, entry)
			default:
				if skipError := decoder.Skip(); skipError != nil {
					return CodebaseDocument{}, skipError
				}
			}
		case xml.EndElement:
			return codebaseDocument, nil
		}
	}
}

func decodeEntry(decoder *xml.Decoder, start xml.StartElement, directoryOnly bool) (FileEntry, error) {
	entryPath, hasPath := attributeValue(start, pathAttribute)
	if !hasPath || entryPath == "" {
		return FileEntry{}, errMissingEntryPath
	}
	body, readError := readBody(decoder)
	if readError != nil {
		return FileEntry{}, readError
	}

	if start.Name.Local == DirectoryElement {
		return FileEntry{Path: entryPath, Kind: KindDirectory}, nil
	}
	if directoryOnly {
		return FileEntry{Path: entryPath, Kind: KindText}, nil
	}

	entry := FileEntry{Path: entryPath, Kind: KindText, Content: body}
	if kind, hasKind := attributeValue(start, kindAttribute); hasKind {
		switch EntryKind(kind) {
		case KindBinary, KindError:
			entry.Kind = EntryKind(kind)
		}
	}
	if tokensText, hasTokens := attributeValue(start, tokensAttribute); hasTokens {
		tokens, conversionError := strconv.Atoi(tokensText)
		if conversionError != nil {
			return FileEntry{}, fmt.Errorf(invalidAttributeErrorFormat, tokensAttribute, tokensText, conversionError)
		}
		entry.Tokens = tokens
		entry.Counted = true
	}
	if linesText, hasLines := attributeValue(start, linesAttribute); hasLines {
		lines, conversionError := strconv.Atoi(linesText)
		if conversionError != nil {
			return FileEntry{}, fmt.Errorf(invalidAttributeErrorFormat, linesAttribute, linesText, conversionError)
		}
		entry.Lines = lines
	}
	if sizeText, hasSize := attributeValue(start, sizeAttribute); hasSize {
		size, conversionError := strconv.ParseInt(sizeText, 10, 64)
		if conversionError != nil {
			return FileEntry{}, fmt.Errorf(invalidAttributeErrorFormat, sizeAttribute, sizeText, conversionError)
		}
		entry.SizeBytes = size
	}
	return entry, nil
}

// readBody collects character data up to the end of the current element,
// skipping any nested elements.
func readBody(decoder *xml.Decoder) (string, error) {
	var builder strings.Builder
	for {
		token, tokenError := decoder.Token()
		if tokenError != nil {
			return "", tokenError
		}
		switch typedToken := token.(type) {
		case xml.CharData:
			builder.Write(typedToken)
		case xml.StartElement:
			if skipError := decoder.Skip(); skipError != nil {
				return "", skipError
			}
		case xml.EndElement:
			return builder.String(), nil
		}
	}
}

func attributeValue(start xml.StartElement, name string) (string, bool) {
	for _, attribute := range start.Attr {
		if attribute.Name.Local == name {
			return attribute.Value, true
		}
	}
	return "", false
}
