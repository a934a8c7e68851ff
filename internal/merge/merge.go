// Package merge folds a freshly built codebase document into previously
// produced output without disturbing unrelated text around it.
package merge

import (
	"strings"

	"github.com/TwoAbove/lc/internal/document"
)

// State is prior output decomposed into the container's documents and the
// opaque text around it.
type State struct {
	// Preamble is the text before the container, or all prior text when no
	// container could be recovered.
	Preamble     string
	Instructions string
	// Documents holds at most one document per root, in first-seen order.
	Documents []document.CodebaseDocument
	Epilogue  string
}

// Decompose splits prior output into a State. The container is the last span
// from a container open tag to the first close tag after it that parses; when
// there is none, the whole text becomes the preamble.
func Decompose(prior string) State {
	return decompose(prior, "")
}

// decompose picks the latest container holding root, falling back to the latest
// container. Text outside the chosen container is kept verbatim.
func decompose(prior string, root string) State {
	spans := containerSpans(prior)
	if len(spans) == 0 {
		return State{Preamble: prior}
	}
	chosen := spans[0]
	if root != "" {
		for _, span := range spans {
			if span.holds(root) {
				chosen = span
				break
			}
		}
	}

	state := State{
		Preamble:     prior[:chosen.start],
		Instructions: chosen.parsed.Instructions,
		Epilogue:     prior[chosen.end:],
	}
	for _, codebaseDocument := range chosen.parsed.Documents {
		if state.indexOf(codebaseDocument.Root) >= 0 {
			continue
		}
		state.Documents = append(state.Documents, codebaseDocument)
	}
	return state
}

type containerSpan struct {
	start  int
	end    int
	parsed document.ParsedContainer
}

func (span containerSpan) holds(root string) bool {
	for _, codebaseDocument := range span.parsed.Documents {
		if codebaseDocument.Root == root {
			return true
		}
	}
	return false
}

// containerSpans lists the parseable containers in prior, latest first. Each
// open tag is paired with the nearest close tag that yields a valid container;
// open tags inside an accepted span are not considered again.
func containerSpans(prior string) []containerSpan {
	var spans []containerSpan
	searchEnd := len(prior)
	for searchEnd > 0 {
		openIndex := strings.LastIndex(prior[:searchEnd], document.ContainerOpenTag)
		if openIndex < 0 {
			break
		}
		searchEnd = openIndex
		if span, found := pairContainer(prior, openIndex); found {
			if len(spans) > 0 && span.end > spans[len(spans)-1].start {
				continue
			}
			spans = append(spans, span)
		}
	}
	return spans
}

func pairContainer(prior string, openIndex int) (containerSpan, bool) {
	searchStart := openIndex + len(document.ContainerOpenTag)
	for {
		closeOffset := strings.Index(prior[searchStart:], document.ContainerCloseTag)
		if closeOffset < 0 {
			return containerSpan{}, false
		}
		closeIndex := searchStart + closeOffset + len(document.ContainerCloseTag)
		if parsed, ok := document.Parse(prior[openIndex:closeIndex]); ok {
			return containerSpan{start: openIndex, end: closeIndex, parsed: parsed}, true
		}
		searchStart = closeIndex
	}
}

// Upsert replaces the document with the same root in place, or appends it.
// Roots are compared for exact equality.
func (state *State) Upsert(codebaseDocument document.CodebaseDocument) {
	if index := state.indexOf(codebaseDocument.Root); index >= 0 {
		state.Documents[index] = codebaseDocument
		return
	}
	state.Documents = append(state.Documents, codebaseDocument)
}

// Render serializes the state. A newline separates a non-empty preamble from
// the container unless the preamble already ends with one.
func (state State) Render() string {
	var builder strings.Builder
	builder.WriteString(state.Preamble)
	if state.Preamble != "" && !strings.HasSuffix(state.Preamble, "\n") {
		builder.WriteString("\n")
	}
	builder.WriteString(document.Serialize(state.Instructions, state.Documents))
	builder.WriteString(state.Epilogue)
	return builder.String()
}

// Merge folds codebaseDocument into prior output and returns the new output
// together with the resulting state. When prior holds several containers, the
// latest one already holding the document's root is updated. Merging the same document into its own
// output returns that output unchanged.
func Merge(prior string, codebaseDocument document.CodebaseDocument) (string, State) {
	state := decompose(prior, codebaseDocument.Root)
	state.Upsert(codebaseDocument)
	return state.Render(), state
}

func (state State) indexOf(root string) int {
	for index, existing := range state.Documents {
		if existing.Root == root {
			return index
		}
	}
	return -1
}
