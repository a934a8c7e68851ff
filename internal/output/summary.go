package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/TwoAbove/lc/internal/document"
)

const (
	uncountedTokensSuffix = " + ???"
	overLimitHeader       = "Files exceeding token limit:"
	uncountedHeader       = "Files with failed token counts:"
	overLimitLineFormat   = "%s: %s tokens"
	sizeSuffixFormat      = " (%s)"
	totalLabelFormat      = "total (%d codebases)"
	noColorEnvironmentKey = "NO_COLOR"

	colorGreen   = "2"
	colorYellow  = "3"
	colorMagenta = "5"
	colorRed     = "1"
)

// Summary describes one invocation for the report printed after a run.
type Summary struct {
	// Root is the document root of the codebase written by this run.
	Root string
	// DirectoryOnly reports whether this run produced a structure-only document.
	DirectoryOnly bool
	// Current holds the stats of the document written by this run.
	Current document.Stats
	// Merged holds the stats over every codebase in the final buffer.
	Merged document.Stats
}

// SummaryStyles renders the individual parts of a summary.
type SummaryStyles struct {
	Files    func(...string) string
	Lines    func(...string) string
	Tokens   func(...string) string
	Heading  func(...string) string
	FilePath func(...string) string
}

// PlainSummaryStyles leaves every part unstyled.
func PlainSummaryStyles() SummaryStyles {
	plain := func(parts ...string) string { return strings.Join(parts, " ") }
	return SummaryStyles{Files: plain, Lines: plain, Tokens: plain, Heading: plain, FilePath: plain}
}

// ColorSummaryStyles colors the counts the way a terminal user expects.
func ColorSummaryStyles(writer io.Writer) SummaryStyles {
	renderer := lipgloss.NewRenderer(writer)
	return SummaryStyles{
		Files:    renderer.NewStyle().Foreground(lipgloss.Color(colorGreen)).Render,
		Lines:    renderer.NewStyle().Foreground(lipgloss.Color(colorYellow)).Render,
		Tokens:   renderer.NewStyle().Foreground(lipgloss.Color(colorMagenta)).Render,
		Heading:  renderer.NewStyle().Foreground(lipgloss.Color(colorRed)).Bold(true).Render,
		FilePath: renderer.NewStyle().Foreground(lipgloss.Color(colorYellow)).Render,
	}
}

// StylesFor picks colored styles when writer is a terminal and NO_COLOR is unset.
func StylesFor(writer io.Writer) SummaryStyles {
	file, isFile := writer.(*os.File)
	if !isFile || os.Getenv(noColorEnvironmentKey) != "" || !term.IsTerminal(int(file.Fd())) {
		return PlainSummaryStyles()
	}
	return ColorSummaryStyles(writer)
}

// RenderSummary formats the summary. The first line counts the codebase of
// this run; a total line follows when the buffer holds more than one codebase.
func RenderSummary(summary Summary, styles SummaryStyles) string {
	var builder strings.Builder
	if summary.DirectoryOnly {
		builder.WriteString("d: " + styles.Files(fmt.Sprint(summary.Current.StructureEntries)))
	} else {
		builder.WriteString(countsLine(summary.Current, styles))
	}
	builder.WriteString("\n")

	if summary.Merged.Documents > 1 {
		builder.WriteString(fmt.Sprintf(totalLabelFormat, summary.Merged.Documents))
		builder.WriteString(" " + countsLine(summary.Merged, styles))
		if summary.Merged.StructureEntries > 0 {
			builder.WriteString(" d: " + styles.Files(fmt.Sprint(summary.Merged.StructureEntries)))
		}
		builder.WriteString("\n")
	}

	if len(summary.Current.OverLimit) > 0 {
		builder.WriteString("\n" + styles.Heading(overLimitHeader) + "\n")
		for _, overLimit := range summary.Current.OverLimit {
			builder.WriteString(fmt.Sprintf(overLimitLineFormat, styles.FilePath(overLimit.Path), styles.Tokens(fmt.Sprint(overLimit.Tokens))))
			if overLimit.SizeBytes > 0 {
				builder.WriteString(fmt.Sprintf(sizeSuffixFormat, formatSize(overLimit.SizeBytes)))
			}
			builder.WriteString("\n")
		}
	}

	if summary.Current.HasUncounted() {
		builder.WriteString("\n" + styles.Heading(uncountedHeader) + "\n")
		rootPrefix := strings.TrimSuffix(summary.Root, "/") + "/"
		for _, uncounted := range summary.Current.Uncounted {
			builder.WriteString(styles.FilePath(strings.TrimPrefix(uncounted, rootPrefix)) + "\n")
		}
	}
	return builder.String()
}

// WriteSummary renders the summary to writer with styles chosen for it.
func WriteSummary(writer io.Writer, summary Summary) error {
	_, err := io.WriteString(writer, RenderSummary(summary, StylesFor(writer)))
	return err
}

func countsLine(stats document.Stats, styles SummaryStyles) string {
	tokens := fmt.Sprint(stats.Tokens)
	if stats.HasUncounted() {
		tokens += uncountedTokensSuffix
	}
	return "f: " + styles.Files(fmt.Sprint(stats.Files)) +
		" l: " + styles.Lines(fmt.Sprint(stats.Lines)) +
		" t: " + styles.Tokens(tokens)
}

var sizeUnits = []string{"b", "kb", "mb", "gb", "tb"}

// formatSize renders a byte count with a binary unit, keeping one decimal
// below ten units.
func formatSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%db", max(size, 0))
	}
	value := float64(size)
	unitIndex := 0
	for value >= 1024 && unitIndex < len(sizeUnits)-1 {
		value /= 1024
		unitIndex++
	}
	if value < 10 {
		return strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0") + sizeUnits[unitIndex]
	}
	return fmt.Sprintf("%.0f%s", value, sizeUnits[unitIndex])
}
