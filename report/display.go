package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
)

// The colors and styles diagnostics are rendered with.
var (
	errorColorFG = pterm.FgRed
	errorStyle   = pterm.NewStyle(pterm.FgRed, pterm.Bold)
	warnStyle    = pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	infoColorFG  = pterm.FgLightGreen
	infoStyleBG  = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	noteColorFG  = pterm.FgCyan
	debugColorFG = pterm.FgGray
)

// renderICE renders an internal error message.
func renderICE(message string) string {
	return errorStyle.Sprint("internal error: ") + message + "\n" +
		"This error was not supposed to happen: the session continues, but the last evaluation was discarded.\n\n"
}

// renderFatal renders a fatal error message.
func renderFatal(message string) string {
	return errorStyle.Sprint("fatal error: ") + message + "\n\n"
}

// renderToolchainOutput renders the captured output of a rejected compile.
func renderToolchainOutput(output string) string {
	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}

	return errorStyle.Sprint("compile error:") + "\n" + output + "\n"
}

// renderInfo renders a tagged informational message.
func renderInfo(tag, message string) string {
	return infoStyleBG.Sprint(tag) + " " + infoColorFG.Sprint(message) + "\n"
}

// renderNote renders a progress note.
func renderNote(message string) string {
	return noteColorFG.Sprint("note: ") + message + "\n"
}

// renderDebug renders a debug message.
func renderDebug(message string) string {
	return debugColorFG.Sprint("debug: "+message) + "\n"
}

// renderCompileMessage renders a compilation error or warning.  The label is
// the string to prefix the message with: eg. if we want to display an error,
// the label is "error".
func renderCompileMessage(label, reprPath, src string, span *TextSpan, message string) string {
	labelStyle := errorStyle
	if label == "warning" {
		labelStyle = warnStyle
	}

	sb := &strings.Builder{}
	if span == nil {
		fmt.Fprintf(sb, "%s: %s %s\n\n", reprPath, labelStyle.Sprint(label+":"), message)
		return sb.String()
	}

	fmt.Fprintf(sb, "%s:%d:%d: %s %s\n\n", reprPath, span.StartLine+1, span.StartCol+1, labelStyle.Sprint(label+":"), message)
	renderSourceText(sb, src, span)
	return sb.String()
}

// -----------------------------------------------------------------------------

// renderSourceText renders the segment of source text defined by a text span
// with line numbers and carret underlining.
func renderSourceText(sb *strings.Builder, src string, span *TextSpan) {
	// Collect all the source lines containing the given source text.
	var lines []string
	for ln, line := range strings.Split(src, "\n") {
		if span.StartLine <= ln && ln <= span.EndLine {
			lines = append(lines, strings.ReplaceAll(strings.TrimRight(line, "\r"), "\t", "    "))
		}
	}

	if len(lines) == 0 {
		return
	}

	// Calculate the minimum line indentation.
	minIndent := -1
	for _, line := range lines {
		lineIndent := len(line) - len(strings.TrimLeft(line, " "))
		if minIndent == -1 || lineIndent < minIndent {
			minIndent = lineIndent
		}
	}

	// Generate the format string for line numbers.
	maxLineNumLen := len(strconv.Itoa(span.EndLine + 1))
	lineNumFmtStr := "%-" + strconv.Itoa(maxLineNumLen) + "v | "

	for i, line := range lines {
		fmt.Fprintf(sb, lineNumFmtStr, i+span.StartLine+1)
		sb.WriteString(line[minIndent:])
		sb.WriteString("\n")

		sb.WriteString(strings.Repeat(" ", maxLineNumLen) + " | ")

		// The underlining of the first line begins at the start column and the
		// underlining of the last line stops at the end column.  Every line in
		// between is underlined completely.
		start, end := minIndent, len(line)
		if i == 0 {
			start = clamp(span.StartCol, minIndent, len(line))
		}
		if i == len(lines)-1 {
			end = clamp(span.EndCol+1, start, len(line))
		}

		count := end - start
		if count < 1 {
			count = 1
		}

		sb.WriteString(strings.Repeat(" ", start-minIndent))
		sb.WriteString(errorColorFG.Sprint(strings.Repeat("^", count)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
