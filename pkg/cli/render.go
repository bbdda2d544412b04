package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/expect/internal/diagnostics"
	"github.com/funvibe/expect/internal/token"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// FormatDiagnostic renders d as "file:row:col: CODE: message", followed by
// the offending source line and a caret under the column.
func FormatDiagnostic(d *diagnostics.DiagnosticError, color bool) string {
	var b strings.Builder
	header := d.Error()
	if color {
		header = colorize(d)
	}
	b.WriteString(header)
	b.WriteByte('\n')

	line := firstLine(d.Line)
	if d.Row == 0 || line == "" {
		return b.String()
	}
	b.WriteString("    ")
	b.WriteString(line)
	b.WriteString("\n    ")
	b.WriteString(caretPadding(line, d.Col))
	if color {
		b.WriteString(ansiGreen + "^" + ansiReset)
	} else {
		b.WriteByte('^')
	}
	b.WriteByte('\n')
	return b.String()
}

func colorize(d *diagnostics.DiagnosticError) string {
	loc := d.File
	if d.Row > 0 {
		if loc != "" {
			loc += ":"
		}
		loc += fmt.Sprintf("%d:%d", d.Row, d.Col)
	}
	code := fmt.Sprintf("%s%s%s:%s", ansiRed, ansiBold, d.Code, ansiReset)
	if loc == "" {
		return code + " " + d.Message
	}
	return ansiBold + loc + ":" + ansiReset + " " + code + " " + d.Message
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "\r")
}

// caretPadding keeps tabs so the caret lines up under tab-indented code.
func caretPadding(line string, col int) string {
	var b strings.Builder
	for i, r := range []rune(line) {
		if i >= col {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func (a *App) report(d *diagnostics.DiagnosticError) {
	fmt.Fprint(a.Stderr, FormatDiagnostic(d, a.Color))
}

func (a *App) reportAll(errs []*diagnostics.DiagnosticError) {
	for _, d := range errs {
		a.report(d)
	}
}

// reportError renders the diagnostic inside err when there is one.
func (a *App) reportError(err error) {
	var d *diagnostics.DiagnosticError
	if errors.As(err, &d) {
		a.report(d)
		return
	}
	a.errorf("%v", err)
}

func tokenPos(row, col int) token.Pos {
	return token.Pos{Row: row, Col: col}
}

// lineOf returns the 1-based row of src, or "".
func lineOf(src string, row int) string {
	lines := strings.SplitAfter(src, "\n")
	if row < 1 || row > len(lines) {
		return ""
	}
	return lines[row-1]
}
