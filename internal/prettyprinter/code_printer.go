package prettyprinter

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/funvibe/expect/internal/token"
)

// --- Code Printer (Output looks like source code) ---

// CodePrinter turns a token stream back into source text using the token
// positions. For a stream straight from the lexer the output equals the
// input; for a rewritten stream every token lands at its (shifted) column.
type CodePrinter struct {
	buf       bytes.Buffer
	prevRow   int
	prevCol   int
	prevLine  string
	indents   []string
	startline bool
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{prevRow: 1}
}

// Untokenize is a convenience wrapper around NewCodePrinter().Print.
func Untokenize(tokens []token.Token) (string, error) {
	p := NewCodePrinter()
	if err := p.Print(tokens); err != nil {
		return "", err
	}
	return p.String(), nil
}

// Print appends the rendering of tokens. It stops at ENDMARKER.
func (p *CodePrinter) Print(tokens []token.Token) error {
	for _, tok := range tokens {
		switch tok.Kind {
		case token.ENDMARKER:
			return nil
		case token.INDENT:
			p.indents = append(p.indents, tok.Text)
			continue
		case token.DEDENT:
			if len(p.indents) > 0 {
				p.indents = p.indents[:len(p.indents)-1]
			}
			p.prevRow, p.prevCol = tok.End.Row, tok.End.Col
			continue
		case token.NEWLINE, token.NL:
			p.startline = true
		default:
			if p.startline && len(p.indents) > 0 {
				indent := p.indents[len(p.indents)-1]
				if tok.Start.Col >= runeLen(indent) {
					p.buf.WriteString(indent)
					p.prevCol = runeLen(indent)
				}
			}
			p.startline = false
		}

		if err := p.addWhitespace(tok.Start); err != nil {
			return err
		}
		p.buf.WriteString(tok.Text)
		p.prevRow, p.prevCol = tok.End.Row, tok.End.Col
		if tok.Kind == token.NEWLINE || tok.Kind == token.NL {
			p.prevRow++
			p.prevCol = 0
		}
		p.prevLine = tok.Line
	}
	return nil
}

func (p *CodePrinter) addWhitespace(start token.Pos) error {
	if start.Row < p.prevRow || start.Row == p.prevRow && start.Col < p.prevCol {
		return fmt.Errorf("start (%d,%d) precedes previous end (%d,%d)", start.Row, start.Col, p.prevRow, p.prevCol)
	}
	p.addContinuation(start.Row)
	if gap := start.Col - p.prevCol; gap > 0 {
		p.buf.WriteString(strings.Repeat(" ", gap))
	}
	return nil
}

// addContinuation writes backslash continuations when the row advanced
// without a NEWLINE or NL token, keeping the blanks that preceded the
// backslash on the previous line.
func (p *CodePrinter) addContinuation(row int) {
	rows := row - p.prevRow
	if rows == 0 {
		return
	}
	newline := "\n"
	if strings.HasSuffix(p.prevLine, "\r\n") {
		newline = "\r\n"
	}
	line := strings.TrimRight(p.prevLine, "\\\r\n")
	trimmed := strings.TrimRightFunc(line, unicode.IsSpace)
	p.buf.WriteString(line[len(trimmed):])
	p.buf.WriteString(strings.Repeat("\\"+newline, rows))
	p.prevCol = 0
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func runeLen(s string) int {
	return len([]rune(s))
}
