package prettyprinter

import (
	"fmt"
	"io"
	"strings"

	"github.com/funvibe/expect/internal/token"
)

// --- Token Printer (one token per line, like `python -m tokenize`) ---

type TokenPrinter struct {
	w io.Writer
}

func NewTokenPrinter(w io.Writer) *TokenPrinter {
	return &TokenPrinter{w: w}
}

func (p *TokenPrinter) Print(tokens []token.Token) error {
	for _, tok := range tokens {
		span := fmt.Sprintf("%d,%d-%d,%d:", tok.Start.Row, tok.Start.Col, tok.End.Row, tok.End.Col)
		if _, err := fmt.Fprintf(p.w, "%-20s%-15s%-15s\n", span, tok.Kind, PyRepr(tok.Text)); err != nil {
			return err
		}
	}
	return nil
}

// PyRepr quotes s the way Python's repr() quotes a str.
func PyRepr(s string) string {
	quote := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, "\"") {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
