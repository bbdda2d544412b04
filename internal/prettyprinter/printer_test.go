package prettyprinter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/funvibe/expect/internal/lexer"
	"github.com/funvibe/expect/internal/pipeline"
	"github.com/funvibe/expect/internal/token"
)

func TestUntokenizeRoundTrip(t *testing.T) {
	sources := []string{
		"x = 1\n",
		"if x:\n    y = (1,\n         2)\nz = 3\n",
		"def f(a):\n    if a:\n        return a\n\n    # done\n    return None\n",
		"x = 1 + \\\n    2\n",
		"s = '''a\n  b''' + 'c'\n",
		"# only a comment\n",
		"for i in range(3):\n\tprint(i)\n",
		"a = [x\n     for x in xs\n     if x]  # trailing\n",
		"x = 1\r\n",
	}
	for _, src := range sources {
		tokens, err := lexer.Tokenize(src)
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", src, err)
		}
		got, err := Untokenize(tokens)
		if err != nil {
			t.Fatalf("Untokenize(%q): %v", src, err)
		}
		if got != src {
			t.Errorf("round trip changed source\n got: %q\nwant: %q", got, src)
		}
	}
}

func TestUntokenizeMissingNewline(t *testing.T) {
	tokens, err := lexer.Tokenize("x = 1")
	if err != nil {
		t.Fatal(err)
	}
	got, err := Untokenize(tokens)
	if err != nil {
		t.Fatal(err)
	}
	if got != "x = 1" {
		t.Errorf("got %q", got)
	}
}

func TestUntokenizeShiftedTokens(t *testing.T) {
	line := "a = expect f() else 0\n"
	tokens := []token.Token{
		token.New(token.NAME, "a", token.Pos{Row: 1, Col: 0}, line),
		token.New(token.OP, "=", token.Pos{Row: 1, Col: 2}, line),
		token.New(token.NAME, "b", token.Pos{Row: 1, Col: 8}, line),
		token.New(token.NEWLINE, "\n", token.Pos{Row: 1, Col: 9}, line),
		token.New(token.ENDMARKER, "", token.Pos{Row: 2, Col: 0}, ""),
	}
	got, err := Untokenize(tokens)
	if err != nil {
		t.Fatal(err)
	}
	if got != "a =     b\n" {
		t.Errorf("got %q", got)
	}
}

func TestUntokenizeRejectsOverlap(t *testing.T) {
	tokens := []token.Token{
		token.New(token.NAME, "abc", token.Pos{Row: 1, Col: 0}, ""),
		token.New(token.NAME, "d", token.Pos{Row: 1, Col: 2}, ""),
	}
	if _, err := Untokenize(tokens); err == nil || !strings.Contains(err.Error(), "precedes previous end") {
		t.Errorf("expected an overlap error, got %v", err)
	}
}

func TestTokenPrinter(t *testing.T) {
	tokens, err := lexer.Tokenize("x = 'a'\n")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := NewTokenPrinter(&buf).Print(tokens); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "1,0-1,1:") || !strings.Contains(lines[0], "NAME") || !strings.Contains(lines[0], "'x'") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[2], `"'a'"`) {
		t.Errorf("string line = %q", lines[2])
	}
}

func TestPyRepr(t *testing.T) {
	tests := []struct{ in, want string }{
		{"abc", "'abc'"},
		{"\n", `'\n'`},
		{"it's", `"it's"`},
		{`both ' and "`, `'both \' and "'`},
		{`a\b`, `'a\\b'`},
	}
	for _, tt := range tests {
		if got := PyRepr(tt.in); got != tt.want {
			t.Errorf("PyRepr(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPrinterProcessor(t *testing.T) {
	ctx := pipeline.NewPipelineContext("y = 2\n")
	ctx = pipeline.New(&lexer.LexerProcessor{}, &PrinterProcessor{}).Run(ctx)
	if ctx.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Errors)
	}
	if ctx.Output != "y = 2\n" {
		t.Errorf("output = %q", ctx.Output)
	}
}
