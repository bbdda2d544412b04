package token

import "fmt"

// Kind is the lexical category of a token. The set mirrors the categories the
// Python tokenizer reports, which is what the rewriter and printer rely on.
type Kind uint8

const (
	ENDMARKER Kind = iota
	NAME
	NUMBER
	STRING
	OP
	NEWLINE // end of a logical line
	NL      // non-logical line break (blank line, inside brackets, after a comment)
	COMMENT
	INDENT
	DEDENT
	ERRORTOKEN
)

var kindNames = [...]string{
	ENDMARKER:  "ENDMARKER",
	NAME:       "NAME",
	NUMBER:     "NUMBER",
	STRING:     "STRING",
	OP:         "OP",
	NEWLINE:    "NEWLINE",
	NL:         "NL",
	COMMENT:    "COMMENT",
	INDENT:     "INDENT",
	DEDENT:     "DEDENT",
	ERRORTOKEN: "ERRORTOKEN",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Pos is a (row, column) pair. Rows are 1-based and columns are 0-based,
// counted in runes.
type Pos struct {
	Row int
	Col int
}

// Shift returns p moved delta columns to the right.
func (p Pos) Shift(delta int) Pos {
	return Pos{Row: p.Row, Col: p.Col + delta}
}

// Before reports whether p comes strictly before other.
func (p Pos) Before(other Pos) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Col < other.Col
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Col)
}

// Token is one lexical unit. Tokens are plain values; anything that changes a
// token builds a new one.
type Token struct {
	Kind  Kind
	Text  string
	Start Pos
	End   Pos
	// Line is the physical source line (or lines, for tokens spanning rows)
	// the token was read from.
	Line string
}

// New builds a token whose end is derived from its start and text width.
// Only valid for single-row text.
func New(kind Kind, text string, start Pos, line string) Token {
	return Token{
		Kind:  kind,
		Text:  text,
		Start: start,
		End:   start.Shift(len([]rune(text))),
		Line:  line,
	}
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// IsName reports whether the token is the identifier or keyword text.
func (t Token) IsName(text string) bool {
	return t.Is(NAME, text)
}

// IsOpen reports whether the token opens a bracket group.
func (t Token) IsOpen() bool {
	return t.Kind == OP && (t.Text == "(" || t.Text == "[" || t.Text == "{")
}

// IsClose reports whether the token closes a bracket group.
func (t Token) IsClose() bool {
	return t.Kind == OP && (t.Text == ")" || t.Text == "]" || t.Text == "}")
}

// Width is the rune count of the token text.
func (t Token) Width() int {
	return len([]rune(t.Text))
}

func (t Token) String() string {
	return fmt.Sprintf("%s-%s %s %q", t.Start, t.End, t.Kind, t.Text)
}
