package token

import "testing"

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{NAME, "NAME"},
		{NEWLINE, "NEWLINE"},
		{ERRORTOKEN, "ERRORTOKEN"},
		{Kind(200), "Kind(200)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", uint8(tt.kind), got, tt.want)
		}
	}
}

func TestNewDerivesEnd(t *testing.T) {
	tok := New(NAME, "ret", Pos{Row: 2, Col: 7}, "a = ret\n")
	if tok.End != (Pos{Row: 2, Col: 10}) {
		t.Errorf("end = %v, want 2:10", tok.End)
	}

	// Columns count runes, not bytes.
	tok = New(STRING, "'héllo'", Pos{Row: 1, Col: 0}, "")
	if tok.End.Col != 7 {
		t.Errorf("end col = %d, want 7", tok.End.Col)
	}
}

func TestPosBefore(t *testing.T) {
	a := Pos{Row: 1, Col: 5}
	b := Pos{Row: 1, Col: 6}
	c := Pos{Row: 2, Col: 0}
	if !a.Before(b) || !b.Before(c) || !a.Before(c) {
		t.Error("expected a < b < c")
	}
	if a.Before(a) {
		t.Error("a position is not before itself")
	}
}

func TestBracketClassification(t *testing.T) {
	for _, s := range []string{"(", "[", "{"} {
		if !(Token{Kind: OP, Text: s}).IsOpen() {
			t.Errorf("%q should open a group", s)
		}
	}
	for _, s := range []string{")", "]", "}"} {
		if !(Token{Kind: OP, Text: s}).IsClose() {
			t.Errorf("%q should close a group", s)
		}
	}
	if (Token{Kind: STRING, Text: "("}).IsOpen() {
		t.Error("a string is never a bracket")
	}
}
