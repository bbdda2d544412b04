package mutator

import (
	"math/rand"

	"github.com/funvibe/expect/internal/token"
)

// TokenMutator applies random edits to a token stream: it drops,
// duplicates and inserts the tokens the rewriter reacts to. Positions are
// left as they are, so mutated streams may not print back as source.
type TokenMutator struct {
	rnd *rand.Rand
}

// NewTokenMutator creates a new TokenMutator with the given seed.
func NewTokenMutator(seed int64) *TokenMutator {
	return &TokenMutator{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

var inserts = []token.Token{
	{Kind: token.NAME, Text: "expect"},
	{Kind: token.NAME, Text: "else"},
	{Kind: token.NAME, Text: "if"},
	{Kind: token.OP, Text: "("},
	{Kind: token.OP, Text: ")"},
	{Kind: token.OP, Text: "["},
	{Kind: token.OP, Text: "]"},
	{Kind: token.NEWLINE, Text: "\n"},
}

// Mutate returns an edited copy of tokens. The input is not modified.
func (m *TokenMutator) Mutate(tokens []token.Token) []token.Token {
	out := append([]token.Token(nil), tokens...)
	if len(out) == 0 {
		return out
	}
	edits := 1 + m.rnd.Intn(3)
	for i := 0; i < edits && len(out) > 0; i++ {
		idx := m.rnd.Intn(len(out))
		switch m.rnd.Intn(3) {
		case 0:
			out = append(out[:idx], out[idx+1:]...)
		case 1:
			out = insert(out, idx, out[idx])
		default:
			tok := inserts[m.rnd.Intn(len(inserts))]
			tok.Start, tok.End, tok.Line = out[idx].Start, out[idx].Start, out[idx].Line
			out = insert(out, idx, tok)
		}
	}
	return out
}

func insert(tokens []token.Token, idx int, tok token.Token) []token.Token {
	tokens = append(tokens, token.Token{})
	copy(tokens[idx+1:], tokens[idx:])
	tokens[idx] = tok
	return tokens
}
