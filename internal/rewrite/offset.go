package rewrite

import "github.com/funvibe/expect/internal/token"

// tracker accumulates the column shift of the row being emitted. Synthetic
// tokens share the row of the token they replace, so one offset per row is
// enough.
type tracker struct {
	row    int
	offset int
}

// observe resets the offset when tok starts on a different row than the last
// observed token.
func (p *tracker) observe(tok token.Token) {
	if tok.Start.Row != p.row {
		p.row = tok.Start.Row
		p.offset = 0
	}
}

// apply returns tok shifted by the current offset. The end column only moves
// when the token ends on the row it started on.
func (p *tracker) apply(tok token.Token) token.Token {
	if p.offset == 0 {
		return tok
	}
	out := tok
	out.Start = tok.Start.Shift(p.offset)
	if tok.End.Row == tok.Start.Row {
		out.End = tok.End.Shift(p.offset)
	}
	return out
}

// advance records delta columns of inserted text. delta is negative only for
// a trigger keyword longer than the prefix that replaces it.
func (p *tracker) advance(delta int) {
	p.offset += delta
}
