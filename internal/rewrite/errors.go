package rewrite

import (
	"errors"
	"fmt"

	"github.com/funvibe/expect/internal/token"
)

// ErrorKind classifies a rewrite failure.
type ErrorKind int

const (
	// UnterminatedConstruct: a logical line, the input, or an enclosing
	// bracket ended while an expect construct (or a conditional expression
	// inside one) was still open.
	UnterminatedConstruct ErrorKind = iota + 1
	// ConstructUsedAsBareCondition: the construct appeared unbracketed in
	// the test of a conditional expression or comprehension filter, or in
	// any condition slot while the strict policy is active.
	ConstructUsedAsBareCondition
	// InternalInvariant: the engine reached a state its own bookkeeping
	// rules out. Seeing one is a bug.
	InternalInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case UnterminatedConstruct:
		return "UnterminatedConstruct"
	case ConstructUsedAsBareCondition:
		return "ConstructUsedAsBareCondition"
	case InternalInvariant:
		return "InternalInvariant"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the only error type the engine returns. Positions are in input
// coordinates.
type Error struct {
	Kind ErrorKind
	Msg  string
	Pos  token.Pos // offending token
	Line string    // source line of the offending token
	// Opened is where the innermost open construct started, when relevant.
	Opened token.Pos
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Row, e.Pos.Col, e.Msg)
}

func newError(kind ErrorKind, tok token.Token, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Pos: tok.Start, Line: tok.Line}
}

// IsKind reports whether err is a rewrite *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == kind
}
