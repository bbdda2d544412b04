// Package diagnostics defines the error values collected by pipeline stages.
package diagnostics

import (
	"fmt"

	"github.com/funvibe/expect/internal/token"
)

// ErrorCode identifies a class of diagnostic.
type ErrorCode string

const (
	// Lexing
	ErrL001 ErrorCode = "L001" // tokenizer error

	// Native parse and loading
	ErrP001 ErrorCode = "P001" // source unreadable or not found
	ErrP002 ErrorCode = "P002" // rewritten output does not parse

	// Rewriting
	ErrE001 ErrorCode = "E001" // construct not closed before end of line or group
	ErrE002 ErrorCode = "E002" // construct used as a condition (strict policy)
	ErrE999 ErrorCode = "E999" // internal invariant violated

	// Execution
	ErrR001 ErrorCode = "R001" // backend failure
)

var codeNames = map[ErrorCode]string{
	ErrL001: "tokenize error",
	ErrP001: "load error",
	ErrP002: "syntax error",
	ErrE001: "unterminated expect",
	ErrE002: "expect used as condition",
	ErrE999: "internal error",
	ErrR001: "runtime error",
}

// Title is a short human-readable name for the code.
func (c ErrorCode) Title() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "error"
}

// DiagnosticError is one reported problem. Row is 1-based and Col 0-based;
// a zero Row means the problem has no source position.
type DiagnosticError struct {
	Code    ErrorCode
	File    string
	Row     int
	Col     int
	Line    string // raw source line, for caret rendering
	Message string
	// Cause is the error the diagnostic was built from, if any.
	Cause error
}

// NewError builds a diagnostic located at tok.
func NewError(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{
		Code:    code,
		Row:     tok.Start.Row,
		Col:     tok.Start.Col,
		Line:    tok.Line,
		Message: msg,
	}
}

// NewErrorAt builds a diagnostic at an explicit position.
func NewErrorAt(code ErrorCode, pos token.Pos, line, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Row: pos.Row, Col: pos.Col, Line: line, Message: msg}
}

// Unwrap exposes the underlying error to errors.As.
func (e *DiagnosticError) Unwrap() error {
	return e.Cause
}

func (e *DiagnosticError) Error() string {
	prefix := e.File
	if e.Row > 0 {
		if prefix != "" {
			prefix += ":"
		}
		prefix += fmt.Sprintf("%d:%d", e.Row, e.Col)
	}
	if prefix == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", prefix, e.Code, e.Message)
}
