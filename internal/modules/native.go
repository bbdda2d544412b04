package modules

import (
	"context"
	"errors"
	"strings"

	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"

	"github.com/funvibe/expect/internal/backend"
)

// ErrSyntax marks a native parse failure. Only these send a unit to the
// rewriter.
var ErrSyntax = errors.New("syntax error")

// NativeParser decides whether a unit parses without rewriting.
type NativeParser interface {
	Parse(ctx context.Context, src, filename string) error
}

// NativeGate returns a gate backed by interpreter when it can be found, and
// the gpython grammar otherwise.
func NativeGate(interpreter string) NativeParser {
	b := backend.NewPython(interpreter, backend.ModeCheck)
	if b.Available() {
		return CPythonParser{Backend: b}
	}
	return GPythonParser{}
}

// CPythonParser parses sources with a CPython interpreter, so it accepts
// exactly the grammar the module will later run under.
type CPythonParser struct {
	Backend *backend.PythonBackend
}

func (p CPythonParser) Parse(ctx context.Context, src, filename string) error {
	err := p.Backend.Parse(ctx, src, filename)
	var se *backend.SyntaxError
	if errors.As(err, &se) {
		return &syntaxError{msg: se.Msg}
	}
	return err
}

// GPythonParser checks sources with the gpython grammar. It predates
// Python 3.8 and rejects assignment expressions, f-strings and
// positional-only parameters.
type GPythonParser struct{}

func (GPythonParser) Parse(_ context.Context, src, filename string) error {
	_, err := parser.Parse(strings.NewReader(src), filename, py.ExecMode)
	if err == nil {
		return nil
	}
	if py.IsException(py.SyntaxError, err) {
		return &syntaxError{msg: err.Error()}
	}
	return err
}

type syntaxError struct {
	msg string
}

func (e *syntaxError) Error() string { return e.msg }

func (e *syntaxError) Is(target error) bool { return target == ErrSyntax }

// NeverNative treats every unit as failing the native parse, so every unit
// goes through the rewriter.
type NeverNative struct{}

func (NeverNative) Parse(context.Context, string, string) error { return ErrSyntax }
