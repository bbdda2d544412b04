package lexer

import (
	"errors"
	"strings"

	"github.com/funvibe/expect/internal/diagnostics"
	"github.com/funvibe/expect/internal/pipeline"
	"github.com/funvibe/expect/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	tokens, err := Tokenize(ctx.SourceCode)
	if err != nil {
		var d *diagnostics.DiagnosticError
		var le *Error
		if errors.As(err, &le) {
			d = diagnostics.NewErrorAt(diagnostics.ErrL001, le.Pos, sourceLine(ctx.SourceCode, le.Pos.Row), le.Msg)
		} else {
			d = diagnostics.NewError(diagnostics.ErrL001, token.Token{}, err.Error())
		}
		d.Cause = err
		ctx.AddError(d)
		return ctx
	}
	ctx.Tokens = tokens
	return ctx
}

// sourceLine returns the 1-based row of src, or "" when out of range.
func sourceLine(src string, row int) string {
	lines := strings.SplitAfter(src, "\n")
	if row < 1 || row > len(lines) {
		return ""
	}
	return lines[row-1]
}
