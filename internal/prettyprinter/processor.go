package prettyprinter

import (
	"github.com/funvibe/expect/internal/diagnostics"
	"github.com/funvibe/expect/internal/pipeline"
	"github.com/funvibe/expect/internal/token"
)

// PrinterProcessor re-serializes the rewritten stream into ctx.Output.
// Without a rewrite stage it prints the lexer's tokens.
type PrinterProcessor struct{}

func (pp *PrinterProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.HasErrors() {
		return ctx
	}
	tokens := ctx.Rewritten
	if tokens == nil {
		tokens = ctx.Tokens
	}
	if tokens == nil {
		return ctx
	}

	out, err := Untokenize(tokens)
	if err != nil {
		ctx.AddError(diagnostics.NewError(diagnostics.ErrE999, token.Token{}, "printer: "+err.Error()))
		return ctx
	}
	ctx.Output = out
	return ctx
}
