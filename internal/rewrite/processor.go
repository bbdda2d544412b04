package rewrite

import (
	"errors"

	"github.com/funvibe/expect/internal/diagnostics"
	"github.com/funvibe/expect/internal/pipeline"
	"github.com/funvibe/expect/internal/token"
)

// RewriteProcessor is the pipeline stage that runs the engine over
// ctx.Tokens.
type RewriteProcessor struct {
	Engine *Engine
}

func NewProcessor(opts ...Option) *RewriteProcessor {
	return &RewriteProcessor{Engine: New(opts...)}
}

func (rp *RewriteProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.HasErrors() || ctx.Tokens == nil {
		return ctx
	}

	res, err := rp.Engine.Run(ctx.Tokens)
	if err != nil {
		ctx.AddError(Diagnostic(err))
		return ctx
	}
	ctx.Rewritten = res.Tokens
	ctx.Sites = res.Sites
	return ctx
}

// Diagnostic converts an engine error into a pipeline diagnostic.
func Diagnostic(err error) *diagnostics.DiagnosticError {
	var re *Error
	if !errors.As(err, &re) {
		d := diagnostics.NewError(diagnostics.ErrE999, token.Token{}, err.Error())
		d.Cause = err
		return d
	}
	code := diagnostics.ErrE999
	switch re.Kind {
	case UnterminatedConstruct:
		code = diagnostics.ErrE001
	case ConstructUsedAsBareCondition:
		code = diagnostics.ErrE002
	}
	d := diagnostics.NewErrorAt(code, re.Pos, re.Line, re.Msg)
	d.Cause = re
	return d
}
