package backend

import (
	"context"

	"github.com/funvibe/expect/internal/diagnostics"
	"github.com/funvibe/expect/internal/pipeline"
	"github.com/funvibe/expect/internal/token"
)

// ExecutionProcessor implements pipeline.Processor to run a Backend
type ExecutionProcessor struct {
	Backend Backend
	ctx     context.Context
}

// NewExecutionProcessor creates a new pipeline step for the given backend
func NewExecutionProcessor(ctx context.Context, b Backend) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b, ctx: ctx}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't run execution
	if ctx.HasErrors() || (ctx.Output == "" && ctx.Tokens == nil) {
		return ctx
	}

	result, err := p.Backend.Run(p.ctx, ctx)
	ctx.Result = result
	if err != nil {
		d := diagnostics.NewError(diagnostics.ErrR001, token.Token{}, err.Error())
		d.Cause = err
		ctx.AddError(d)
	}
	return ctx
}
