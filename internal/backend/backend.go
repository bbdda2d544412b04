// Package backend provides an interface for different execution backends.
// This allows the rewritten source to be compiled or run by any host.
package backend

import (
	"context"

	"github.com/funvibe/expect/internal/pipeline"
)

// Backend is the interface for execution backends
type Backend interface {
	// Run executes the rewritten source in ctx.Output and returns what it
	// printed.
	Run(ctx context.Context, pctx *pipeline.PipelineContext) (string, error)

	// Name returns the backend name for display
	Name() string
}
