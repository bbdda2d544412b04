package pipeline

import (
	"github.com/funvibe/expect/internal/diagnostics"
	"github.com/funvibe/expect/internal/token"
)

// PipelineContext carries one source unit through the stages.
type PipelineContext struct {
	SourceCode string
	FilePath   string
	ModuleName string

	// Set by the lexer stage.
	Tokens []token.Token
	// Set by the rewrite stage; nil until it succeeds.
	Rewritten []token.Token
	// Sites is the number of constructs the rewrite stage replaced.
	Sites int
	// Output is the re-serialized source.
	Output string
	// Result is whatever the execution stage produced (captured stdout).
	Result string

	Errors []*diagnostics.DiagnosticError
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{SourceCode: source}
}

// HasErrors reports whether any stage recorded a diagnostic.
func (c *PipelineContext) HasErrors() bool {
	return len(c.Errors) > 0
}

// Changed reports whether rewriting altered the source.
func (c *PipelineContext) Changed() bool {
	return c.Sites > 0
}

// AddError records a diagnostic, filling in the file path.
func (c *PipelineContext) AddError(err *diagnostics.DiagnosticError) {
	if err.File == "" {
		err.File = c.FilePath
	}
	c.Errors = append(c.Errors, err)
}
