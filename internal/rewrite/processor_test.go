package rewrite

import (
	"errors"
	"testing"

	"github.com/funvibe/expect/internal/diagnostics"
	"github.com/funvibe/expect/internal/lexer"
	"github.com/funvibe/expect/internal/pipeline"
	"github.com/funvibe/expect/internal/prettyprinter"
)

func runPipeline(src string, opts ...Option) *pipeline.PipelineContext {
	ctx := pipeline.NewPipelineContext(src)
	ctx.FilePath = "unit.py"
	return pipeline.New(
		&lexer.LexerProcessor{},
		NewProcessor(opts...),
		&prettyprinter.PrinterProcessor{},
	).Run(ctx)
}

func TestProcessorRewrites(t *testing.T) {
	ctx := runPipeline("x = expect f() else 0\n")
	if ctx.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Errors)
	}
	if ctx.Output != "x = ret if (ret := f()) is not None else 0\n" {
		t.Errorf("output = %q", ctx.Output)
	}
	if !ctx.Changed() || ctx.Sites != 1 {
		t.Errorf("sites = %d", ctx.Sites)
	}
}

func TestProcessorDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts []Option
		code diagnostics.ErrorCode
	}{
		{"unterminated", "x = expect f()\n", nil, diagnostics.ErrE001},
		{"condition", "while expect f() else 0:\n    pass\n", []Option{WithPolicy(PolicyStrict)}, diagnostics.ErrE002},
		{"tokenizer", "x = (expect f() else 0\n", nil, diagnostics.ErrL001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := runPipeline(tt.src, tt.opts...)
			if len(ctx.Errors) != 1 {
				t.Fatalf("got %d errors: %v", len(ctx.Errors), ctx.Errors)
			}
			d := ctx.Errors[0]
			if d.Code != tt.code {
				t.Errorf("code = %s, want %s", d.Code, tt.code)
			}
			if d.File != "unit.py" {
				t.Errorf("file = %q", d.File)
			}
			if ctx.Output != "" {
				t.Errorf("no output expected, got %q", ctx.Output)
			}
		})
	}
}

func TestDiagnosticForForeignError(t *testing.T) {
	d := Diagnostic(errors.New("boom"))
	if d.Code != diagnostics.ErrE999 || d.Message != "boom" {
		t.Errorf("got %+v", d)
	}
}

func TestDiagnosticUnwrapsToEngineError(t *testing.T) {
	ctx := runPipeline("x = expect f()\n")
	if !ctx.HasErrors() {
		t.Fatal("expected an error")
	}
	var re *Error
	if !errors.As(ctx.Errors[0], &re) || re.Kind != UnterminatedConstruct {
		t.Errorf("diagnostic does not unwrap to the engine error: %v", ctx.Errors[0])
	}
}
