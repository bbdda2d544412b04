package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/funvibe/expect/internal/config"
	"github.com/funvibe/expect/internal/pipeline"
)

// Mode selects what PythonBackend does with the source.
type Mode int

const (
	// ModeRun executes the source as a script.
	ModeRun Mode = iota
	// ModeCheck only compiles it.
	ModeCheck
)

// syntaxExit is the status the check scripts exit with on a SyntaxError.
const syntaxExit = 3

// syntaxScript runs stmt on the source bytes read from stdin. The file name
// is the script's first argument.
func syntaxScript(stmt string) string {
	return "import ast, sys\n" +
		"src = sys.stdin.buffer.read()\n" +
		"try:\n" +
		"    " + stmt + "\n" +
		"except SyntaxError as e:\n" +
		"    sys.stderr.write('%s: %s (line %s)\\n' % (type(e).__name__, e.msg, e.lineno))\n" +
		"    sys.exit(" + strconv.Itoa(syntaxExit) + ")\n"
}

var (
	compileScript = syntaxScript("compile(src, sys.argv[1], 'exec')")
	parseScript   = syntaxScript("ast.parse(src, sys.argv[1])")
)

// SyntaxError is returned by Check and Parse when the interpreter rejects
// the source's syntax.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string {
	return e.Msg
}

// PythonBackend hands rewritten source to a CPython interpreter.
type PythonBackend struct {
	Interpreter string
	Mode        Mode
	// Args are passed to the script in ModeRun.
	Args []string
	// Stdin, Stdout and Stderr are connected to the script in ModeRun.
	// Stdout is also captured and returned.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewPython creates a backend for the given interpreter, python3 when empty.
func NewPython(interpreter string, mode Mode) *PythonBackend {
	if interpreter == "" {
		interpreter = config.DefaultPython
	}
	return &PythonBackend{Interpreter: interpreter, Mode: mode}
}

func (b *PythonBackend) Name() string {
	if b.Mode == ModeCheck {
		return "python-check"
	}
	return "python"
}

// Available reports whether the interpreter can be found.
func (b *PythonBackend) Available() bool {
	_, err := exec.LookPath(b.Interpreter)
	return err == nil
}

func (b *PythonBackend) Run(ctx context.Context, pctx *pipeline.PipelineContext) (string, error) {
	filename := pctx.FilePath
	if filename == "" {
		filename = "<string>"
	}
	if b.Mode == ModeCheck {
		return "", b.Check(ctx, pctx.Output, filename)
	}
	return b.exec(ctx, pctx.Output)
}

// Check compiles code without running it.
func (b *PythonBackend) Check(ctx context.Context, code, filename string) error {
	return b.runScript(ctx, compileScript, code, filename)
}

// Parse only parses code, so errors the compiler reports later (such as a
// return outside a function) are not seen.
func (b *PythonBackend) Parse(ctx context.Context, code, filename string) error {
	return b.runScript(ctx, parseScript, code, filename)
}

func (b *PythonBackend) runScript(ctx context.Context, script, code, filename string) error {
	cmd := exec.CommandContext(ctx, b.Interpreter, "-c", script, filename)
	cmd.Stdin = strings.NewReader(code)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) && ee.ExitCode() == syntaxExit {
		return &SyntaxError{Msg: strings.TrimSpace(stderr.String())}
	}
	return fmt.Errorf("%s: %w%s", b.Interpreter, err, lastLines(stderr.String()))
}

func (b *PythonBackend) exec(ctx context.Context, code string) (string, error) {
	f, err := os.CreateTemp("", "expect-*.py")
	if err != nil {
		return "", fmt.Errorf("creating script: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return "", fmt.Errorf("writing script: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing script: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, b.Interpreter, append([]string{f.Name()}, b.Args...)...)
	cmd.Stdin = b.Stdin
	cmd.Stdout = &stdout
	if b.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, b.Stdout)
	}
	cmd.Stderr = &stderr
	if b.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, b.Stderr)
	}

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s: %w%s", b.Interpreter, err, lastLines(stderr.String()))
	}
	return stdout.String(), nil
}

// lastLines keeps the tail of a traceback for error messages.
func lastLines(stderr string) string {
	stderr = strings.TrimRight(stderr, "\n")
	if stderr == "" {
		return ""
	}
	lines := strings.Split(stderr, "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return "\n" + strings.Join(lines, "\n")
}
