package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/funvibe/expect/internal/backend"
	"github.com/funvibe/expect/internal/diagnostics"
	"github.com/funvibe/expect/internal/lexer"
	"github.com/funvibe/expect/internal/modules"
	"github.com/funvibe/expect/internal/pipeline"
	"github.com/funvibe/expect/internal/prettyprinter"
	"github.com/funvibe/expect/internal/rewrite"
	"github.com/funvibe/expect/internal/server"
)

const stdinName = "<stdin>"

// readSource reads a file, or standard input for "-".
func (a *App) readSource(path string) (name, src string, err error) {
	if path == "-" {
		data, err := io.ReadAll(a.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return stdinName, string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return path, string(data), nil
}

// process runs the rewrite pipeline followed by any extra stages.
func (a *App) process(name, src string, extra ...pipeline.Processor) *pipeline.PipelineContext {
	pctx := pipeline.NewPipelineContext(src)
	pctx.FilePath = name
	stages := []pipeline.Processor{
		&lexer.LexerProcessor{},
		rewrite.NewProcessor(a.rewriteOptions()...),
		&prettyprinter.PrinterProcessor{},
	}
	return pipeline.New(append(stages, extra...)...).Run(pctx)
}

func oneArg(fs interface{ Args() []string }) (string, bool) {
	if len(fs.Args()) != 1 {
		return "", false
	}
	return fs.Args()[0], true
}

func (a *App) runRewrite(args []string) int {
	fs := a.flags("rewrite")
	remote := fs.String("remote", "", "rewrite through the service at `addr`")
	output := fs.String("o", "", "write the result to `file`")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path, ok := oneArg(fs)
	if !ok {
		a.errorf("usage: expect rewrite [-remote addr] [-o out] <file|->")
		return 2
	}
	name, src, err := a.readSource(path)
	if err != nil {
		a.errorf("%v", err)
		return 1
	}

	var out string
	if *remote != "" {
		out, ok = a.rewriteRemote(*remote, name, src)
		if !ok {
			return 1
		}
	} else {
		pctx := a.process(name, src)
		if pctx.HasErrors() {
			a.reportAll(pctx.Errors)
			return 1
		}
		out = pctx.Output
		a.logf("%s: %d site(s)", name, pctx.Sites)
	}

	if *output == "" {
		fmt.Fprint(a.Stdout, out)
		return 0
	}
	if err := os.WriteFile(*output, []byte(out), 0o644); err != nil {
		a.errorf("%v", err)
		return 1
	}
	return 0
}

func (a *App) rewriteRemote(addr, name, src string) (string, bool) {
	client, err := server.Dial(addr)
	if err != nil {
		a.errorf("%v", err)
		return "", false
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := client.Rewrite(ctx, server.RewriteRequest{
		Source:         src,
		Filename:       name,
		Strict:         a.cfg.Strict,
		SharedTempName: a.cfg.SharedTempName,
	})
	if err != nil {
		a.errorf("%v", err)
		return "", false
	}
	a.logf("%s: request %s, %d site(s)", name, resp.RequestID, resp.Sites)
	if resp.ErrorKind != "" {
		d := diagnostics.NewErrorAt(remoteCode(resp.ErrorKind),
			tokenPos(resp.ErrorRow, resp.ErrorCol), lineOf(src, resp.ErrorRow), resp.ErrorMessage)
		d.File = name
		a.report(d)
		return "", false
	}
	return resp.Source, true
}

func remoteCode(kind string) diagnostics.ErrorCode {
	switch kind {
	case rewrite.UnterminatedConstruct.String():
		return diagnostics.ErrE001
	case rewrite.ConstructUsedAsBareCondition.String():
		return diagnostics.ErrE002
	case "TokenizeError":
		return diagnostics.ErrL001
	}
	return diagnostics.ErrE999
}

func (a *App) runCheck(args []string) int {
	fs := a.flags("check")
	compile := fs.Bool("compile", false, "also compile the result with python")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		a.errorf("usage: expect check [-compile] <file>...")
		return 2
	}

	var extra []pipeline.Processor
	if *compile {
		py := backend.NewPython(a.cfg.Python, backend.ModeCheck)
		if !py.Available() {
			a.errorf("%s not found", py.Interpreter)
			return 1
		}
		extra = append(extra, backend.NewExecutionProcessor(context.Background(), py))
	}

	code := 0
	for _, path := range fs.Args() {
		name, src, err := a.readSource(path)
		if err != nil {
			a.errorf("%v", err)
			code = 1
			continue
		}
		pctx := a.process(name, src, extra...)
		if pctx.HasErrors() {
			a.reportAll(pctx.Errors)
			code = 1
			continue
		}
		fmt.Fprintf(a.Stdout, "%s: ok, %d site(s)\n", name, pctx.Sites)
	}
	return code
}

func (a *App) runTokens(args []string) int {
	fs := a.flags("tokens")
	rewritten := fs.Bool("rewritten", false, "dump the stream after rewriting")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path, ok := oneArg(fs)
	if !ok {
		a.errorf("usage: expect tokens [-rewritten] <file|->")
		return 2
	}
	name, src, err := a.readSource(path)
	if err != nil {
		a.errorf("%v", err)
		return 1
	}

	pctx := pipeline.NewPipelineContext(src)
	pctx.FilePath = name
	stages := []pipeline.Processor{&lexer.LexerProcessor{}}
	if *rewritten {
		stages = append(stages, rewrite.NewProcessor(a.rewriteOptions()...))
	}
	pctx = pipeline.New(stages...).Run(pctx)
	if pctx.HasErrors() {
		a.reportAll(pctx.Errors)
		return 1
	}

	tokens := pctx.Tokens
	if *rewritten {
		tokens = pctx.Rewritten
	}
	if err := prettyprinter.NewTokenPrinter(a.Stdout).Print(tokens); err != nil {
		a.errorf("%v", err)
		return 1
	}
	return 0
}

// pathList collects a repeatable string flag.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func (a *App) newLoader(paths []string) (*modules.Loader, func(), error) {
	if len(paths) == 0 {
		paths = a.cfg.ResolvedSearchPaths()
	}
	opts := []modules.LoaderOption{
		modules.WithSearchPaths(paths...),
		modules.WithRegistry(modules.NewRegistry()),
		modules.WithRewriteOptions(a.rewriteOptions()...),
		modules.WithNativeParser(modules.NativeGate(a.cfg.Python)),
		modules.WithVerbose(a.verbose),
		modules.WithLog(a.Stderr),
	}
	closeFn := func() {}
	if p := a.cfg.CachePath(); p != "" {
		cache, err := modules.OpenCache(p)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, modules.WithCache(cache))
		closeFn = func() { cache.Close() }
	}
	return modules.NewLoader(opts...), closeFn, nil
}

func (a *App) runLoad(args []string) int {
	fs := a.flags("load")
	var paths pathList
	fs.Var(&paths, "path", "search `dir` (repeatable)")
	printCode := fs.Bool("print", false, "print the materialized code")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		a.errorf("usage: expect load [-path dir]... [-print] <module>...")
		return 2
	}

	loader, closeFn, err := a.newLoader(paths)
	if err != nil {
		a.errorf("%v", err)
		return 1
	}
	defer closeFn()

	mods, err := loader.LoadAll(context.Background(), fs.Args()...)
	if err != nil {
		a.reportError(err)
		return 1
	}
	for _, m := range mods {
		if *printCode {
			fmt.Fprint(a.Stdout, m.Code)
			continue
		}
		fmt.Fprintf(a.Stdout, "%s\t%s\t%s\n", m.Name, m.Path, describe(m))
	}
	return 0
}

func describe(m *modules.Module) string {
	if !m.Rewritten {
		return "native"
	}
	s := fmt.Sprintf("rewritten, %d site(s)", m.Sites)
	if m.FromCache {
		s += ", cached"
	}
	return s
}

func (a *App) runRun(args []string) int {
	fs := a.flags("run")
	python := fs.String("python", a.cfg.Python, "interpreter `exe`")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		a.errorf("usage: expect run [-python exe] <file> [args...]")
		return 2
	}
	path := fs.Arg(0)
	name, src, err := a.readSource(path)
	if err != nil {
		a.errorf("%v", err)
		return 1
	}

	loader, closeFn, err := a.newLoader(nil)
	if err != nil {
		a.errorf("%v", err)
		return 1
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := loader.Materialize(ctx, modules.ModuleName(name), name, src)
	if err != nil {
		a.reportError(err)
		return 1
	}

	py := backend.NewPython(*python, backend.ModeRun)
	py.Args = fs.Args()[1:]
	py.Stdin, py.Stdout, py.Stderr = a.Stdin, a.Stdout, a.Stderr

	pctx := pipeline.NewPipelineContext(m.Source)
	pctx.FilePath = name
	pctx.Output = m.Code
	pctx = pipeline.New(backend.NewExecutionProcessor(ctx, py)).Run(pctx)
	if !pctx.HasErrors() {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(pctx.Errors[0], &exitErr) {
		// The interpreter already printed its traceback.
		return exitErr.ExitCode()
	}
	a.reportAll(pctx.Errors)
	return 1
}

func (a *App) runServe(args []string) int {
	fs := a.flags("serve")
	addr := fs.String("addr", a.cfg.Listen, "listen `address`")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	srv, err := server.New(
		server.WithRewriteOptions(a.rewriteOptions()...),
		server.WithVerbose(a.verbose),
		server.WithLog(a.Stderr),
	)
	if err != nil {
		a.errorf("%v", err)
		return 1
	}
	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		a.errorf("%v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(a.Stdout, "serving %s on %s\n", server.ServiceName, lis.Addr())
	if err := srv.Serve(ctx, lis); err != nil {
		a.errorf("%v", err)
		return 1
	}
	return 0
}

func (a *App) runCache(args []string) int {
	if len(args) != 1 || (args[0] != "stats" && args[0] != "clean") {
		a.errorf("usage: expect cache stats|clean")
		return 2
	}
	path := a.cfg.CachePath()
	if path == "" {
		a.errorf("the rewrite cache is disabled (set cache.enabled in expect.yaml)")
		return 1
	}
	cache, err := modules.OpenCache(path)
	if err != nil {
		a.errorf("%v", err)
		return 1
	}
	defer cache.Close()

	ctx := context.Background()
	if args[0] == "clean" {
		n, err := cache.Clean(ctx)
		if err != nil {
			a.errorf("%v", err)
			return 1
		}
		fmt.Fprintf(a.Stdout, "removed %s entries from %s\n", humanize.Comma(n), path)
		return 0
	}

	st, err := cache.Stats(ctx)
	if err != nil {
		a.errorf("%v", err)
		return 1
	}
	oldest := "-"
	if !st.Oldest.IsZero() {
		oldest = humanize.Time(st.Oldest)
	}
	fmt.Fprintf(a.Stdout, "path:     %s\n", st.Path)
	fmt.Fprintf(a.Stdout, "entries:  %s\n", humanize.Comma(st.Entries))
	fmt.Fprintf(a.Stdout, "hits:     %s\n", humanize.Comma(st.Hits))
	fmt.Fprintf(a.Stdout, "code:     %s\n", humanize.Bytes(uint64(st.Bytes)))
	fmt.Fprintf(a.Stdout, "on disk:  %s\n", humanize.Bytes(uint64(st.FileSize)))
	fmt.Fprintf(a.Stdout, "oldest:   %s\n", oldest)
	return 0
}
