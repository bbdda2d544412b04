package modules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/expect/internal/config"
	"github.com/funvibe/expect/internal/lexer"
	"github.com/funvibe/expect/internal/pipeline"
	"github.com/funvibe/expect/internal/prettyprinter"
	"github.com/funvibe/expect/internal/rewrite"
	"golang.org/x/sync/errgroup"
)

// Loader resolves module identifiers to files and materializes them: a unit
// that parses natively is used as is, a unit that fails with a syntax error is
// rewritten. Materialized modules are registered so later loads of the same
// identifier return them directly.
type Loader struct {
	searchPaths []string
	registry    *Registry
	cache       *Cache
	native      NativeParser
	engine      *rewrite.Engine
	verbose     bool
	log         io.Writer
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSearchPaths sets the roots identifiers are resolved against, in order.
func WithSearchPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.searchPaths = append(l.searchPaths, paths...) }
}

// WithRegistry replaces the process-wide registry.
func WithRegistry(r *Registry) LoaderOption {
	return func(l *Loader) { l.registry = r }
}

// WithCache enables the persistent rewrite cache.
func WithCache(c *Cache) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

// WithNativeParser replaces the parse gate. The default is
// NativeGate(config.DefaultPython).
func WithNativeParser(p NativeParser) LoaderOption {
	return func(l *Loader) { l.native = p }
}

// WithRewriteOptions configures the rewrite engine.
func WithRewriteOptions(opts ...rewrite.Option) LoaderOption {
	return func(l *Loader) { l.engine = rewrite.New(opts...) }
}

// WithVerbose enables load tracing on the log writer.
func WithVerbose(v bool) LoaderOption {
	return func(l *Loader) { l.verbose = v }
}

// WithLog sets where verbose output goes. Defaults to stderr.
func WithLog(w io.Writer) LoaderOption {
	return func(l *Loader) { l.log = w }
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		registry: DefaultRegistry,
		native:   NativeGate(config.DefaultPython),
		engine:   rewrite.New(),
		log:      os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	if len(l.searchPaths) == 0 {
		l.searchPaths = []string{"."}
	}
	return l
}

func (l *Loader) Registry() *Registry {
	return l.registry
}

func (l *Loader) logf(format string, args ...interface{}) {
	if l.verbose {
		fmt.Fprintf(l.log, "[expect] "+format+"\n", args...)
	}
}

// Resolve maps a dotted identifier to a file: a.b is a/b.py or
// a/b/__init__.py under the first search path that has either.
func (l *Loader) Resolve(name string) (string, error) {
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if !isIdentifier(p) {
			return "", fmt.Errorf("invalid module name %q", name)
		}
	}

	for _, root := range l.searchPaths {
		base := filepath.Join(append([]string{root}, parts...)...)
		for _, ext := range config.SourceFileExtensions {
			if isFile(base + ext) {
				return base + ext, nil
			}
		}
		if init := filepath.Join(base, config.PackageInitFile); isFile(init) {
			return init, nil
		}
	}
	return "", fmt.Errorf("module %q not found in %s", name, strings.Join(l.searchPaths, string(os.PathListSeparator)))
}

// Load returns the module registered under name, materializing and
// registering it first if needed. Nothing is registered on failure.
func (l *Loader) Load(ctx context.Context, name string) (*Module, error) {
	if m, ok := l.registry.Lookup(name); ok {
		l.logf("%s: already loaded", name)
		return m, nil
	}

	path, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module %s: %w", name, err)
	}

	m, err := l.Materialize(ctx, name, path, string(data))
	if err != nil {
		return nil, err
	}
	return l.registry.Register(m), nil
}

// LoadAll loads the named modules concurrently. The first failure cancels
// the remaining loads.
func (l *Loader) LoadAll(ctx context.Context, names ...string) ([]*Module, error) {
	g, gctx := errgroup.WithContext(ctx)
	mods := make([]*Module, len(names))
	for i, name := range names {
		g.Go(func() error {
			m, err := l.Load(gctx, name)
			if err != nil {
				return err
			}
			mods[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mods, nil
}

// Materialize turns source text into a module without touching the
// registry.
func (l *Loader) Materialize(ctx context.Context, name, path, src string) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := &Module{Name: name, Path: path, Source: src, Code: src}

	err := l.native.Parse(ctx, src, path)
	if err == nil {
		l.logf("%s: parsed natively", name)
		return m, nil
	}
	if !errors.Is(err, ErrSyntax) {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	l.logf("%s: native parse failed (%v), rewriting", name, err)

	var key string
	if l.cache != nil {
		key = CacheKey(src, l.engine.Options().Fingerprint())
		entry, ok, err := l.cache.Get(ctx, key)
		switch {
		case err != nil:
			l.logf("warning: %v", err)
		case ok:
			l.logf("%s: cache hit", name)
			m.Code, m.Sites, m.Rewritten, m.FromCache = entry.Code, entry.Sites, entry.Sites > 0, true
			return m, nil
		}
	}

	pctx := pipeline.NewPipelineContext(src)
	pctx.FilePath = path
	pctx.ModuleName = name
	pctx = pipeline.New(
		&lexer.LexerProcessor{},
		&rewrite.RewriteProcessor{Engine: l.engine},
		&prettyprinter.PrinterProcessor{},
	).Run(pctx)
	if pctx.HasErrors() {
		return nil, fmt.Errorf("rewriting %s: %w", name, pctx.Errors[0])
	}

	m.Code, m.Sites, m.Rewritten = pctx.Output, pctx.Sites, pctx.Changed()
	l.logf("%s: rewrote %d site(s)", name, m.Sites)

	if l.cache != nil {
		if err := l.cache.Put(ctx, key, CacheEntry{Module: name, Code: m.Code, Sites: m.Sites}); err != nil {
			l.logf("warning: %v", err)
		}
	}
	return m, nil
}

// ModuleName derives an identifier from a file path: the file stem, or the
// directory name for a package __init__ file.
func ModuleName(path string) string {
	if isInitFile(path) {
		return filepath.Base(filepath.Dir(path))
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isInitFile(path string) bool {
	return filepath.Base(path) == config.PackageInitFile
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return true
}
