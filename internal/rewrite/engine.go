// Package rewrite turns `expect <expr> else <fallback>` into
// `ret if (ret := <expr>) is not None else <fallback>` on a Python token
// stream, in one left-to-right pass, keeping every emitted token's columns
// consistent so the stream can be printed back as source.
package rewrite

import (
	"fmt"

	"github.com/funvibe/expect/internal/config"
	"github.com/funvibe/expect/internal/token"
)

// Engine rewrites token streams. It holds configuration only; every call
// gets its own stack, offset tracker and output buffer, so one Engine may be
// used from several goroutines.
type Engine struct {
	opts Options
}

// Result is a successful rewrite.
type Result struct {
	Tokens []token.Token
	// Sites is the number of constructs rewritten.
	Sites int
}

// New creates an engine.
func New(opts ...Option) *Engine {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{opts: o}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Rewrite is a convenience wrapper around New(opts...).Rewrite(tokens).
func Rewrite(tokens []token.Token, opts ...Option) ([]token.Token, error) {
	return New(opts...).Rewrite(tokens)
}

// Rewrite returns the rewritten stream, or an *Error and no tokens.
func (e *Engine) Rewrite(tokens []token.Token) ([]token.Token, error) {
	res, err := e.Run(tokens)
	if err != nil {
		return nil, err
	}
	return res.Tokens, nil
}

// Run rewrites tokens and reports how many sites were rewritten.
func (e *Engine) Run(tokens []token.Token) (*Result, error) {
	p := &pass{
		opts:      e.opts,
		names:     newNameSource(e.opts.TempName, e.opts.SharedTempName, tokens),
		out:       make([]token.Token, 0, len(tokens)),
		lineStart: true,
	}
	for _, tok := range tokens {
		p.pos.observe(tok)
		if err := p.step(tok); err != nil {
			return nil, err
		}
		p.track(tok)
	}
	if m, ok := p.stack.top(); ok {
		// Only reachable for streams without an ENDMARKER.
		last := tokens[len(tokens)-1]
		err := newError(UnterminatedConstruct, last, "reached end of input while in "+e.opts.Keyword+" statement")
		err.Opened = m.at
		return nil, err
	}
	return &Result{Tokens: p.out, Sites: p.sites}, nil
}

// pass is the state of one rewrite.
type pass struct {
	opts  Options
	stack nestingStack
	pos   tracker
	names *nameSource
	out   []token.Token
	last  token.Token // last emitted token
	sites int

	depth     int  // bracket depth of the input
	lineStart bool // next significant token starts a logical line
	stmtCond  bool // inside the condition of an if/elif/while/assert statement
	afterIf   bool // only brackets since the last `if`
	// Depths of open tests of conditional expressions and comprehension
	// filters, innermost last.
	tests []int
}

func (p *pass) step(tok token.Token) error {
	switch {
	case tok.IsName(p.opts.Keyword):
		if p.inExpressionTest() {
			return newError(ConstructUsedAsBareCondition, tok,
				p.opts.Keyword+" cannot be the test of a conditional expression or filter without parentheses")
		}
		if p.opts.Policy == PolicyStrict && p.inCondition() {
			return newError(ConstructUsedAsBareCondition, tok,
				"the result of "+p.opts.Keyword+" cannot be used as a condition")
		}
		p.open(tok)

	case tok.Kind == token.NEWLINE || tok.Kind == token.ENDMARKER:
		if m, ok := p.stack.top(); ok {
			err := newError(UnterminatedConstruct, tok,
				fmt.Sprintf("encountered %s token while in %s statement", tok.Kind, p.opts.Keyword))
			err.Opened = m.at
			return err
		}
		p.emit(tok)

	case tok.IsName(config.IfKeyword) && !p.stack.isEmpty():
		p.emit(tok)
		p.stack.pushGuard(p.depth, tok.Start)

	case tok.IsName(config.ElseKeyword) && !p.stack.isEmpty():
		m, _ := p.stack.top()
		if m.depth != p.depth {
			// Opened in an enclosing bracket; this else cannot be its closer.
			p.emit(tok)
			return nil
		}
		if _, ok := p.stack.pop(); !ok {
			return newError(InternalInvariant, tok, "else popped an empty nesting stack")
		}
		switch m.kind {
		case guard:
			p.emit(tok)
		case construct:
			p.close(tok)
		default:
			return newError(InternalInvariant, tok, fmt.Sprintf("unknown nesting marker %d", m.kind))
		}

	case tok.IsOpen():
		p.emit(tok)
		p.depth++

	case tok.IsClose():
		if m, open := p.stack.closeGroup(p.depth); open {
			err := newError(UnterminatedConstruct, tok,
				fmt.Sprintf("%s statement opened at %s is not closed before %q", p.opts.Keyword, m.at, tok.Text))
			err.Opened = m.at
			return err
		}
		p.emit(tok)
		if p.depth > 0 {
			p.depth--
		}

	default:
		p.emit(tok)
	}
	return nil
}

// open replaces the trigger with `<tmp> if (<tmp> :=`.
func (p *pass) open(tok token.Token) {
	at := tok.Start.Shift(p.pos.offset)
	name := p.names.fresh()
	n := len([]rune(name))

	p.synth(token.NAME, name, at, tok.Line)
	p.synth(token.NAME, config.IfKeyword, at.Shift(n+1), tok.Line)
	p.synth(token.OP, "(", at.Shift(n+4), tok.Line)
	p.synth(token.NAME, name, at.Shift(n+5), tok.Line)
	p.synth(token.OP, ":=", at.Shift(2*n+6), tok.Line)

	p.pos.advance(2*n + 8 - tok.Width())
	p.stack.pushConstruct(p.depth, tok.Start)
	p.sites++
}

// close emits `) is not None` in front of the construct's else.
func (p *pass) close(tok token.Token) {
	at := tok.Start.Shift(p.pos.offset)
	gap := at.Col
	if len(p.out) > 0 && p.last.End.Row == at.Row {
		gap = at.Col - p.last.End.Col
	}

	// Reuse the blank before else for the parenthesis when there is one.
	paren, width := at.Shift(-1), 13
	if gap < 1 {
		paren, width = at, 14
	}
	p.synth(token.OP, ")", paren, tok.Line)
	p.synth(token.NAME, "is", paren.Shift(2), tok.Line)
	p.synth(token.NAME, "not", paren.Shift(5), tok.Line)
	p.synth(token.NAME, config.SentinelName, paren.Shift(9), tok.Line)

	p.pos.advance(width)
	p.emit(tok)
}

func (p *pass) emit(tok token.Token) {
	out := p.pos.apply(tok)
	p.out = append(p.out, out)
	p.last = out
}

func (p *pass) synth(kind token.Kind, text string, at token.Pos, line string) {
	tok := token.New(kind, text, at, line)
	p.out = append(p.out, tok)
	p.last = tok
}

// inCondition reports whether a trigger seen now would be the value tested
// by a condition.
func (p *pass) inCondition() bool {
	return p.stmtCond || p.afterIf || p.stack.topIs(guard) || p.inExpressionTest()
}

// inExpressionTest reports whether a trigger seen now would sit unbracketed
// in the test of a conditional expression or a comprehension filter. Python
// only accepts an or_test there, so the rewritten ternary would not parse.
func (p *pass) inExpressionTest() bool {
	return len(p.tests) > 0 && p.tests[len(p.tests)-1] == p.depth
}

// endTest closes the innermost expression test if it was opened at the
// current depth.
func (p *pass) endTest() {
	if p.inExpressionTest() {
		p.tests = p.tests[:len(p.tests)-1]
	}
}

// track updates the condition bookkeeping checked before each trigger.
func (p *pass) track(tok token.Token) {
	switch tok.Kind {
	case token.NEWLINE:
		p.lineStart, p.stmtCond, p.afterIf = true, false, false
		p.tests = p.tests[:0]
		return
	case token.NL, token.COMMENT, token.INDENT, token.DEDENT, token.ENDMARKER:
		return
	}

	if p.lineStart {
		p.lineStart = false
		if tok.Kind == token.NAME {
			switch tok.Text {
			case config.IfKeyword, config.ElifKeyword, config.WhileKeyword, config.AssertKeyword:
				p.stmtCond = true
				return
			}
		}
	}

	if p.stmtCond && p.depth == 0 && tok.Kind == token.OP && (tok.Text == ":" || tok.Text == ",") {
		p.stmtCond = false
	}

	switch {
	case tok.IsName(config.IfKeyword):
		p.endTest()
		p.tests = append(p.tests, p.depth)
	case tok.IsName(config.ElseKeyword), tok.IsName(config.ForKeyword),
		tok.Kind == token.OP && (tok.Text == "," || tok.Text == ":"):
		p.endTest()
	case tok.IsClose():
		for len(p.tests) > 0 && p.tests[len(p.tests)-1] > p.depth {
			p.tests = p.tests[:len(p.tests)-1]
		}
	}

	switch {
	case tok.IsName(config.IfKeyword):
		p.afterIf = true
	case tok.IsOpen():
	default:
		p.afterIf = false
	}
}
