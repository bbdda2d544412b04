package generators

import (
	"fmt"
	"math/rand"
)

// RandomSource abstracts the source of randomness.
type RandomSource interface {
	Intn(n int) int
}

// RandSource wraps math/rand.
type RandSource struct {
	*rand.Rand
}

// ByteSource uses a byte slice as a source of randomness.
type ByteSource struct {
	data []byte
	pos  int
}

func (s *ByteSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	if s.pos >= len(s.data) {
		return 0
	}
	v := int(s.data[s.pos])
	s.pos++
	return v % n
}

// Generator generates Python programs using expect, together with the text
// the rewriter must produce for them. Generated code is single-spaced so the
// expected text can be built alongside the source.
type Generator struct {
	src   RandomSource
	depth int
	sites int
}

const (
	MaxDepth      = 4
	MaxStatements = 6
)

// TempBase is the default temporary name. Generated code never uses it.
const TempBase = "ret"

func New(seed int64) *Generator {
	return &Generator{src: RandSource{rand.New(rand.NewSource(seed))}}
}

func NewFromData(data []byte) *Generator {
	return &Generator{src: &ByteSource{data: data}}
}

// Pair is generated source and its expected rewrite.
type Pair struct {
	Src  string
	Want string
}

func (p Pair) add(q Pair) Pair {
	return Pair{p.Src + q.Src, p.Want + q.Want}
}

func lit(s string) Pair {
	return Pair{s, s}
}

// Sites is how many constructs the last program contains.
func (g *Generator) Sites() int {
	return g.sites
}

// GenerateProgram returns a program of one to MaxStatements statements.
func (g *Generator) GenerateProgram() Pair {
	g.sites = 0
	var out Pair
	n := 1 + g.src.Intn(MaxStatements)
	for i := 0; i < n; i++ {
		out = out.add(g.statement(""))
	}
	return out
}

func (g *Generator) statement(indent string) Pair {
	g.depth = 0
	switch g.src.Intn(6) {
	case 0:
		return lit(indent + "print(").add(g.expr()).add(lit(")\n"))
	case 1:
		fixed := func(s string) func() Pair { return func() Pair { return lit(s) } }
		return lit(indent + "a, b = ").add(g.expect(fixed("None"), fixed("(1, 2)"))).add(lit("\n"))
	case 2:
		if indent != "" {
			return lit(indent + "pass\n")
		}
		return lit("if ").add(g.atom()).add(lit(":\n")).add(g.statement("    "))
	case 3:
		return lit(indent + "xs = [").add(g.expr()).add(lit(", ")).add(g.expr()).add(lit("]\n"))
	default:
		return lit(indent + g.variable() + " = ").add(g.expr()).add(lit("\n"))
	}
}

func (g *Generator) variable() string {
	return []string{"x", "y", "value", "count"}[g.src.Intn(4)]
}

func (g *Generator) atom() Pair {
	switch g.src.Intn(8) {
	case 0:
		return lit("None")
	case 1:
		return lit(fmt.Sprint(g.src.Intn(100)))
	case 2:
		return lit("'s'")
	case 3:
		return lit("f()")
	case 4:
		return lit("d.get('k')")
	case 5:
		return lit("[1, 2]")
	default:
		return lit(g.variable())
	}
}

func (g *Generator) expr() Pair {
	if g.depth >= MaxDepth {
		return g.atom()
	}
	g.depth++
	defer func() { g.depth-- }()

	switch g.src.Intn(7) {
	case 0, 1:
		return g.expect(g.expr, g.expr)
	case 2:
		return g.expr().add(lit(" + ")).add(g.expr())
	case 3:
		return lit("(").add(g.expr()).add(lit(")"))
	case 4:
		// Conditional expression; the condition never holds a construct.
		body := g.expr()
		return body.add(lit(" if ")).add(g.atom()).add(lit(" else ")).add(g.expr())
	case 5:
		return lit("g(").add(g.expr()).add(lit(", ")).add(g.expr()).add(lit(")"))
	default:
		return g.atom()
	}
}

// expect builds `expect x else y` and its rewrite. Names are handed out in
// source order, which is the order the rewriter meets the triggers in, so
// the name is taken before the operand is generated.
func (g *Generator) expect(operand, fallback func() Pair) Pair {
	name := g.nextName()
	x := operand()
	y := fallback()
	return Pair{
		Src:  "expect " + x.Src + " else " + y.Src,
		Want: name + " if (" + name + " := " + x.Want + ") is not None else " + y.Want,
	}
}

func (g *Generator) nextName() string {
	g.sites++
	if g.sites == 1 {
		return TempBase
	}
	return fmt.Sprintf("%s_%d", TempBase, g.sites-1)
}

// Keywords lists the words the rewriter reacts to, for mutators.
var Keywords = []string{"expect", "else", "if"}
