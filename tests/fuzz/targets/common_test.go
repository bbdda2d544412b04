package targets

import (
	"testing"

	"github.com/funvibe/expect/pkg/expect"
	"github.com/funvibe/expect/tests/fuzz/generators"
)

// sourceSeeds seed FuzzRewriteSource and run as a plain test.
var sourceSeeds = []string{
	"x = expect f() else 0\n",
	"a, b = expect None else (0, 0)\n",
	"v = expect expect g() else 0 else 1\n",
	"if x:\n    y = expect d.get(k) else [] \\\n        + z\n",
	"x = (expect f())\n",
	"x = 1\n ",
	"def f():\n    return expect g() else 0\n    ",
	"expect else \n ",
	"x = expect f() else 0\n\t",
	"y = a if expect f() else 0 else 1\n",
	"[x for x in xs if expect f(x) else 0]\n",
}

func TestSourceSeeds(t *testing.T) {
	for _, src := range sourceSeeds {
		t.Run(src, func(t *testing.T) {
			checkRewriteSource(t, src)
		})
	}
}

// TestGeneratedPrograms runs the generator oracle over fixed seeds so the
// property is checked without -fuzz.
func TestGeneratedPrograms(t *testing.T) {
	for seed := int64(0); seed < 200; seed++ {
		p := generators.New(seed).GenerateProgram()
		got, err := expect.RewriteString(p.Src)
		if err != nil {
			t.Fatalf("seed %d: rewriting %q: %v", seed, p.Src, err)
		}
		if got != p.Want {
			t.Fatalf("seed %d:\nsource: %q\ngot:    %q\nwant:   %q", seed, p.Src, got, p.Want)
		}
	}
}
