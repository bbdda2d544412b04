package rewrite

import (
	"strconv"

	"github.com/funvibe/expect/internal/token"
)

// nameSource hands out the temporaries bound by each rewrite site. Every site
// gets its own name, so nested constructs never rely on evaluation order to
// keep their bindings apart. Identifiers already present in the unit are
// skipped.
type nameSource struct {
	base   string
	shared bool
	taken  map[string]bool
	next   int
}

func newNameSource(base string, shared bool, tokens []token.Token) *nameSource {
	ns := &nameSource{base: base, shared: shared, taken: make(map[string]bool)}
	if shared {
		return ns
	}
	for _, tok := range tokens {
		if tok.Kind == token.NAME {
			ns.taken[tok.Text] = true
		}
	}
	return ns
}

func (ns *nameSource) fresh() string {
	if ns.shared {
		return ns.base
	}
	for {
		name := ns.base
		if ns.next > 0 {
			name = ns.base + "_" + strconv.Itoa(ns.next)
		}
		ns.next++
		if !ns.taken[name] {
			ns.taken[name] = true
			return name
		}
	}
}
