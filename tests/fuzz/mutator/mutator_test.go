package mutator

import (
	"reflect"
	"testing"

	"github.com/funvibe/expect/internal/lexer"
)

func TestMutateLeavesInputAlone(t *testing.T) {
	tokens, err := lexer.Tokenize("x = expect f() else 0\n")
	if err != nil {
		t.Fatal(err)
	}
	orig := append(tokens[:0:0], tokens...)

	m := NewTokenMutator(1)
	changed := false
	for i := 0; i < 20; i++ {
		out := m.Mutate(tokens)
		if !reflect.DeepEqual(out, tokens) {
			changed = true
		}
	}
	if !reflect.DeepEqual(tokens, orig) {
		t.Error("Mutate modified its input")
	}
	if !changed {
		t.Error("20 mutations produced no change")
	}
}

func TestMutateEmpty(t *testing.T) {
	if out := NewTokenMutator(1).Mutate(nil); len(out) != 0 {
		t.Errorf("got %v", out)
	}
}
