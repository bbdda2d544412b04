package generators

import (
	"strings"
	"testing"
)

func TestGenerateProgramIsDeterministic(t *testing.T) {
	a := New(7).GenerateProgram()
	b := New(7).GenerateProgram()
	if a != b {
		t.Errorf("same seed gave different programs:\n%s\n%s", a.Src, b.Src)
	}
}

func TestGeneratedPairsAgreeOutsideSites(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		g := New(seed)
		p := g.GenerateProgram()
		if !strings.HasSuffix(p.Src, "\n") || !strings.HasSuffix(p.Want, "\n") {
			t.Fatalf("seed %d: programs must end with a newline", seed)
		}
		if got := strings.Count(p.Src, "expect "); got != g.Sites() {
			t.Errorf("seed %d: %d triggers, %d sites", seed, got, g.Sites())
		}
		if strings.Contains(p.Want, "expect ") {
			t.Errorf("seed %d: expected text still has a trigger: %s", seed, p.Want)
		}
		if strings.Count(p.Src, "\n") != strings.Count(p.Want, "\n") {
			t.Errorf("seed %d: line counts differ", seed)
		}
	}
}

func TestNamesFollowSourceOrder(t *testing.T) {
	// One assignment to x, then the expect branch on every choice; an
	// exhausted source keeps answering 0.
	g := NewFromData([]byte{0, 4, 0})
	p := g.GenerateProgram()
	if !strings.HasPrefix(p.Want, "x = ret if (ret := ret_1 if (ret_1 := ") {
		t.Errorf("want = %q", p.Want)
	}
}

func TestByteSourceExhaustion(t *testing.T) {
	s := &ByteSource{data: []byte{5}}
	if got := s.Intn(3); got != 2 {
		t.Errorf("Intn = %d, want 2", got)
	}
	if got := s.Intn(3); got != 0 {
		t.Errorf("exhausted source should yield 0, got %d", got)
	}
}
