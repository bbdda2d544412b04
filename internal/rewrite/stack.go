package rewrite

import "github.com/funvibe/expect/internal/token"

type markerKind uint8

const (
	// construct is an open `expect` whose closing else has not been seen.
	construct markerKind = iota + 1
	// guard is an `if` of a conditional expression nested inside a construct;
	// it owns the next else at its depth.
	guard
)

func (k markerKind) String() string {
	switch k {
	case construct:
		return "construct"
	case guard:
		return "guard"
	}
	return "unknown"
}

type marker struct {
	kind  markerKind
	depth int       // bracket depth the marker was opened at
	at    token.Pos // input position of the opening keyword
}

// nestingStack routes each else to its owner. Depths never decrease from
// bottom to top: anything opened inside a bracket is popped when it closes.
type nestingStack struct {
	markers []marker
}

func (s *nestingStack) pushConstruct(depth int, at token.Pos) {
	s.markers = append(s.markers, marker{kind: construct, depth: depth, at: at})
}

func (s *nestingStack) pushGuard(depth int, at token.Pos) {
	s.markers = append(s.markers, marker{kind: guard, depth: depth, at: at})
}

func (s *nestingStack) pop() (marker, bool) {
	if len(s.markers) == 0 {
		return marker{}, false
	}
	m := s.markers[len(s.markers)-1]
	s.markers = s.markers[:len(s.markers)-1]
	return m, true
}

func (s *nestingStack) top() (marker, bool) {
	if len(s.markers) == 0 {
		return marker{}, false
	}
	return s.markers[len(s.markers)-1], true
}

func (s *nestingStack) topIs(kind markerKind) bool {
	m, ok := s.top()
	return ok && m.kind == kind
}

func (s *nestingStack) isEmpty() bool {
	return len(s.markers) == 0
}

// closeGroup is called before a closing bracket leaves depth. Guards opened
// inside the group are comprehension filters and are discarded. A construct
// opened inside the group is returned as unterminated.
func (s *nestingStack) closeGroup(depth int) (marker, bool) {
	for {
		m, ok := s.top()
		if !ok || m.depth < depth {
			return marker{}, false
		}
		if m.kind == construct {
			return m, true
		}
		s.pop()
	}
}
