package vm

// Str is a heap-allocated, reference-counted string. Go strings are
// already immutable byte sequences, so Str only exists to give strings the
// same refcounted-handle identity as the other heap types, and a home for
// the String method bag (see internal/hostlib).
type Str struct {
	refCounted
	S string
}

// NewStr returns a Str with one live reference.
func NewStr(s string) *Str {
	return &Str{refCounted: refCounted{refs: 1}, S: s}
}

func (*Str) Type() string    { return "string" }
func (s *Str) String() string { return s.S }
