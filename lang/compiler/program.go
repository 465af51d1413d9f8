package compiler

import "sort"

// LineEntry maps a byte-offset range in Program.Code to a source line
// range, the compiler's equivalent of a source map. Entries are sorted by
// ByteStart and do not overlap.
type LineEntry struct {
	ByteStart, ByteEnd uint32
	LineStart, LineEnd int
}

// Program is the flat bytecode image produced by Compile: a single
// big-endian byte buffer (per spec.md §3.5) plus the side tables needed to
// execute and diagnose it. Nested function bodies are not stored
// separately: DefFunctionPush compiles a function literal inline in Code
// and jumps over its body, so a Fn value's only payload is an entry ip, an
// arity and a captured environment (see vm.Fn).
type Program struct {
	Code    []byte
	Lines   []LineEntry
	Strings []string
}

// LineAt returns the source line containing ip, or 0 if ip falls outside
// every recorded range (e.g. a synthetic or malformed ip).
func (p *Program) LineAt(ip uint32) int {
	i := sort.Search(len(p.Lines), func(i int) bool { return p.Lines[i].ByteEnd > ip })
	if i < len(p.Lines) && p.Lines[i].ByteStart <= ip {
		return p.Lines[i].LineStart
	}
	return 0
}
