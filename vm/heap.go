package vm

// refCounted is embedded by every heap-allocated value type to implement
// the Retain/Release half of heapValue. New values start at one live
// reference, the one returned to whoever allocated them.
type refCounted struct {
	refs int32
}

func (r *refCounted) Retain() { r.refs++ }

// Release decrements the count and reports whether it reached zero.
func (r *refCounted) Release() bool {
	r.refs--
	return r.refs <= 0
}
