// Package vm implements the tagged value model, reference-counted heap
// types, the lexical environment chain, exception frames, and the
// stack-based interpreter dispatch loop that executes a compiler.Program.
package vm

import "fmt"

// Value is implemented by every runtime value. Nil, Int and Float are
// plain Go value types copied by assignment; the remaining concrete types
// (Str, Array, Record, Fn, NativeFn, NativeObj) live on the heap and are
// manually reference-counted (see Retain/Release) rather than relying on
// Go's GC, matching the value model's ownership rules. Reference cycles
// among Array/Record/Fn values are accepted as leaks, same as the
// original VM; this module does nothing to detect or collect them.
type Value interface {
	// Type names the dynamic type, e.g. "int", "string", "record".
	Type() string
	String() string
}

// heapValue is implemented by the reference-counted heap types.
type heapValue interface {
	Value
	Retain()
	// Release decrements the refcount and reports whether it reached zero
	// (the caller is then responsible for any teardown, e.g. running a
	// NativeObj's destructor).
	Release() bool
}

// Retain increments v's refcount if v is heap-allocated; it is a no-op for
// value types (Nil, Int, Float).
func Retain(v Value) {
	if h, ok := v.(heapValue); ok {
		h.Retain()
	}
}

// Release decrements v's refcount if v is heap-allocated, running any
// teardown (NativeObj destructors) when it reaches zero. It is a no-op for
// value types.
func Release(v Value) {
	if h, ok := v.(heapValue); ok {
		if h.Release() {
			if d, ok := h.(interface{ teardown() }); ok {
				d.teardown()
			}
		}
	}
}

// Nil is the singular absence-of-value; the zero Nil{} is the only
// instance that should ever be constructed.
type Nil struct{}

func (Nil) Type() string   { return "nil" }
func (Nil) String() string { return "nil" }

// Int is a 64-bit signed integer value. Unlike the original VM, its
// truthiness rule is "nonzero" rather than "> 0" (see Truthy in ops.go);
// that is a deliberate, spec-mandated change, not an oversight.
type Int int64

func (Int) Type() string     { return "int" }
func (v Int) String() string { return fmt.Sprintf("%d", int64(v)) }

// Float is a 64-bit IEEE-754 floating-point value.
type Float float64

func (Float) Type() string     { return "float" }
func (v Float) String() string { return fmt.Sprintf("%g", float64(v)) }
