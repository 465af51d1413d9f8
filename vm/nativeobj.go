package vm

// NativeObj wraps a Go value (a file handle, a buffer, anything
// internal/hostlib needs to hand back into VM code) as a Value, with an
// optional destructor invoked exactly once when the refcount reaches
// zero, grounded on the original VM's native_obj.c.
type NativeObj struct {
	refCounted
	Name    string
	Data    any
	Destroy func(data any)
}

// NewNativeObj returns a NativeObj with one live reference. destroy may be
// nil if the wrapped data needs no teardown.
func NewNativeObj(name string, data any, destroy func(data any)) *NativeObj {
	return &NativeObj{refCounted: refCounted{refs: 1}, Name: name, Data: data, Destroy: destroy}
}

func (*NativeObj) Type() string     { return "native object" }
func (o *NativeObj) String() string { return "<native object " + o.Name + ">" }

func (o *NativeObj) teardown() {
	if o.Destroy != nil {
		o.Destroy(o.Data)
	}
}
