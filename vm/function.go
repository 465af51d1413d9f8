package vm

// Fn is an interpreted closure: an entry point into the owning Program's
// flat code buffer, a fixed arity, and the environment frame captured at
// the point the function literal was evaluated (DefFunctionPush). Nested
// function bodies are never stored as a separate table entry (unlike a
// Starlark-style multi-Funcode program): the body is compiled inline and
// skipped over at the definition site, so a closure's only payload is
// exactly what the original VM stores for its function values.
type Fn struct {
	refCounted
	EntryIP uint32
	Nargs   int
	Env     *Environment
	Name    string // optional, for diagnostics
}

// NewFn returns a Fn with one live reference; env's refcount is bumped
// since the closure keeps it alive for as long as the closure is alive.
func NewFn(entryIP uint32, nargs int, env *Environment, name string) *Fn {
	if env != nil {
		env.Retain()
	}
	return &Fn{refCounted: refCounted{refs: 1}, EntryIP: entryIP, Nargs: nargs, Env: env, Name: name}
}

func (*Fn) Type() string   { return "function" }
func (f *Fn) String() string {
	if f.Name != "" {
		return "<function " + f.Name + ">"
	}
	return "<function>"
}

func (f *Fn) teardown() {
	if f.Env != nil {
		Release(f.Env)
	}
}

// NativeFnImpl is the Go implementation behind a NativeFn value. args is
// exactly what Call popped off the operand stack, in source order: for a
// method call that includes the receiver as args[0] (lang/compiler's
// compileCall folds self into the Call opcode's arg count the same way
// for native and interpreted callees alike). Ownership of every element
// of args transfers to Impl -- it must Release whatever it does not keep
// a reference to by the time it returns, the same contract DictLoad and
// ArrayLoad have for their popped operands. The returned Value is pushed
// as-is (Impl must return something it already owns one reference to).
type NativeFnImpl func(t *Thread, args []Value) (Value, error)

// NativeFn adapts a Go function to a callable Value, used throughout
// internal/hostlib's method bags and the globals bootstrap.
type NativeFn struct {
	refCounted
	Name string
	Impl NativeFnImpl
}

// NewNativeFn returns a NativeFn with one live reference.
func NewNativeFn(name string, impl NativeFnImpl) *NativeFn {
	return &NativeFn{refCounted: refCounted{refs: 1}, Name: name, Impl: impl}
}

func (*NativeFn) Type() string     { return "native function" }
func (f *NativeFn) String() string { return "<native function " + f.Name + ">" }
