package vm_test

import (
	"testing"

	"github.com/mna/calyx/lang/compiler"
	"github.com/mna/calyx/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run assembles src, executes it on a fresh Thread and returns the global
// named "result" -- every program below stores its computed value there
// right before halt, since Thread exposes no accessor for the operand
// stack itself.
func run(t *testing.T, src string) (vm.Value, *vm.Thread) {
	t.Helper()
	prog, err := compiler.Asm(src)
	require.NoError(t, err)
	th := vm.NewThread(nil, nil)
	err = th.Run(prog)
	require.NoError(t, err)
	v, ok := th.Globals.Get("result")
	require.True(t, ok)
	return v, th
}

func TestThreadArithmeticAndGlobal(t *testing.T) {
	v, _ := run(t, `
		program:
			code:
				push8 2
				push8 3
				add
				setglobal "result"
				pop
				halt
	`)
	assert.Equal(t, vm.Int(5), v)
}

func TestThreadLocals(t *testing.T) {
	v, _ := run(t, `
		program:
			code:
				envnew 1
				push8 41
				setlocal 0
				pop
				getlocal 0
				push8 1
				add
				setglobal "result"
				pop
				halt
	`)
	assert.Equal(t, vm.Int(42), v)
}

// TestThreadFunctionCall exercises DefFunctionPush/Call/Ret for a
// two-parameter function, confirming parameters bind in reverse
// declaration order (the last-pushed argument is on top of the stack
// and is bound first).
func TestThreadFunctionCall(t *testing.T) {
	v, _ := run(t, `
		program:
			code:
				push8 2
				push8 3
				deffunctionpush 2 12
					envnew 2
					setlocal 1
					pop
					setlocal 0
					pop
					getlocal 0
					getlocal 1
					add
					ret
				call 2
				setglobal "result"
				pop
				halt
	`)
	assert.Equal(t, vm.Int(5), v)
}

// TestThreadRecordLiteral exercises DictLoad's sentinel-terminated pop
// loop and MemberGet. The fields are pushed in the same order
// compileRecordLit emits them (reverse declaration order, value then
// key), so the loaded record should have both "a" and "b" fields intact.
func TestThreadRecordLiteral(t *testing.T) {
	v, _ := run(t, `
		program:
			code:
				pushnil
				push8 2
				pushstr "b"
				push8 1
				pushstr "a"
				dictload
				memberget "a"
				setglobal "result"
				pop
				halt
	`)
	assert.Equal(t, vm.Int(1), v)
}

// TestThreadRecordLiteralDuplicateKeyLastWins builds a DictLoad stack by
// hand with a repeated key -- the pair closer to the bottom (pushed
// first, from a later field in source order) is popped last, so it
// overwrites the first insertion, matching "later declaration wins".
func TestThreadRecordLiteralDuplicateKeyLastWins(t *testing.T) {
	v, _ := run(t, `
		program:
			code:
				pushnil
				push8 1
				pushstr "a"
				push8 2
				pushstr "a"
				dictload
				memberget "a"
				setglobal "result"
				pop
				halt
	`)
	assert.Equal(t, vm.Int(1), v)
}

func TestThreadArrayIndex(t *testing.T) {
	v, _ := run(t, `
		program:
			code:
				push8 10
				push8 20
				push8 30
				arrayload 3
				push8 1
				indexget
				setglobal "result"
				pop
				halt
	`)
	assert.Equal(t, vm.Int(20), v)
}

func TestThreadArraySet(t *testing.T) {
	v, _ := run(t, `
		program:
			code:
				envnew 1
				push8 10
				push8 20
				push8 30
				arrayload 3
				setlocal 0
				pop
				push8 99
				getlocal 0
				push8 0
				indexset
				pop
				getlocal 0
				push8 0
				indexget
				setglobal "result"
				pop
				halt
	`)
	assert.Equal(t, vm.Int(99), v)
}

// TestThreadTryRaiseCatch builds a handler-guarded try block by hand: an
// empty record stands in for the caught error type, a raised record is
// given that exact record as its prototype, and the handler (bound to
// slot 0, the raised value) returns 99.
func TestThreadTryRaiseCatch(t *testing.T) {
	v, _ := run(t, `
		program:
			code:
				envnew 2
				dictnew
				setlocal 0
				pop
				pushnil
				deffunctionpush 1 11
					envnew 1
					setlocal 0
					pop
					push8 99
					ret
				getlocal 0
				try 23
					dictnew
					setlocal 1
					pop
					getlocal 0
					getlocal 1
					memberset "prototype"
					pop
					getlocal 1
					raise
				exframeret 23
				setglobal "result"
				pop
				halt
	`)
	assert.Equal(t, vm.Int(99), v)
}

func TestThreadUnhandledRaiseIsFatal(t *testing.T) {
	prog, err := compiler.Asm(`
		program:
			code:
				push8 1
				raise
	`)
	require.NoError(t, err)

	th := vm.NewThread(nil, nil)
	err = th.Run(prog)
	require.Error(t, err)

	evalErr, ok := err.(*vm.EvalError)
	require.True(t, ok)
	rtErr, ok := evalErr.Err.(*vm.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, vm.KindUnhandledRaise, rtErr.Kind)
}

func TestThreadMaxStepsIsFatalAndUncatchable(t *testing.T) {
	prog, err := compiler.Asm(`
		program:
			code:
				push8 1
				jmp 0
	`)
	require.NoError(t, err)

	th := vm.NewThread(nil, nil)
	th.MaxSteps = 1000
	err = th.Run(prog)
	require.Error(t, err)

	evalErr, ok := err.(*vm.EvalError)
	require.True(t, ok)
	rtErr, ok := evalErr.Err.(*vm.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, vm.KindStepBudgetExceeded, rtErr.Kind)
}

// TestThreadMaxCallDepthRaisesCatchableStackOverflow drives unbounded
// recursion into the call-depth limit. The resulting StackOverflowError
// goes through the ordinary raise path like any other RuntimeError (see
// call.go); with no try block guarding it here, it surfaces as an
// unhandled raise wrapping that error's message -- catchability itself
// is covered by errorProtoNames wiring and TestThreadTryRaiseCatch's
// handler-matching mechanics.
func TestThreadMaxCallDepthRaisesCatchableStackOverflow(t *testing.T) {
	prog, err := compiler.Asm(`
		program:
			code:
				deffunctionpush 0 4
					getglobal "recurse"
					call 0
					ret
				setglobal "recurse"
				pop
				getglobal "recurse"
				call 0
				setglobal "result"
				pop
				halt
	`)
	require.NoError(t, err)

	th := vm.NewThread(nil, nil)
	th.MaxCallDepth = 10
	err = th.Run(prog)
	require.Error(t, err)

	evalErr, ok := err.(*vm.EvalError)
	require.True(t, ok)
	rtErr, ok := evalErr.Err.(*vm.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, vm.KindUnhandledRaise, rtErr.Kind)
	assert.Contains(t, rtErr.Error(), "call depth exceeded")
}
