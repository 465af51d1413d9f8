package vm

import (
	"fmt"
	"io"

	"github.com/mna/calyx/lang/compiler"
	"github.com/mna/calyx/vm/hashmap"
)

// Thread is one interpreter instance: its operand stack, current
// environment, call and exception-frame stacks, and the global state
// (bootstrap prototypes, the globals table, Stdout/Stderr) a running
// program executes against. A Thread is single-goroutine; embedders
// wanting concurrency run one Thread per goroutine, each with its own
// Globals (spec §6.4 deliberately leaves sharing globals across threads
// out of scope).
type Thread struct {
	Stdout io.Writer
	Stderr io.Writer

	Globals *hashmap.Map[Value]

	StringProto *Record
	IntProto    *Record
	FloatProto  *Record
	ArrayProto  *Record
	RecordProto *Record
	ErrorProtos map[Kind]*Record

	// MaxSteps, if nonzero, caps the number of instructions Run executes
	// before it aborts with a fatal budget error (internal/config wires
	// this up for the host binary; zero here means unlimited).
	MaxSteps int64
	// MaxCallDepth, if nonzero, caps len(calls); Call raises a
	// StackOverflowError once exceeded, like any other runtime error.
	MaxCallDepth int

	prog  *compiler.Program
	stack []Value
	env   *Environment
	calls []callFrame
	exc   *ExceptionFrame
	ip    uint32
	steps int64
}

// NewThread returns a freshly bootstrapped Thread, its globals populated
// per spec §6.4 and ready to Run a compiled Program.
func NewThread(stdout, stderr io.Writer) *Thread {
	t := &Thread{Stdout: stdout, Stderr: stderr, Globals: newGlobals()}
	t.bootstrap()
	return t
}

func (t *Thread) push(v Value) { t.stack = append(t.stack, v) }

func (t *Thread) pop() Value {
	v := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return v
}

func (t *Thread) top() Value { return t.stack[len(t.stack)-1] }

// popN pops and returns the top n values in original (bottom-to-top)
// order, the layout the host ABI and Array/constructor-argument code
// expect.
func (t *Thread) popN(n int) []Value {
	if n == 0 {
		return nil
	}
	start := len(t.stack) - n
	vs := append([]Value(nil), t.stack[start:]...)
	t.stack = t.stack[:start]
	return vs
}

// insertBelowTop splices v below the top nargs values on the stack,
// used by the record-as-constructor call path to bind the freshly
// allocated self record as the bottom-most (first-declared-parameter)
// argument without disturbing the nargs values already pushed above it.
func (t *Thread) insertBelowTop(nargs int, v Value) {
	idx := len(t.stack) - nargs
	t.stack = append(t.stack, nil)
	copy(t.stack[idx+1:], t.stack[idx:len(t.stack)-1])
	t.stack[idx] = v
}

func (t *Thread) setGlobal(name string, val Value) {
	if old, ok := t.Globals.Get(name); ok {
		Release(old)
	}
	Retain(val)
	t.Globals.Set(name, val)
}

// prototypeOf returns the method-bag record v dispatches member lookups
// against: a Record's own cached Proto for records, and the shared
// per-type bag for the primitive heap and value types. Returns nil for
// anything with no member protocol.
func (t *Thread) prototypeOf(v Value) *Record {
	switch v := v.(type) {
	case *Record:
		return v.Proto
	case *Str:
		return t.StringProto
	case Int:
		return t.IntProto
	case Float:
		return t.FloatProto
	case *Array:
		return t.ArrayProto
	default:
		return nil
	}
}

// memberGet implements the MemberGet/MemberGetNoPop lookup rule: a
// Record's own Get already walks its own chain; every other receiver
// type dispatches into its shared prototype bag (which may itself have a
// Proto chain of its own, e.g. a user record replacing StringProto).
func (t *Thread) memberGet(recv Value, key string) (Value, error) {
	if rec, ok := recv.(*Record); ok {
		if v, ok := rec.Get(key); ok {
			return v, nil
		}
		return nil, newErr(KindBadMemberTarget, "no member %q on %s", key, recv.Type())
	}
	if proto := t.prototypeOf(recv); proto != nil {
		if v, ok := proto.Get(key); ok {
			return v, nil
		}
	}
	return nil, newErr(KindBadMemberTarget, "no member %q on %s", key, recv.Type())
}

func (t *Thread) readU8() uint8 {
	v := readU8(t.prog.Code, t.ip)
	t.ip++
	return v
}

func (t *Thread) readU16() uint16 {
	v := readU16(t.prog.Code, t.ip)
	t.ip += 2
	return v
}

func (t *Thread) readU32() uint32 {
	v := readU32(t.prog.Code, t.ip)
	t.ip += 4
	return v
}

func (t *Thread) readU64() uint64 {
	v := readU64(t.prog.Code, t.ip)
	t.ip += 8
	return v
}

func (t *Thread) readF32() float32 {
	v := readF32(t.prog.Code, t.ip)
	t.ip += 4
	return v
}

func (t *Thread) readF64() float64 {
	v := readF64(t.prog.Code, t.ip)
	t.ip += 8
	return v
}

func (t *Thread) str(idx uint32) string { return t.prog.Strings[idx] }

// Run executes prog to completion (Halt) or a fatal, unhandled error.
// Non-fatal RuntimeErrors raised by an operation are funneled through
// the same Try/handler machinery as a source-level raise statement
// (spec §9 "Exceptions vs. errors"); an unhandled raise (no try frame
// left to catch it, whether the original error or a source raise) aborts
// Run. Run also aborts, without consulting any try frame, when MaxSteps
// is exceeded or an instruction fails with an error that is not a
// *RuntimeError (e.g. a non-string DictLoad key or a Retcall).
func (t *Thread) Run(prog *compiler.Program) error {
	t.prog = prog
	t.ip = 0
	for {
		if t.MaxSteps != 0 {
			t.steps++
			if t.steps > t.MaxSteps {
				return &EvalError{IP: t.ip, Line: prog.LineAt(t.ip), Err: newErr(KindStepBudgetExceeded, "exceeded step budget of %d", t.MaxSteps)}
			}
		}
		startIP := t.ip
		op := compiler.Opcode(t.readU8())
		if op == compiler.Halt {
			return nil
		}
		err := t.step(op)
		if err == nil {
			continue
		}
		re, ok := err.(*RuntimeError)
		if !ok {
			return &EvalError{IP: startIP, Line: prog.LineAt(startIP), Err: err}
		}
		if re.Kind == KindUnhandledRaise {
			return &EvalError{IP: startIP, Line: prog.LineAt(startIP), Err: re}
		}
		if rerr := t.raise(t.newRuntimeErrorValue(re)); rerr != nil {
			return &EvalError{IP: startIP, Line: prog.LineAt(startIP), Err: rerr}
		}
	}
}

// step executes the single instruction op, whose opcode byte has already
// been consumed (t.ip points at its first operand byte, if any). Halt is
// handled by Run directly and never reaches here.
func (t *Thread) step(op compiler.Opcode) error {
	switch op {
	case compiler.Push8:
		t.push(Int(int8(t.readU8())))
	case compiler.Push16:
		t.push(Int(int16(t.readU16())))
	case compiler.Push32:
		t.push(Int(int32(t.readU32())))
	case compiler.Push64:
		t.push(Int(int64(t.readU64())))
	case compiler.PushF32:
		t.push(Float(t.readF32()))
	case compiler.PushF64:
		t.push(Float(t.readF64()))
	case compiler.PushStr:
		t.push(NewStr(t.str(t.readU32())))
	case compiler.PushNil:
		t.push(Nil{})

	case compiler.Pop:
		Release(t.pop())

	case compiler.Lt, compiler.Leq, compiler.Gt, compiler.Geq:
		b, a := t.pop(), t.pop()
		v, err := Compare(compareOpName(op), a, b)
		Release(a)
		Release(b)
		if err != nil {
			return err
		}
		t.push(v)

	case compiler.Eq:
		b, a := t.pop(), t.pop()
		eq := Equal(a, b)
		Release(a)
		Release(b)
		t.push(boolInt(eq))

	case compiler.Neq:
		b, a := t.pop(), t.pop()
		eq := Equal(a, b)
		Release(a)
		Release(b)
		t.push(boolInt(!eq))

	case compiler.Add, compiler.Sub, compiler.Mul, compiler.Div, compiler.Mod, compiler.And, compiler.Or:
		b, a := t.pop(), t.pop()
		v, err := binOp(op, a, b)
		Release(a)
		Release(b)
		if err != nil {
			return err
		}
		t.push(v)

	case compiler.Negate:
		v := t.pop()
		r, err := Negate(v)
		Release(v)
		if err != nil {
			return err
		}
		t.push(r)

	case compiler.Not:
		v := t.pop()
		r, _ := Not(v)
		Release(v)
		t.push(r)

	case compiler.EnvNew:
		n := int(t.readU16())
		if t.env == nil {
			t.env = NewEnvironment(n, nil)
		} else {
			slots := make([]Value, n)
			for i := range slots {
				slots[i] = Nil{}
			}
			t.env.Slots = slots
		}

	case compiler.SetLocal:
		slot := t.readU16()
		t.env.setSlot(slot, t.top())

	case compiler.GetLocal:
		slot := t.readU16()
		v := t.env.getSlot(slot)
		Retain(v)
		t.push(v)

	case compiler.SetLocalUp:
		slot := t.readU16()
		up := t.readU16()
		t.env.at(up).setSlot(slot, t.top())

	case compiler.GetLocalUp:
		slot := t.readU16()
		up := t.readU16()
		v := t.env.at(up).getSlot(slot)
		Retain(v)
		t.push(v)

	case compiler.SetGlobal:
		name := t.str(t.readU32())
		t.setGlobal(name, t.top())

	case compiler.GetGlobal:
		name := t.str(t.readU32())
		v, ok := t.Globals.Get(name)
		if !ok {
			return newErr(KindUnboundGlobal, "unbound global %q", name)
		}
		Retain(v)
		t.push(v)

	case compiler.SetLocalFunctionDef:
		slot := t.readU16()
		fn := t.pop()
		Release(t.env.Slots[slot])
		t.env.Slots[slot] = fn

	case compiler.DefFunctionPush:
		nargs := int(t.readU16())
		endIP := t.readU32()
		entryIP := t.ip
		t.push(NewFn(entryIP, nargs, t.env, ""))
		t.ip = endIP

	case compiler.Jmp:
		t.ip = t.readU32()

	case compiler.JCond:
		target := t.readU32()
		cond := t.pop()
		truthy := Truthy(cond)
		Release(cond)
		if truthy {
			t.ip = target
		}

	case compiler.JNCond:
		target := t.readU32()
		cond := t.pop()
		truthy := Truthy(cond)
		Release(cond)
		if !truthy {
			t.ip = target
		}

	case compiler.Call:
		nargs := int(t.readU16())
		return t.runCall(nargs, t.ip)

	case compiler.Ret:
		v := t.pop()
		t.runRet()
		t.push(v)

	case compiler.Retcall:
		return fmt.Errorf("retcall is not part of the emitted catalog")

	case compiler.DictNew:
		t.push(NewRecord())

	case compiler.MemberGet:
		key := t.str(t.readU32())
		recv := t.pop()
		v, err := t.memberGet(recv, key)
		if err == nil {
			Retain(v)
		}
		Release(recv)
		if err != nil {
			return err
		}
		t.push(v)

	case compiler.MemberGetNoPop:
		key := t.str(t.readU32())
		recv := t.top()
		v, err := t.memberGet(recv, key)
		if err != nil {
			return err
		}
		Retain(v)
		t.push(v)

	case compiler.MemberSet:
		key := t.str(t.readU32())
		recv := t.pop()
		rec, ok := recv.(*Record)
		if !ok {
			Release(recv)
			return newErr(KindBadMemberTarget, "cannot set member %q on %s", key, recv.Type())
		}
		rec.Set(key, t.top())
		Release(rec)

	case compiler.DictLoad:
		rec := NewRecord()
		for {
			k := t.pop()
			if _, isNil := k.(Nil); isNil {
				break
			}
			ks, ok := k.(*Str)
			if !ok {
				return fmt.Errorf("dictload: non-string key %s", k.Type())
			}
			v := t.pop()
			rec.setOwned(ks.S, v)
			Release(ks)
		}
		t.push(rec)

	case compiler.ArrayLoad:
		n := int(t.readU16())
		elems := t.popN(n)
		t.push(NewArray(elems))

	case compiler.IndexGet:
		idx, a := t.pop(), t.pop()
		v, err := t.indexGet(a, idx)
		if err == nil {
			Retain(v)
		}
		Release(a)
		Release(idx)
		if err != nil {
			return err
		}
		t.push(v)

	case compiler.IndexSet:
		idx, a := t.pop(), t.pop()
		err := t.indexSet(a, idx, t.top())
		Release(a)
		Release(idx)
		if err != nil {
			return err
		}

	case compiler.Try:
		t.runTry()

	case compiler.Raise:
		v := t.pop()
		return t.raise(v)

	case compiler.ExframeRet:
		t.ip += 4 // recovery ip operand, unused: falling through already lands there
		Release(t.exc.unwindEnv)
		t.exc = t.exc.prev

	default:
		return fmt.Errorf("unimplemented opcode %s", op)
	}
	return nil
}

func compareOpName(op compiler.Opcode) string {
	switch op {
	case compiler.Lt:
		return "<"
	case compiler.Leq:
		return "<="
	case compiler.Gt:
		return ">"
	case compiler.Geq:
		return ">="
	default:
		return "?"
	}
}

func binOp(op compiler.Opcode, a, b Value) (Value, error) {
	switch op {
	case compiler.Add:
		return Add(a, b)
	case compiler.Sub:
		return Sub(a, b)
	case compiler.Mul:
		return Mul(a, b)
	case compiler.Div:
		return Div(a, b)
	case compiler.Mod:
		return Mod(a, b)
	case compiler.And:
		return And(a, b)
	case compiler.Or:
		return Or(a, b)
	default:
		return nil, fmt.Errorf("not a binary arithmetic opcode: %s", op)
	}
}

// indexGet implements IndexGet: Array by integer position, Str by
// integer position (returning a fresh one-character Str, so string
// immutability holds automatically), and Record by string key through
// the same Get rule MemberGet uses.
func (t *Thread) indexGet(recv, idx Value) (Value, error) {
	switch recv := recv.(type) {
	case *Array:
		i, ok := idx.(Int)
		if !ok {
			return nil, newErr(KindBadIndex, "array index must be an int, got %s", idx.Type())
		}
		if i < 0 || int(i) >= len(recv.Elems) {
			return nil, newErr(KindOutOfRange, "array index %d out of range (len %d)", i, len(recv.Elems))
		}
		return recv.Elems[i], nil
	case *Str:
		i, ok := idx.(Int)
		if !ok {
			return nil, newErr(KindBadIndex, "string index must be an int, got %s", idx.Type())
		}
		if i < 0 || int(i) >= len(recv.S) {
			return nil, newErr(KindOutOfRange, "string index %d out of range (len %d)", i, len(recv.S))
		}
		return NewStr(string(recv.S[i])), nil
	case *Record:
		key, ok := idx.(*Str)
		if !ok {
			return nil, newErr(KindBadIndex, "record index must be a string, got %s", idx.Type())
		}
		if v, ok := recv.Get(key.S); ok {
			return v, nil
		}
		return nil, newErr(KindBadIndex, "no member %q on record", key.S)
	default:
		return nil, newErr(KindBadIndex, "cannot index into %s", recv.Type())
	}
}

// indexSet implements IndexSet. Strings are immutable: indexing one for
// write is always a type mismatch, matching the original VM's read-only
// string semantics.
func (t *Thread) indexSet(recv, idx, val Value) error {
	switch recv := recv.(type) {
	case *Array:
		i, ok := idx.(Int)
		if !ok {
			return newErr(KindBadIndex, "array index must be an int, got %s", idx.Type())
		}
		if i < 0 || int(i) >= len(recv.Elems) {
			return newErr(KindOutOfRange, "array index %d out of range (len %d)", i, len(recv.Elems))
		}
		Retain(val)
		Release(recv.Elems[i])
		recv.Elems[i] = val
		return nil
	case *Str:
		return newErr(KindTypeMismatch, "strings are immutable")
	case *Record:
		key, ok := idx.(*Str)
		if !ok {
			return newErr(KindBadIndex, "record index must be a string, got %s", idx.Type())
		}
		recv.Set(key.S, val)
		return nil
	default:
		return newErr(KindBadIndex, "cannot index into %s", recv.Type())
	}
}

// runTry implements the Try opcode: it pops the sentinel-terminated
// [..., etypeN, handlerN, ..., etype1, handler1, nil] run compileTry
// emits (top of stack first, so each pair pops as etype then fn),
// building the frame's handler list, then pushes a new ExceptionFrame
// protecting the current environment from the teardown cascade a later
// raise's unwind may trigger (see ExceptionFrame's doc comment).
func (t *Thread) runTry() {
	recoveryIP := t.readU32()
	var handlers []exceptionHandler
	for {
		v := t.pop()
		if _, isNil := v.(Nil); isNil {
			break
		}
		etype := v.(*Record)
		fn := t.pop().(*Fn)
		handlers = append(handlers, exceptionHandler{etype: etype, fn: fn})
	}
	Retain(t.env)
	t.exc = &ExceptionFrame{
		handlers:       handlers,
		unwindEnv:      t.env,
		unwindStackLen: len(t.stack),
		recoveryIP:     recoveryIP,
		prev:           t.exc,
	}
}

// raise implements both the Raise opcode and the routing of an internal
// RuntimeError into the same mechanism (spec §9): it walks the exception
// frame chain looking for a handler whose etype equals v's own
// prototype (ExceptionFrame.matchHandler; no chain walk), unwinding the
// operand stack and environment to the matched frame's snapshot and
// entering its handler like an ordinary one-argument call. If no frame
// matches, v is released and KindUnhandledRaise is returned, fatal to
// Run.
func (t *Thread) raise(v Value) error {
	proto := t.prototypeOf(v)
	for t.exc != nil {
		frame := t.exc
		t.exc = frame.prev
		fn := frame.matchHandler(proto)
		if fn == nil {
			Release(frame.unwindEnv)
			continue
		}
		for len(t.stack) > frame.unwindStackLen {
			Release(t.pop())
		}
		Release(t.env)
		t.env = frame.unwindEnv
		t.push(v)
		t.enterFn(fn.EntryIP, fn.Env, frame.recoveryIP)
		return nil
	}
	Release(v)
	return newErr(KindUnhandledRaise, "unhandled raise: %s", v.String())
}
