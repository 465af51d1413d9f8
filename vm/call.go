package vm

// callFrame is the dynamic call stack entry Call pushes and Ret pops: where
// to resume the caller's bytecode, and which Environment to make current
// again -- distinct from an Environment's own Parent chain, which tracks
// lexical nesting for closures, not call history.
type callFrame struct {
	returnIP  uint32
	callerEnv *Environment
}

// runCall implements the Call opcode (spec §4.3). The callee is popped;
// what happens to the nargs arguments below it on the stack depends on the
// callee's kind: a NativeFn pops them itself (the host ABI, §6.3), while an
// interpreted Fn leaves them exactly where they are, for its own compiled
// prologue (see compiler.compileFuncLit) to consume via ordinary
// SetLocal+Pop once the VM jumps into its body.
func (t *Thread) runCall(nargs int, returnIP uint32) error {
	callee := t.pop()
	switch c := callee.(type) {
	case *NativeFn:
		args := t.popN(nargs)
		v, err := c.Impl(t, args)
		Release(c)
		if err != nil {
			return err
		}
		t.push(v)
		return nil

	case *Fn:
		if nargs != c.Nargs {
			Release(c)
			return newErr(KindArityMismatch, "%s expects %d arguments, got %d", c.String(), c.Nargs, nargs)
		}
		if t.MaxCallDepth != 0 && len(t.calls) >= t.MaxCallDepth {
			Release(c)
			return newErr(KindStackOverflow, "call depth exceeded %d", t.MaxCallDepth)
		}
		t.enterFn(c.EntryIP, c.Env, returnIP)
		Release(c)
		return nil

	case *Record:
		return t.runConstructorCall(c, nargs, returnIP)

	default:
		Release(callee)
		return newErr(KindNotCallable, "value of type %s is not callable", callee.Type())
	}
}

// runConstructorCall implements record-as-constructor (grounded on hana's
// JMP_INTERPRETED_FN macro, see SPEC_FULL.md D.2): "constructor" is
// resolved on rec's own fields only. A native constructor runs exactly
// like a plain native call -- no child record is allocated around it, the
// native itself returns whatever stands in for self. A function
// constructor's arity must be the supplied args plus one (self); the VM
// allocates the child record, sets its prototype to rec, and splices it in
// as the bottom-most (first-declared-parameter) argument before jumping
// in, so the constructor's own prologue binds it to slot 0 like any other
// parameter.
func (t *Thread) runConstructorCall(rec *Record, nargs int, returnIP uint32) error {
	ctorVal, ok := rec.OwnGet("constructor")
	if !ok {
		Release(rec)
		return newErr(KindNoConstructor, "record has no constructor")
	}
	switch ctor := ctorVal.(type) {
	case *NativeFn:
		args := t.popN(nargs)
		v, err := ctor.Impl(t, args)
		Release(rec)
		if err != nil {
			return err
		}
		t.push(v)
		return nil

	case *Fn:
		if nargs+1 != ctor.Nargs {
			Release(rec)
			return newErr(KindArityMismatch, "constructor expects %d arguments, got %d", ctor.Nargs-1, nargs)
		}
		if t.MaxCallDepth != 0 && len(t.calls) >= t.MaxCallDepth {
			Release(rec)
			return newErr(KindStackOverflow, "call depth exceeded %d", t.MaxCallDepth)
		}
		self := NewRecord()
		self.Set("prototype", rec) // retains rec for the new field
		Release(rec)               // drop this function's own popped-stack reference
		t.insertBelowTop(nargs, self)
		t.enterFn(ctor.EntryIP, ctor.Env, returnIP)
		return nil

	default:
		Release(rec)
		return newErr(KindNoConstructor, "constructor must be a function")
	}
}

// enterFn pushes a call frame recording where and in which environment to
// resume the caller, then switches the interpreter into fn's body: a fresh
// environment parented at its lexically captured env (never the caller's
// dynamic one), entered at entryIP -- the EnvNew reserving the body's
// locals, which sizes this placeholder zero-slot environment once decoded.
func (t *Thread) enterFn(entryIP uint32, capturedEnv *Environment, returnIP uint32) {
	t.calls = append(t.calls, callFrame{returnIP: returnIP, callerEnv: t.env})
	t.env = NewEnvironment(0, capturedEnv)
	t.ip = entryIP
}

// runRet implements Ret: restore ip and the caller's environment, and
// release the callee environment's reference now that control is leaving
// it (a closure that captured it keeps it alive independently).
func (t *Thread) runRet() {
	f := t.calls[len(t.calls)-1]
	t.calls = t.calls[:len(t.calls)-1]
	calleeEnv := t.env
	t.env = f.callerEnv
	t.ip = f.returnIP
	Release(calleeEnv)
}
