package compiler

import (
	"fmt"

	"github.com/dolthub/swiss"
	"github.com/mna/calyx/lang/ast"
	"github.com/mna/calyx/lang/token"
)

// funcState tracks slot allocation for one function body (or the top-level
// chunk, which is compiled as an implicit function at depth 0).
type funcState struct {
	nextSlot   uint16
	envNewAt   uint32 // position of EnvNew's u16 operand, patched once nextSlot is final
	depth      int
}

// blockScope is one lexical block's name bindings. funcDepth records which
// funcState owns the slots declared in this scope, so identifier
// resolution can compute the "up" count (number of enclosing function
// boundaries crossed) expected by GetLocalUp/SetLocalUp.
type blockScope struct {
	names     map[string]uint16
	funcDepth int
	parent    *blockScope
}

// loopState records patch sites for break/continue inside one loop.
type loopState struct {
	breaks    []uint32
	continues []uint32
	parent    *loopState
}

type compiler struct {
	w       writer
	scope   *blockScope
	funcs   []*funcState
	loop    *loopState
	lines   []LineEntry
	strings *swiss.Map[string, uint32]
	strTab  []string
	curLine int
}

// Compile turns chunk into a flat bytecode Program. It is a single pass:
// statements and expressions are emitted directly as the tree is walked,
// with forward references (jumps, function bodies) back-patched once their
// target address is known.
func Compile(chunk *ast.Chunk) (*Program, error) {
	c := &compiler{
		strings: swiss.NewMap[string, uint32](16),
	}
	top := &funcState{depth: 0}
	c.funcs = append(c.funcs, top)
	c.scope = &blockScope{names: map[string]uint16{}, funcDepth: 0}

	top.envNewAt = c.w.op(EnvNew) + 1
	c.w.u16(0)

	if err := c.compileBlock(chunk.Block); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", chunk.Name, err)
	}
	c.w.op(Halt)
	c.w.patchU32ForU16(top.envNewAt, top.nextSlot)

	return &Program{Code: c.w.code, Lines: c.lines, Strings: c.strTab}, nil
}

func (w *writer) patchU32ForU16(pos uint32, v uint16) {
	w.code[pos] = byte(v >> 8)
	w.code[pos+1] = byte(v)
}

func (c *compiler) curFunc() *funcState { return c.funcs[len(c.funcs)-1] }

func (c *compiler) pushScope() {
	c.scope = &blockScope{names: map[string]uint16{}, funcDepth: c.curFunc().depth, parent: c.scope}
}

func (c *compiler) popScope() { c.scope = c.scope.parent }

func (c *compiler) declareLocal(name string) uint16 {
	f := c.curFunc()
	slot := f.nextSlot
	f.nextSlot++
	c.scope.names[name] = slot
	return slot
}

// allocTemp reserves a slot in the current function with no visible name,
// used to stash intermediate values (a looked-up method, a record being
// built) across instructions that would otherwise need a stack shuffle the
// opcode catalog has no opcode for.
func (c *compiler) allocTemp() uint16 {
	f := c.curFunc()
	slot := f.nextSlot
	f.nextSlot++
	return slot
}

// resolve looks up name in the lexical scope chain, returning (slot, up,
// true) if found, or (0, 0, false) if it must be treated as a global.
func (c *compiler) resolve(name string) (slot uint16, up uint16, ok bool) {
	for s := c.scope; s != nil; s = s.parent {
		if slot, found := s.names[name]; found {
			return slot, uint16(c.curFunc().depth - s.funcDepth), true
		}
	}
	return 0, 0, false
}

func (c *compiler) internString(s string) uint32 {
	if idx, ok := c.strings.Get(s); ok {
		return idx
	}
	idx := uint32(len(c.strTab))
	c.strTab = append(c.strTab, s)
	c.strings.Put(s, idx)
	return idx
}

func (c *compiler) markLine(pos ast.Position) {
	if pos.Line == 0 || pos.Line == c.curLine {
		return
	}
	c.curLine = pos.Line
	ip := c.w.len()
	if n := len(c.lines); n > 0 {
		c.lines[n-1].ByteEnd = ip
	}
	c.lines = append(c.lines, LineEntry{ByteStart: ip, ByteEnd: ip, LineStart: pos.Line, LineEnd: pos.Line})
}

func (c *compiler) compileBlock(b *ast.Block) error {
	c.pushScope()
	defer c.popScope()
	for _, s := range b.Stmts {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileStmt(s ast.Stmt) error {
	c.markLine(s.Pos())
	switch s := s.(type) {
	case *ast.ExprStmt:
		if err := c.compileExpr(s.X); err != nil {
			return err
		}
		c.w.op(Pop)
		return nil
	case *ast.LocalDecl:
		if s.Init != nil {
			if err := c.compileExpr(s.Init); err != nil {
				return err
			}
		} else {
			c.w.op(PushNil)
		}
		slot := c.declareLocal(s.Name)
		c.w.op(SetLocal)
		c.w.u16(slot)
		c.w.op(Pop) // SetLocal peeks rather than pops, matching the original's env_set(array_top(...))
		return nil
	case *ast.Assign:
		if err := c.compileAssign(s); err != nil {
			return err
		}
		c.w.op(Pop) // SetLocal/SetGlobal/MemberSet/IndexSet all leave the assigned value on top
		return nil
	case *ast.IfStmt:
		return c.compileIf(s)
	case *ast.WhileStmt:
		return c.compileWhile(s)
	case *ast.ForStmt:
		return c.compileFor(s)
	case *ast.ReturnStmt:
		if s.Value != nil {
			if err := c.compileExpr(s.Value); err != nil {
				return err
			}
		} else {
			c.w.op(PushNil)
		}
		c.w.op(Ret)
		return nil
	case *ast.BreakStmt:
		if c.loop == nil {
			return fmt.Errorf("break outside loop at %s", s.Start)
		}
		pos := c.w.op(Jmp) + 1
		c.w.u32(0)
		c.loop.breaks = append(c.loop.breaks, pos)
		return nil
	case *ast.ContinueStmt:
		if c.loop == nil {
			return fmt.Errorf("continue outside loop at %s", s.Start)
		}
		pos := c.w.op(Jmp) + 1
		c.w.u32(0)
		c.loop.continues = append(c.loop.continues, pos)
		return nil
	case *ast.TryStmt:
		return c.compileTry(s)
	case *ast.RaiseStmt:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.w.op(Raise)
		return nil
	case *ast.FuncDecl:
		slot := c.declareLocal(s.Fn.Name)
		if err := c.compileFuncLit(s.Fn); err != nil {
			return err
		}
		c.w.op(SetLocalFunctionDef)
		c.w.u16(slot)
		return nil
	default:
		return fmt.Errorf("compiler: unhandled statement %T", s)
	}
}

func (c *compiler) compileIf(s *ast.IfStmt) error {
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	elseAt := c.w.op(JNCond) + 1
	c.w.u32(0)
	if err := c.compileBlock(s.Then); err != nil {
		return err
	}
	if s.Else != nil {
		endAt := c.w.op(Jmp) + 1
		c.w.u32(0)
		c.w.patchU32(elseAt, c.w.len())
		if err := c.compileBlock(s.Else); err != nil {
			return err
		}
		c.w.patchU32(endAt, c.w.len())
	} else {
		c.w.patchU32(elseAt, c.w.len())
	}
	return nil
}

func (c *compiler) compileWhile(s *ast.WhileStmt) error {
	start := c.w.len()
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	endAt := c.w.op(JNCond) + 1
	c.w.u32(0)

	c.loop = &loopState{parent: c.loop}
	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	loop := c.loop
	c.loop = loop.parent

	for _, p := range loop.continues {
		c.w.patchU32(p, start)
	}
	c.w.op(Jmp)
	c.w.u32(start)
	end := c.w.len()
	c.w.patchU32(endAt, end)
	for _, p := range loop.breaks {
		c.w.patchU32(p, end)
	}
	return nil
}

func (c *compiler) compileFor(s *ast.ForStmt) error {
	c.pushScope()
	defer c.popScope()

	if s.Init != nil {
		if err := c.compileStmt(s.Init); err != nil {
			return err
		}
	}
	condAt := c.w.len()
	var endAt uint32
	if s.Cond != nil {
		if err := c.compileExpr(s.Cond); err != nil {
			return err
		}
		endAt = c.w.op(JNCond) + 1
		c.w.u32(0)
	}

	c.loop = &loopState{parent: c.loop}
	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	loop := c.loop
	c.loop = loop.parent

	postAt := c.w.len()
	if s.Post != nil {
		if err := c.compileStmt(s.Post); err != nil {
			return err
		}
	}
	c.w.op(Jmp)
	c.w.u32(condAt)
	end := c.w.len()
	if s.Cond != nil {
		c.w.patchU32(endAt, end)
	}
	for _, p := range loop.continues {
		c.w.patchU32(p, postAt)
	}
	for _, p := range loop.breaks {
		c.w.patchU32(p, end)
	}
	return nil
}

// compileTry emits the sentinel-terminated [nil, handler, etype, ...] run
// expected by Try, then the protected body, then an ExframeRet pairing
// back to the same recovery ip recorded in Try's operand.
func (c *compiler) compileTry(s *ast.TryStmt) error {
	c.w.op(PushNil)
	for _, cs := range s.Cases {
		if err := c.compileFuncLit(cs.Handler); err != nil {
			return err
		}
		if err := c.compileExpr(cs.ErrType); err != nil {
			return err
		}
	}
	tryAt := c.w.op(Try) + 1
	c.w.u32(0)

	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	c.w.op(ExframeRet)
	c.w.u32(0) // unused operand slot kept for symmetry with Try's encoding; ip after body is the recovery target

	end := c.w.len()
	c.w.patchU32(tryAt, end)
	return nil
}

func (c *compiler) compileAssign(a *ast.Assign) error {
	switch t := a.Target.(type) {
	case *ast.Ident:
		if a.Op != token.ILLEGAL {
			if err := c.loadIdent(t.Name, t.Start); err != nil {
				return err
			}
			if err := c.compileExpr(a.Value); err != nil {
				return err
			}
			c.emitBinOp(a.Op)
		} else if err := c.compileExpr(a.Value); err != nil {
			return err
		}
		return c.storeIdent(t.Name, t.Start)

	case *ast.IndexExpr:
		if err := c.compileExpr(t.Target); err != nil {
			return err
		}
		if err := c.compileExpr(t.Index); err != nil {
			return err
		}
		tmpIdx := c.allocTemp()
		c.w.op(SetLocal)
		c.w.u16(tmpIdx)
		c.w.op(Pop)
		tmpCont := c.allocTemp()
		c.w.op(SetLocal)
		c.w.u16(tmpCont)
		c.w.op(Pop)

		if a.Op != token.ILLEGAL {
			c.w.op(GetLocal)
			c.w.u16(tmpCont)
			c.w.op(GetLocal)
			c.w.u16(tmpIdx)
			c.w.op(IndexGet)
			if err := c.compileExpr(a.Value); err != nil {
				return err
			}
			c.emitBinOp(a.Op)
		} else if err := c.compileExpr(a.Value); err != nil {
			return err
		}
		c.w.op(GetLocal)
		c.w.u16(tmpCont)
		c.w.op(GetLocal)
		c.w.u16(tmpIdx)
		c.w.op(IndexSet)
		return nil

	case *ast.MemberExpr:
		if err := c.compileExpr(t.Target); err != nil {
			return err
		}
		tmpRec := c.allocTemp()
		c.w.op(SetLocal)
		c.w.u16(tmpRec)
		c.w.op(Pop)

		if a.Op != token.ILLEGAL {
			c.w.op(GetLocal)
			c.w.u16(tmpRec)
			c.w.op(MemberGet)
			c.w.u32(c.internString(t.Key))
			if err := c.compileExpr(a.Value); err != nil {
				return err
			}
			c.emitBinOp(a.Op)
		} else if err := c.compileExpr(a.Value); err != nil {
			return err
		}
		c.w.op(GetLocal)
		c.w.u16(tmpRec)
		c.w.op(MemberSet)
		c.w.u32(c.internString(t.Key))
		return nil

	default:
		return fmt.Errorf("compiler: invalid assignment target %T at %s", t, a.Start)
	}
}

func (c *compiler) loadIdent(name string, pos ast.Position) error {
	if slot, up, ok := c.resolve(name); ok {
		if up == 0 {
			c.w.op(GetLocal)
			c.w.u16(slot)
		} else {
			c.w.op(GetLocalUp)
			c.w.u16(slot)
			c.w.u16(up)
		}
		return nil
	}
	c.w.op(GetGlobal)
	c.w.u32(c.internString(name))
	return nil
}

func (c *compiler) storeIdent(name string, pos ast.Position) error {
	if slot, up, ok := c.resolve(name); ok {
		if up == 0 {
			c.w.op(SetLocal)
			c.w.u16(slot)
		} else {
			c.w.op(SetLocalUp)
			c.w.u16(slot)
			c.w.u16(up)
		}
		return nil
	}
	c.w.op(SetGlobal)
	c.w.u32(c.internString(name))
	return nil
}

func (c *compiler) emitBinOp(op token.Token) {
	switch op {
	case token.PLUS:
		c.w.op(Add)
	case token.MINUS:
		c.w.op(Sub)
	case token.STAR:
		c.w.op(Mul)
	case token.SLASH:
		c.w.op(Div)
	case token.PCT:
		c.w.op(Mod)
	case token.LT:
		c.w.op(Lt)
	case token.LE:
		c.w.op(Leq)
	case token.GT:
		c.w.op(Gt)
	case token.GE:
		c.w.op(Geq)
	case token.EQL:
		c.w.op(Eq)
	case token.NEQ:
		c.w.op(Neq)
	}
}

func (c *compiler) compileExpr(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.NilLit:
		c.w.op(PushNil)
		return nil
	case *ast.BoolLit:
		c.w.op(Push8)
		if e.Value {
			c.w.u8(1)
		} else {
			c.w.u8(0)
		}
		return nil
	case *ast.IntLit:
		return c.emitIntLit(e.Value)
	case *ast.FloatLit:
		c.w.op(PushF64)
		c.w.f64(e.Value)
		return nil
	case *ast.StringLit:
		c.w.op(PushStr)
		c.w.u32(c.internString(e.Value))
		return nil
	case *ast.Ident:
		return c.loadIdent(e.Name, e.Start)
	case *ast.ArrayLit:
		for _, el := range e.Elems {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		c.w.op(ArrayLoad)
		c.w.u16(uint16(len(e.Elems)))
		return nil
	case *ast.RecordLit:
		return c.compileRecordLit(e)
	case *ast.FuncLit:
		return c.compileFuncLit(e)
	case *ast.CallExpr:
		return c.compileCall(e)
	case *ast.IndexExpr:
		if err := c.compileExpr(e.Target); err != nil {
			return err
		}
		if err := c.compileExpr(e.Index); err != nil {
			return err
		}
		c.w.op(IndexGet)
		return nil
	case *ast.MemberExpr:
		if err := c.compileExpr(e.Target); err != nil {
			return err
		}
		if e.NoPop {
			c.w.op(MemberGetNoPop)
		} else {
			c.w.op(MemberGet)
		}
		c.w.u32(c.internString(e.Key))
		return nil
	case *ast.BinOpExpr:
		return c.compileBinOp(e)
	case *ast.UnaryExpr:
		return c.compileUnary(e)
	default:
		return fmt.Errorf("compiler: unhandled expression %T", e)
	}
}

func (c *compiler) emitIntLit(v int64) error {
	switch {
	case v >= -128 && v <= 127:
		c.w.op(Push8)
		c.w.u8(uint8(int8(v)))
	case v >= -32768 && v <= 32767:
		c.w.op(Push16)
		c.w.u16(uint16(int16(v)))
	case v >= -(1<<31) && v <= (1<<31)-1:
		c.w.op(Push32)
		c.w.u32(uint32(int32(v)))
	default:
		c.w.op(Push64)
		c.w.u64(uint64(v))
	}
	return nil
}

// compileRecordLit builds the plain-field dictionary via DictLoad, then
// binds methods onto it with MemberSet, stashing the record in a temp
// local across instructions since the catalog has no stack-duplicate
// opcode to recover it after MemberSet consumes it.
func (c *compiler) compileRecordLit(e *ast.RecordLit) error {
	c.w.op(PushNil)
	for i := len(e.Fields) - 1; i >= 0; i-- {
		f := e.Fields[i]
		if err := c.compileExpr(f.Value); err != nil {
			return err
		}
		c.w.op(PushStr)
		c.w.u32(c.internString(f.Key))
	}
	c.w.op(DictLoad)

	if len(e.Methods) == 0 {
		return nil
	}

	tmp := c.allocTemp()
	c.w.op(SetLocal)
	c.w.u16(tmp)
	c.w.op(Pop)
	for _, m := range e.Methods {
		if err := c.compileFuncLit(m.Fn); err != nil {
			return err
		}
		c.w.op(GetLocal)
		c.w.u16(tmp)
		c.w.op(MemberSet)
		c.w.u32(c.internString(m.Name))
		c.w.op(Pop)
	}
	c.w.op(GetLocal)
	c.w.u16(tmp)
	return nil
}

// compileFuncLit emits a DefFunctionPush whose body is compiled inline and
// skipped over at runtime; the pushed Fn value's entry ip is the
// instruction right after this one's operands.
func (c *compiler) compileFuncLit(fn *ast.FuncLit) error {
	c.w.op(DefFunctionPush)
	c.w.u16(uint16(len(fn.Params)))
	endAt := c.w.len()
	c.w.u32(0)

	nf := &funcState{depth: c.curFunc().depth + 1}
	c.funcs = append(c.funcs, nf)
	c.scope = &blockScope{names: map[string]uint16{}, funcDepth: nf.depth, parent: c.scope}

	for _, p := range fn.Params {
		slot := nf.nextSlot
		nf.nextSlot++
		c.scope.names[p] = slot
	}

	nf.envNewAt = c.w.op(EnvNew) + 1
	c.w.u16(0)

	// Call leaves every argument on the operand stack (rightmost/last on
	// top); it never copies them into slots itself. The prologue below
	// does that, consuming them in reverse declaration order so the
	// bottom-most (first-declared) parameter, ending up in slot 0, is
	// consumed last -- mirroring a local declaration's SetLocal+Pop.
	for i := len(fn.Params) - 1; i >= 0; i-- {
		c.w.op(SetLocal)
		c.w.u16(uint16(i))
		c.w.op(Pop)
	}

	if err := c.compileBlock(fn.Body); err != nil {
		return err
	}
	if len(fn.Body.Stmts) == 0 || !fn.Body.Stmts[len(fn.Body.Stmts)-1].BlockEnding() {
		c.w.op(PushNil)
		c.w.op(Ret)
	}
	c.w.patchU32ForU16(nf.envNewAt, nf.nextSlot)

	c.scope = c.scope.parent
	c.funcs = c.funcs[:len(c.funcs)-1]

	c.w.patchU32(endAt, c.w.len())
	return nil
}

// compileCall evaluates arguments left-to-right and pushes the callee
// last, matching Call's documented "pops the callee" contract. A method
// call (Fn is a MemberExpr) binds the receiver as the implicit first
// argument via MemberGetNoPop, stashing the looked-up function in a temp
// local while the remaining arguments are evaluated.
func (c *compiler) compileCall(e *ast.CallExpr) error {
	if m, ok := e.Fn.(*ast.MemberExpr); ok {
		if err := c.compileExpr(m.Target); err != nil {
			return err
		}
		c.w.op(MemberGetNoPop)
		c.w.u32(c.internString(m.Key))
		tmp := c.allocTemp()
		c.w.op(SetLocal)
		c.w.u16(tmp)
		c.w.op(Pop)

		for _, a := range e.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		c.w.op(GetLocal)
		c.w.u16(tmp)
		c.w.op(Call)
		c.w.u16(uint16(len(e.Args) + 1))
		return nil
	}

	for _, a := range e.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	if err := c.compileExpr(e.Fn); err != nil {
		return err
	}
	c.w.op(Call)
	c.w.u16(uint16(len(e.Args)))
	return nil
}

func (c *compiler) compileBinOp(e *ast.BinOpExpr) error {
	if e.Op == token.AND || e.Op == token.OR {
		return c.compileShortCircuit(e)
	}
	if err := c.compileExpr(e.LHS); err != nil {
		return err
	}
	if err := c.compileExpr(e.RHS); err != nil {
		return err
	}
	c.emitBinOp(e.Op)
	return nil
}

// compileShortCircuit compiles `and`/`or` with short-circuit jumps instead
// of the catalog's eager And/Or opcodes (those remain available to
// hand-written bytecode, e.g. via the assembler, but the compiler never
// emits them for source-level and/or).
func (c *compiler) compileShortCircuit(e *ast.BinOpExpr) error {
	isAnd := e.Op == token.AND
	var shortJumps []uint32

	emitShortJump := func() {
		var at uint32
		if isAnd {
			at = c.w.op(JNCond) + 1
		} else {
			at = c.w.op(JCond) + 1
		}
		c.w.u32(0)
		shortJumps = append(shortJumps, at)
	}

	if err := c.compileExpr(e.LHS); err != nil {
		return err
	}
	emitShortJump()
	if err := c.compileExpr(e.RHS); err != nil {
		return err
	}
	emitShortJump()

	var longVal, shortVal uint8
	if isAnd {
		longVal, shortVal = 1, 0
	} else {
		longVal, shortVal = 0, 1
	}
	c.w.op(Push8)
	c.w.u8(longVal)
	endAt := c.w.op(Jmp) + 1
	c.w.u32(0)

	shortTarget := c.w.len()
	for _, at := range shortJumps {
		c.w.patchU32(at, shortTarget)
	}
	c.w.op(Push8)
	c.w.u8(shortVal)
	c.w.patchU32(endAt, c.w.len())
	return nil
}

func (c *compiler) compileUnary(e *ast.UnaryExpr) error {
	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	switch e.Op {
	case token.UMINUS:
		c.w.op(Negate)
	case token.NOT:
		c.w.op(Not)
	case token.UPLUS:
		// identity: the catalog has no dedicated unary-plus opcode
	}
	return nil
}
