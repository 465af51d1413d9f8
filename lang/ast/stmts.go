package ast

import "github.com/mna/calyx/lang/token"

func (*ExprStmt) stmtNode()     {}
func (*LocalDecl) stmtNode()    {}
func (*Assign) stmtNode()       {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*TryStmt) stmtNode()      {}
func (*RaiseStmt) stmtNode()    {}
func (*FuncDecl) stmtNode()     {}

func (*ExprStmt) BlockEnding() bool     { return false }
func (*LocalDecl) BlockEnding() bool    { return false }
func (*Assign) BlockEnding() bool       { return false }
func (*IfStmt) BlockEnding() bool       { return false }
func (*WhileStmt) BlockEnding() bool    { return false }
func (*ForStmt) BlockEnding() bool      { return false }
func (*ReturnStmt) BlockEnding() bool   { return true }
func (*BreakStmt) BlockEnding() bool    { return true }
func (*ContinueStmt) BlockEnding() bool { return true }
func (*TryStmt) BlockEnding() bool      { return false }
func (*RaiseStmt) BlockEnding() bool    { return true }
func (*FuncDecl) BlockEnding() bool     { return false }

// ExprStmt is an expression evaluated for its side effects; its result is
// discarded (the compiler emits Pop after the expression).
type ExprStmt struct {
	Start Position
	X     Expr
}

func (n *ExprStmt) Pos() Position  { return n.Start }
func (n *ExprStmt) Walk(v Visitor) { Walk(v, n.X) }

// LocalDecl declares a new local, e.g. `let x = 1`. Init may be nil, in
// which case the slot is initialized to nil.
type LocalDecl struct {
	Start Position
	Name  string
	Init  Expr
}

func (n *LocalDecl) Pos() Position { return n.Start }
func (n *LocalDecl) Walk(v Visitor) {
	if n.Init != nil {
		Walk(v, n.Init)
	}
}

// Assign is `target op= value`. Op is token.ILLEGAL for a plain `=`;
// otherwise it names the arithmetic operator the compiler desugars the
// assignment into (`x += 1` becomes `x = x + 1` at compile time).
// Target is one of *Ident, *IndexExpr or *MemberExpr.
type Assign struct {
	Start  Position
	Target Expr
	Op     token.Token
	Value  Expr
}

func (n *Assign) Pos() Position { return n.Start }
func (n *Assign) Walk(v Visitor) {
	Walk(v, n.Target)
	Walk(v, n.Value)
}

// IfStmt is `if Cond { Then } else { Else }`; Else may be nil.
type IfStmt struct {
	Start Position
	Cond  Expr
	Then  *Block
	Else  *Block
}

func (n *IfStmt) Pos() Position { return n.Start }
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	if n.Else != nil {
		Walk(v, n.Else)
	}
}

// WhileStmt is `while Cond { Body }`.
type WhileStmt struct {
	Start Position
	Cond  Expr
	Body  *Block
}

func (n *WhileStmt) Pos() Position { return n.Start }
func (n *WhileStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
}

// ForStmt is a C-style counted loop: `for Init; Cond; Post { Body }`. Any
// of Init, Cond or Post may be nil. The catalog has no iterator opcodes,
// so for-in sequences are not a supported surface form.
type ForStmt struct {
	Start Position
	Init  Stmt
	Cond  Expr
	Post  Stmt
	Body  *Block
}

func (n *ForStmt) Pos() Position { return n.Start }
func (n *ForStmt) Walk(v Visitor) {
	if n.Init != nil {
		Walk(v, n.Init)
	}
	if n.Cond != nil {
		Walk(v, n.Cond)
	}
	if n.Post != nil {
		Walk(v, n.Post)
	}
	Walk(v, n.Body)
}

// ReturnStmt returns Value from the enclosing function; Value may be nil,
// meaning return nil.
type ReturnStmt struct {
	Start Position
	Value Expr
}

func (n *ReturnStmt) Pos() Position { return n.Start }
func (n *ReturnStmt) Walk(v Visitor) {
	if n.Value != nil {
		Walk(v, n.Value)
	}
}

// BreakStmt exits the innermost enclosing while/for loop.
type BreakStmt struct{ Start Position }

func (n *BreakStmt) Pos() Position { return n.Start }
func (n *BreakStmt) Walk(Visitor)  {}

// ContinueStmt jumps to the post/condition check of the innermost
// enclosing while/for loop.
type ContinueStmt struct{ Start Position }

func (n *ContinueStmt) Pos() Position { return n.Start }
func (n *ContinueStmt) Walk(Visitor)  {}

// TryCase pairs a raised-value type guard with a handler expression;
// ErrType is evaluated once, at Try entry, to the record value compared
// against the raised value's prototype.
type TryCase struct {
	ErrType Expr
	Handler *FuncLit
}

// TryStmt is `try { Body } catch (ErrType) (err) { ... } ...`; each case's
// Handler is invoked with the raised value as its sole argument.
type TryStmt struct {
	Start Position
	Body  *Block
	Cases []TryCase
}

func (n *TryStmt) Pos() Position { return n.Start }
func (n *TryStmt) Walk(v Visitor) {
	Walk(v, n.Body)
	for _, c := range n.Cases {
		Walk(v, c.ErrType)
		Walk(v, c.Handler)
	}
}

// RaiseStmt raises Value, unwinding to the nearest matching exception
// frame, or terminating the thread if none matches.
type RaiseStmt struct {
	Start Position
	Value Expr
}

func (n *RaiseStmt) Pos() Position { return n.Start }
func (n *RaiseStmt) Walk(v Visitor) { Walk(v, n.Value) }

// FuncDecl is a named function declaration, `fn name(params) { body }`,
// compiled via SetLocalFunctionDef so the function's own name is visible
// (and self-referencing) inside its body.
type FuncDecl struct {
	Start Position
	Fn    *FuncLit
}

func (n *FuncDecl) Pos() Position { return n.Start }
func (n *FuncDecl) Walk(v Visitor) { Walk(v, n.Fn) }
