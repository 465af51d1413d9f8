package ast

import "github.com/mna/calyx/lang/token"

func (*NilLit) exprNode()    {}
func (*BoolLit) exprNode()   {}
func (*IntLit) exprNode()    {}
func (*FloatLit) exprNode()  {}
func (*StringLit) exprNode() {}
func (*Ident) exprNode()     {}
func (*ArrayLit) exprNode()  {}
func (*RecordLit) exprNode() {}
func (*FuncLit) exprNode()   {}
func (*CallExpr) exprNode()  {}
func (*IndexExpr) exprNode() {}
func (*MemberExpr) exprNode() {}
func (*BinOpExpr) exprNode() {}
func (*UnaryExpr) exprNode() {}

// NilLit is the literal nil.
type NilLit struct{ Start Position }

func (n *NilLit) Pos() Position  { return n.Start }
func (n *NilLit) Walk(Visitor)   {}

// BoolLit is a literal true or false.
type BoolLit struct {
	Start Position
	Value bool
}

func (n *BoolLit) Pos() Position { return n.Start }
func (n *BoolLit) Walk(Visitor)  {}

// IntLit is an integer literal.
type IntLit struct {
	Start Position
	Value int64
}

func (n *IntLit) Pos() Position { return n.Start }
func (n *IntLit) Walk(Visitor)  {}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Start Position
	Value float64
}

func (n *FloatLit) Pos() Position { return n.Start }
func (n *FloatLit) Walk(Visitor)  {}

// StringLit is a string literal.
type StringLit struct {
	Start Position
	Value string
}

func (n *StringLit) Pos() Position { return n.Start }
func (n *StringLit) Walk(Visitor)  {}

// Ident is an identifier reference, resolved by the compiler to a local
// slot, an upvalue slot, or a global name.
type Ident struct {
	Start Position
	Name  string
}

func (n *Ident) Pos() Position { return n.Start }
func (n *Ident) Walk(Visitor)  {}

// ArrayLit is an array literal, e.g. [1, 2, 3].
type ArrayLit struct {
	Start Position
	Elems []Expr
}

func (n *ArrayLit) Pos() Position { return n.Start }
func (n *ArrayLit) Walk(v Visitor) {
	for _, e := range n.Elems {
		Walk(v, e)
	}
}

// RecordField is a plain key: value entry of a record literal.
type RecordField struct {
	Key   string
	Value Expr
}

// RecordMethod is a named method defined inside a record literal; it
// compiles to a function value bound onto the record via MemberSet.
type RecordMethod struct {
	Name string
	Fn   *FuncLit
}

// RecordLit is a record literal, e.g. {x: 1, foo() { ... }}.
type RecordLit struct {
	Start   Position
	Fields  []RecordField
	Methods []RecordMethod
}

func (n *RecordLit) Pos() Position { return n.Start }
func (n *RecordLit) Walk(v Visitor) {
	for _, f := range n.Fields {
		Walk(v, f.Value)
	}
	for _, m := range n.Methods {
		Walk(v, m.Fn)
	}
}

// FuncLit is a function literal: a parameter list and a body block.
// Params that appear in Params are bound to slots 0..len(Params)-1 in the
// function's own environment frame, in order.
type FuncLit struct {
	Start  Position
	Name   string // optional, for SetLocalFunctionDef / debug output
	Params []string
	Body   *Block
}

func (n *FuncLit) Pos() Position { return n.Start }
func (n *FuncLit) Walk(v Visitor) { Walk(v, n.Body) }

// CallExpr is a function (or constructor) call. When Fn is a MemberExpr,
// the compiler binds Fn.Target as the implicit first argument (self).
type CallExpr struct {
	Start Position
	Fn    Expr
	Args  []Expr
}

func (n *CallExpr) Pos() Position { return n.Start }
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Fn)
	for _, a := range n.Args {
		Walk(v, a)
	}
}

// IndexExpr is a[i].
type IndexExpr struct {
	Start  Position
	Target Expr
	Index  Expr
}

func (n *IndexExpr) Pos() Position { return n.Start }
func (n *IndexExpr) Walk(v Visitor) {
	Walk(v, n.Target)
	Walk(v, n.Index)
}

// MemberExpr is a.k; NoPop requests MemberGetNoPop instead of MemberGet,
// used by the compiler when compiling the callee of a method call.
type MemberExpr struct {
	Start  Position
	Target Expr
	Key    string
	NoPop  bool
}

func (n *MemberExpr) Pos() Position { return n.Start }
func (n *MemberExpr) Walk(v Visitor) { Walk(v, n.Target) }

// BinOpExpr is a binary operator expression; Op is one of the comparison
// or arithmetic/logic tokens.
type BinOpExpr struct {
	Start Position
	Op    token.Token
	LHS   Expr
	RHS   Expr
}

func (n *BinOpExpr) Pos() Position { return n.Start }
func (n *BinOpExpr) Walk(v Visitor) {
	Walk(v, n.LHS)
	Walk(v, n.RHS)
}

// UnaryExpr is a unary operator expression; Op is one of UPLUS, UMINUS or
// NOT.
type UnaryExpr struct {
	Start Position
	Op    token.Token
	X     Expr
}

func (n *UnaryExpr) Pos() Position { return n.Start }
func (n *UnaryExpr) Walk(v Visitor) { Walk(v, n.X) }
