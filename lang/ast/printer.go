package ast

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented, human-readable dump of n to w, one node per
// line prefixed with its position and a dot-per-depth indent, in the style
// of a debug AST dump.
func Fprint(w io.Writer, n Node) error {
	p := &printer{w: w}
	p.print(n, 0)
	return p.err
}

type printer struct {
	w   io.Writer
	pos Position // position of the node currently being printed
	err error
}

func (p *printer) printf(indent int, format string, args ...any) {
	if p.err != nil {
		return
	}
	prefix := strings.Repeat(". ", indent) + fmt.Sprintf("[%s] ", p.pos)
	_, p.err = fmt.Fprintf(p.w, prefix+format+"\n", args...)
}

func (p *printer) print(n Node, indent int) {
	if n == nil || p.err != nil {
		return
	}
	prev := p.pos
	p.pos = n.Pos()
	defer func() { p.pos = prev }()
	switch n := n.(type) {
	case *Chunk:
		p.printf(indent, "Chunk %s", n.Name)
		p.print(n.Block, indent+1)
	case *Block:
		p.printf(indent, "Block")
		for _, s := range n.Stmts {
			p.print(s, indent+1)
		}
	case *NilLit:
		p.printf(indent, "NilLit")
	case *BoolLit:
		p.printf(indent, "BoolLit %t", n.Value)
	case *IntLit:
		p.printf(indent, "IntLit %d", n.Value)
	case *FloatLit:
		p.printf(indent, "FloatLit %g", n.Value)
	case *StringLit:
		p.printf(indent, "StringLit %q", n.Value)
	case *Ident:
		p.printf(indent, "Ident %s", n.Name)
	case *ArrayLit:
		p.printf(indent, "ArrayLit")
		for _, e := range n.Elems {
			p.print(e, indent+1)
		}
	case *RecordLit:
		p.printf(indent, "RecordLit")
		for _, f := range n.Fields {
			p.printf(indent+1, "Field %s", f.Key)
			p.print(f.Value, indent+2)
		}
		for _, m := range n.Methods {
			p.printf(indent+1, "Method %s", m.Name)
			p.print(m.Fn, indent+2)
		}
	case *FuncLit:
		p.printf(indent, "FuncLit %s(%s)", n.Name, strings.Join(n.Params, ", "))
		p.print(n.Body, indent+1)
	case *CallExpr:
		p.printf(indent, "CallExpr")
		p.print(n.Fn, indent+1)
		for _, a := range n.Args {
			p.print(a, indent+1)
		}
	case *IndexExpr:
		p.printf(indent, "IndexExpr")
		p.print(n.Target, indent+1)
		p.print(n.Index, indent+1)
	case *MemberExpr:
		p.printf(indent, "MemberExpr .%s nopop=%t", n.Key, n.NoPop)
		p.print(n.Target, indent+1)
	case *BinOpExpr:
		p.printf(indent, "BinOpExpr %s", n.Op)
		p.print(n.LHS, indent+1)
		p.print(n.RHS, indent+1)
	case *UnaryExpr:
		p.printf(indent, "UnaryExpr %s", n.Op)
		p.print(n.X, indent+1)
	case *ExprStmt:
		p.printf(indent, "ExprStmt")
		p.print(n.X, indent+1)
	case *LocalDecl:
		p.printf(indent, "LocalDecl %s", n.Name)
		p.print(n.Init, indent+1)
	case *Assign:
		p.printf(indent, "Assign %s", n.Op)
		p.print(n.Target, indent+1)
		p.print(n.Value, indent+1)
	case *IfStmt:
		p.printf(indent, "IfStmt")
		p.print(n.Cond, indent+1)
		p.print(n.Then, indent+1)
		if n.Else != nil {
			p.print(n.Else, indent+1)
		}
	case *WhileStmt:
		p.printf(indent, "WhileStmt")
		p.print(n.Cond, indent+1)
		p.print(n.Body, indent+1)
	case *ForStmt:
		p.printf(indent, "ForStmt")
		p.print(n.Init, indent+1)
		p.print(n.Cond, indent+1)
		p.print(n.Post, indent+1)
		p.print(n.Body, indent+1)
	case *ReturnStmt:
		p.printf(indent, "ReturnStmt")
		p.print(n.Value, indent+1)
	case *BreakStmt:
		p.printf(indent, "BreakStmt")
	case *ContinueStmt:
		p.printf(indent, "ContinueStmt")
	case *TryStmt:
		p.printf(indent, "TryStmt")
		p.print(n.Body, indent+1)
		for _, c := range n.Cases {
			p.printf(indent+1, "Case")
			p.print(c.ErrType, indent+2)
			p.print(c.Handler, indent+2)
		}
	case *RaiseStmt:
		p.printf(indent, "RaiseStmt")
		p.print(n.Value, indent+1)
	case *FuncDecl:
		p.printf(indent, "FuncDecl")
		p.print(n.Fn, indent+1)
	default:
		p.printf(indent, "%T", n)
	}
}
