package ast_test

import (
	"bytes"
	"testing"

	"github.com/mna/calyx/lang/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChunk() *ast.Chunk {
	return &ast.Chunk{
		Name: "test",
		Block: &ast.Block{
			Stmts: []ast.Stmt{
				&ast.LocalDecl{Name: "x", Init: &ast.IntLit{Value: 1}},
				&ast.ExprStmt{X: &ast.Ident{Name: "x"}},
			},
		},
	}
}

func TestFprintIncludesEveryNodeKind(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ast.Fprint(&buf, sampleChunk()))
	out := buf.String()
	assert.Contains(t, out, "Chunk")
	assert.Contains(t, out, "Block")
	assert.Contains(t, out, "LocalDecl")
	assert.Contains(t, out, "IntLit")
	assert.Contains(t, out, "ExprStmt")
	assert.Contains(t, out, "Ident")
}

type countingVisitor struct{ n int }

func (v *countingVisitor) Visit(n ast.Node) bool {
	v.n++
	return true
}

func TestWalkVisitsEveryNode(t *testing.T) {
	cv := &countingVisitor{}
	ast.Walk(cv, sampleChunk())
	// Chunk, Block, LocalDecl, IntLit, ExprStmt, Ident = 6 nodes.
	assert.Equal(t, 6, cv.n)
}

func TestWalkStopsDescendingWhenVisitReturnsFalse(t *testing.T) {
	cv := &stoppingVisitor{}
	ast.Walk(cv, sampleChunk())
	assert.Equal(t, 1, cv.n)
}

type stoppingVisitor struct{ n int }

func (v *stoppingVisitor) Visit(n ast.Node) bool {
	v.n++
	return false
}
