package runcmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/calyx/internal/config"
	"github.com/mna/calyx/internal/runcmd"
	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asmSrc = `
program:
	code:
		push8 2
		push8 3
		add
		setglobal "result"
		pop
		halt
`

func writeAsm(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.asm")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRunExecutesProgram(t *testing.T) {
	path := writeAsm(t, asmSrc)
	var stdout, stderr bytes.Buffer
	stdio := mainer.Stdio{Stdout: &stdout, Stderr: &stderr}

	err := runcmd.Run(context.Background(), stdio, config.Config{MaxCallDepth: 100}, path)
	require.NoError(t, err)
	assert.Empty(t, stderr.String())
}

func TestRunReportsAssembleError(t *testing.T) {
	path := writeAsm(t, "not valid assembler text {{{")
	var stdout, stderr bytes.Buffer
	stdio := mainer.Stdio{Stdout: &stdout, Stderr: &stderr}

	err := runcmd.Run(context.Background(), stdio, config.Config{}, path)
	require.Error(t, err)
	assert.NotEmpty(t, stderr.String())
}

func TestRunReportsMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdio := mainer.Stdio{Stdout: &stdout, Stderr: &stderr}

	err := runcmd.Run(context.Background(), stdio, config.Config{}, filepath.Join(t.TempDir(), "missing.asm"))
	require.Error(t, err)
}

func TestDasmPrintsDisassembly(t *testing.T) {
	path := writeAsm(t, asmSrc)
	var stdout, stderr bytes.Buffer
	stdio := mainer.Stdio{Stdout: &stdout, Stderr: &stderr}

	err := runcmd.Dasm(context.Background(), stdio, path)
	require.NoError(t, err)
	assert.NotEmpty(t, stdout.String())
	assert.Contains(t, stdout.String(), "halt")
}
