package compiler_test

import (
	"testing"

	"github.com/mna/calyx/lang/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsm(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string // error "contains" this, no error expected if empty
	}{
		{"empty", ``, "expected program section"},
		{"not program", `strings:`, "expected program section"},
		{"missing code", `program:`, "expected code section"},

		{"minimally valid", `
			program:
				code:
					halt
		`, ""},

		{"with strings", `
			program:
				strings:
					"hello"
				code:
					pushstr "hello"
					halt
		`, ""},

		{"unknown opcode", `
			program:
				code:
					bogus
		`, "invalid opcode: bogus"},

		{"wrong operand count", `
			program:
				code:
					jmp
		`, "expects 1 operand"},

		{"bad jump index", `
			program:
				code:
					jmp 5
					halt
		`, "invalid instruction index 5"},

		{"trailing garbage", `
			program:
				code:
					halt
			bogus:
		`, "invalid opcode: bogus:"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			p, err := compiler.Asm(tc.in)
			if tc.err == "" {
				require.NoError(t, err)
				assert.NotNil(t, p)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestAsmDasmRoundTrip(t *testing.T) {
	src := `
		program:
			strings:
				"x"
			code:
				envnew 1
				pushstr "x"
				setlocal 0
				pop
				getlocal 0
				halt
	`
	p, err := compiler.Asm(src)
	require.NoError(t, err)

	out, err := compiler.Dasm(p)
	require.NoError(t, err)

	p2, err := compiler.Asm(out)
	require.NoError(t, err)
	assert.Equal(t, p.Code, p2.Code)
	assert.Equal(t, p.Strings, p2.Strings)
}

func TestAsmJumpTargets(t *testing.T) {
	// jcond/jncond/jmp all refer to instruction indices, not byte offsets;
	// this program jumps past a push it should never execute.
	src := `
		program:
			code:
				push8 0
				jncond 4
				push8 1
				halt
				push8 2
				halt
	`
	p, err := compiler.Asm(src)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Code)
}
