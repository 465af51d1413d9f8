package compiler

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// This file implements a human-readable/writable form of a compiled
// Program, used to drive vm and compiler tests directly without a parser.
// The format looks like this (indentation is arbitrary, order is not):
//
//	program:
//		strings:             # optional, string table entries referenced by cstr operands
//			"hello"
//		code:                # required, one instruction per line
//			envnew 1
//			pushstr "hello"
//			setlocal 0
//			getlocal 0
//			halt
//
// Jump-like operands (jmp/jcond/jncond/try/exframeret, and the end-ip half
// of deffunctionpush) refer to the index of the target instruction within
// the code section, not its byte address; Asm translates indices to
// addresses the same way Dasm translates addresses back to indices.

var sections = map[string]bool{
	"program:": true,
	"strings:": true,
	"code:":    true,
}

type insn struct {
	op   Opcode
	args []uint64
}

// numOperands returns how many whitespace-separated numeric/string operand
// fields a textual instruction for op carries.
func numOperands(op Opcode) int {
	switch op {
	case SetLocalUp, GetLocalUp, DefFunctionPush:
		return 2
	case Halt, Pop, PushNil,
		Lt, Leq, Gt, Geq, Eq, Neq,
		Add, Sub, Mul, Div, Mod, And, Or,
		Negate, Not, Ret, Retcall,
		DictNew, DictLoad, IndexGet, IndexSet, Raise:
		return 0
	default:
		return 1
	}
}

func isCStrOperand(op Opcode, argIdx int) bool {
	switch op {
	case PushStr, GetGlobal, SetGlobal, MemberGet, MemberGetNoPop, MemberSet:
		return argIdx == 0
	}
	return false
}

func isIndexOperand(op Opcode, argIdx int) bool {
	switch op {
	case Jmp, JCond, JNCond, ExframeRet, Try:
		return argIdx == 0
	case DefFunctionPush:
		return argIdx == 1
	}
	return false
}

// Asm parses a program's textual assembly form.
func Asm(src string) (*Program, error) {
	a := &asm{s: bufio.NewScanner(strings.NewReader(src))}
	fields := a.next()
	a.program(fields)
	fields = a.next()
	fields = a.strings(fields)
	fields = a.code(fields)
	if a.err == nil && len(fields) > 0 {
		a.err = fmt.Errorf("unexpected section: %s", fields[0])
	}
	return a.p, a.err
}

type asm struct {
	s       *bufio.Scanner
	rawLine string
	p       *Program
	err     error
}

func (a *asm) program(fields []string) {
	if a.err != nil {
		return
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "program:") {
		msg := "expected program section"
		if len(fields) > 0 {
			msg += ", found " + fields[0]
		}
		a.err = errors.New(msg)
		return
	}
	a.p = &Program{}
}

func (a *asm) strings(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "strings:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		qs, err := strconv.QuotedPrefix(a.rawLine)
		if err != nil {
			a.err = fmt.Errorf("invalid string literal: %s: %w", a.rawLine, err)
			return fields
		}
		s, err := strconv.Unquote(qs)
		if err != nil {
			a.err = fmt.Errorf("invalid string literal: %s: %w", qs, err)
			return fields
		}
		a.p.Strings = append(a.p.Strings, s)
	}
	return fields
}

func (a *asm) code(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		a.err = errors.New("expected code section")
		return fields
	}

	var insns []insn
	var indexToAddr []uint32
	var addr uint32
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		op, ok := reverseLookupOpcode[strings.ToLower(fields[0])]
		if !ok {
			a.err = fmt.Errorf("invalid opcode: %s", fields[0])
			return fields
		}
		n := numOperands(op)
		operandFields := fields[1:]
		if len(operandFields) != n {
			a.err = fmt.Errorf("opcode %s expects %d operand(s), got %d", op, n, len(operandFields))
			return fields
		}

		var args []uint64
		for i, f := range operandFields {
			if isCStrOperand(op, i) {
				args = append(args, uint64(a.internRaw(f)))
				continue
			}
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				a.err = fmt.Errorf("invalid operand %q for %s: %w", f, op, err)
				return fields
			}
			args = append(args, v)
		}
		insns = append(insns, insn{op: op, args: args})
		indexToAddr = append(indexToAddr, addr)
		addr += 1 + uint32(operandWidth(op))
	}

	var w writer
	for _, in := range insns {
		w.op(in.op)
		switch in.op {
		case SetLocalUp, GetLocalUp:
			w.u16(uint16(in.args[0]))
			w.u16(uint16(in.args[1]))
		case DefFunctionPush:
			w.u16(uint16(in.args[0]))
			w.u32(resolveIndex(&a.err, indexToAddr, in.args[1], in.op))
		case Push8:
			w.u8(uint8(in.args[0]))
		case Push64:
			w.u64(in.args[0])
		default:
			for i, v := range in.args {
				av := v
				if isIndexOperand(in.op, i) {
					av = uint64(resolveIndex(&a.err, indexToAddr, v, in.op))
				}
				switch operandWidth(in.op) {
				case 1:
					w.u8(uint8(av))
				case 2:
					w.u16(uint16(av))
				case 8:
					w.u64(av)
				default:
					w.u32(uint32(av))
				}
			}
		}
		if a.err != nil {
			return fields
		}
	}
	a.p.Code = w.code
	return fields
}

func resolveIndex(err *error, indexToAddr []uint32, idx uint64, op Opcode) uint32 {
	if idx >= uint64(len(indexToAddr)) {
		*err = fmt.Errorf("invalid instruction index %d for %s", idx, op)
		return 0
	}
	return indexToAddr[idx]
}

// internRaw finds or appends s (without quotes) in the string table built
// so far from literal operand text, e.g. `"hello"`.
func (a *asm) internRaw(tok string) uint32 {
	s, err := strconv.Unquote(tok)
	if err != nil {
		a.err = fmt.Errorf("invalid quoted operand %q: %w", tok, err)
		return 0
	}
	for i, existing := range a.p.Strings {
		if existing == s {
			return uint32(i)
		}
	}
	a.p.Strings = append(a.p.Strings, s)
	return uint32(len(a.p.Strings) - 1)
}

func (a *asm) next() []string {
	a.rawLine = ""
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) != 0 && !strings.HasPrefix(fields[0], "#") {
			for i, fld := range fields {
				if strings.HasPrefix(fld, "#") {
					fields = fields[:i]
					break
				}
			}
			a.rawLine = strings.TrimSpace(line)
			return fields
		}
	}
	a.err = a.s.Err()
	return nil
}

// Dasm writes p's textual assembly form.
func Dasm(p *Program) (string, error) {
	d := &dasm{p: p, buf: new(bytes.Buffer)}
	d.write("program:\n")
	if len(p.Strings) > 0 {
		d.write("\tstrings:\n")
		for _, s := range p.Strings {
			d.writef("\t\t%q\n", s)
		}
	}
	d.decode()
	return d.buf.String(), d.err
}

type dasm struct {
	p   *Program
	buf *bytes.Buffer
	err error
}

func (d *dasm) write(s string) {
	if d.err != nil {
		return
	}
	_, d.err = d.buf.WriteString(s)
}

func (d *dasm) writef(f string, args ...any) { d.write(fmt.Sprintf(f, args...)) }

func (d *dasm) decode() {
	code := d.p.Code
	addrToIndex := make(map[uint32]int)
	var insns []insn
	var addr uint32
	for addr < uint32(len(code)) {
		op := Opcode(code[addr])
		addrToIndex[addr] = len(insns)
		w := operandWidth(op)
		in := insn{op: op}
		switch op {
		case SetLocalUp, GetLocalUp:
			in.args = []uint64{uint64(readU16(code, addr+1)), uint64(readU16(code, addr+3))}
		case DefFunctionPush:
			in.args = []uint64{uint64(readU16(code, addr+1)), uint64(readU32(code, addr+3))}
		case Push8:
			in.args = []uint64{uint64(code[addr+1])}
		case Push16:
			in.args = []uint64{uint64(readU16(code, addr+1))}
		case EnvNew, SetLocal, GetLocal, Call, ArrayLoad, SetLocalFunctionDef:
			in.args = []uint64{uint64(readU16(code, addr+1))}
		case Push64, PushF64:
			in.args = []uint64{readU64(code, addr+1)}
		default:
			if w > 0 {
				in.args = []uint64{uint64(readU32(code, addr+1))}
			}
		}
		insns = append(insns, in)
		addr += 1 + uint32(w)
	}

	if len(insns) == 0 {
		return
	}
	d.write("\tcode:\n")
	for i, in := range insns {
		d.writef("\t\t%s", in.op)
		for ai, v := range in.args {
			if isCStrOperand(in.op, ai) {
				idx := int(v)
				if idx < 0 || idx >= len(d.p.Strings) {
					d.err = fmt.Errorf("invalid string index %d at instruction %d", idx, i)
					return
				}
				d.writef(" %q", d.p.Strings[idx])
				continue
			}
			if isIndexOperand(in.op, ai) {
				target, ok := addrToIndex[uint32(v)]
				if !ok {
					d.err = fmt.Errorf("invalid jump address %d at instruction %d (%s)", v, i, in.op)
					return
				}
				d.writef(" %d", target)
				continue
			}
			d.writef(" %d", v)
		}
		d.writef("\t# %03d\n", i)
	}
}
