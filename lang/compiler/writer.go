package compiler

import (
	"encoding/binary"
	"math"
)

// writer accumulates a flat, big-endian encoded bytecode buffer. Every
// multi-byte operand uses a single consistent big-endian byte encoding,
// unlike the nibble-shifted addresses the original source mixed in for some
// opcodes (see DESIGN.md); there is no varint path to keep widths
// predictable for patching.
type writer struct {
	code []byte
}

func (w *writer) len() uint32 { return uint32(len(w.code)) }

func (w *writer) op(op Opcode) uint32 {
	pos := w.len()
	w.code = append(w.code, byte(op))
	return pos
}

func (w *writer) u8(v uint8) { w.code = append(w.code, v) }

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.code = append(w.code, b[:]...)
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.code = append(w.code, b[:]...)
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.code = append(w.code, b[:]...)
}

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }
func (w *writer) f64(v float64) { w.u64(math.Float64bits(v)) }

// patchU32 overwrites the 4 bytes at pos with v; used to back-patch forward
// jump addresses and DefFunctionPush's end-ip once the target is known.
func (w *writer) patchU32(pos uint32, v uint32) {
	binary.BigEndian.PutUint32(w.code[pos:pos+4], v)
}

func readU16(code []byte, ip uint32) uint16 { return binary.BigEndian.Uint16(code[ip : ip+2]) }
func readU32(code []byte, ip uint32) uint32 { return binary.BigEndian.Uint32(code[ip : ip+4]) }
func readU64(code []byte, ip uint32) uint64 { return binary.BigEndian.Uint64(code[ip : ip+8]) }
func readF32(code []byte, ip uint32) float32 { return math.Float32frombits(readU32(code, ip)) }
func readF64(code []byte, ip uint32) float64 { return math.Float64frombits(readU64(code, ip)) }
