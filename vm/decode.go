package vm

import (
	"encoding/binary"
	"math"
)

// These mirror the unexported decoders in lang/compiler's writer.go; the
// interpreter needs its own copy since it decodes the same big-endian
// encoding from a different package.
func readU8(code []byte, ip uint32) uint8   { return code[ip] }
func readU16(code []byte, ip uint32) uint16 { return binary.BigEndian.Uint16(code[ip : ip+2]) }
func readU32(code []byte, ip uint32) uint32 { return binary.BigEndian.Uint32(code[ip : ip+4]) }
func readU64(code []byte, ip uint32) uint64 { return binary.BigEndian.Uint64(code[ip : ip+8]) }
func readF32(code []byte, ip uint32) float32 { return math.Float32frombits(readU32(code, ip)) }
func readF64(code []byte, ip uint32) float64 { return math.Float64frombits(readU64(code, ip)) }
