package hostlib

import (
	"strings"

	"github.com/mna/calyx/vm"
)

func installString(t *vm.Thread) {
	bag := map[string]vm.NativeFnImpl{
		"length": strLength,
		"upper":  strUpper,
		"lower":  strLower,
		"slice":  strSlice,
		"find":   strFind,
	}
	for name, fn := range bag {
		t.StringProto.Set(name, vm.NewNativeFn(name, fn))
	}
}

func receiverStr(name string, args []vm.Value) (*vm.Str, error) {
	s, ok := args[0].(*vm.Str)
	if !ok {
		return nil, wrongArgType(name, "string", args[0])
	}
	return s, nil
}

func strLength(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	s, err := receiverStr("length", args)
	if err != nil {
		vm.Release(args[0])
		return nil, err
	}
	n := vm.Int(len(s.S))
	vm.Release(s)
	return n, nil
}

func strUpper(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	s, err := receiverStr("upper", args)
	if err != nil {
		vm.Release(args[0])
		return nil, err
	}
	out := vm.NewStr(strings.ToUpper(s.S))
	vm.Release(s)
	return out, nil
}

func strLower(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	s, err := receiverStr("lower", args)
	if err != nil {
		vm.Release(args[0])
		return nil, err
	}
	out := vm.NewStr(strings.ToLower(s.S))
	vm.Release(s)
	return out, nil
}

// strSlice implements str.slice(start, end): a half-open byte range,
// clamped to the string's bounds rather than erroring on an out-of-range
// end (matching the permissive style of the teacher's own string helpers
// in lang/scanner/string.go).
func strSlice(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	s, err := receiverStr("slice", args)
	if err != nil {
		vm.Release(args[0])
		releaseRest(args[1:])
		return nil, err
	}
	start, sok := argOr(args, 1, vm.Int(0)).(vm.Int)
	end, eok := argOr(args, 2, vm.Int(int64(len(s.S)))).(vm.Int)
	releaseRest(args[1:])
	if !sok || !eok {
		vm.Release(s)
		return nil, vm.NewRuntimeError(vm.KindTypeMismatch, "slice: start/end must be ints")
	}
	lo, hi := clamp(int(start), 0, len(s.S)), clamp(int(end), 0, len(s.S))
	if hi < lo {
		hi = lo
	}
	out := vm.NewStr(s.S[lo:hi])
	vm.Release(s)
	return out, nil
}

// strFind implements str.find(needle), returning the byte index of the
// first occurrence or -1, mirroring strings.Index.
func strFind(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	s, err := receiverStr("find", args)
	if err != nil {
		vm.Release(args[0])
		releaseRest(args[1:])
		return nil, err
	}
	if len(args) < 2 {
		vm.Release(s)
		return nil, vm.NewRuntimeError(vm.KindArityMismatch, "find expects 1 argument")
	}
	needle, ok := args[1].(*vm.Str)
	if !ok {
		vm.Release(s)
		vm.Release(args[1])
		return nil, wrongArgType("find", "string", args[1])
	}
	idx := strings.Index(s.S, needle.S)
	vm.Release(s)
	vm.Release(needle)
	return vm.Int(idx), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func releaseRest(vs []vm.Value) {
	for _, v := range vs {
		vm.Release(v)
	}
}
