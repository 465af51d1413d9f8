package hostlib

import (
	"sort"

	"github.com/mna/calyx/vm"
)

func installArray(t *vm.Thread) {
	bag := map[string]vm.NativeFnImpl{
		"length": arrLength,
		"push":   arrPush,
		"pop":    arrPop,
		"sort":   arrSort,
		"join":   arrJoin,
	}
	for name, fn := range bag {
		t.ArrayProto.Set(name, vm.NewNativeFn(name, fn))
	}
}

func receiverArr(name string, args []vm.Value) (*vm.Array, error) {
	a, ok := args[0].(*vm.Array)
	if !ok {
		return nil, wrongArgType(name, "array", args[0])
	}
	return a, nil
}

func arrLength(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	a, err := receiverArr("length", args)
	if err != nil {
		vm.Release(args[0])
		return nil, err
	}
	n := vm.Int(len(a.Elems))
	vm.Release(a)
	return n, nil
}

// arrPush appends its remaining arguments to the receiver in place and
// returns the (now longer) receiver, taking direct ownership of each
// pushed value -- no extra retain, since args already transferred
// ownership to this call.
func arrPush(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	a, err := receiverArr("push", args)
	if err != nil {
		vm.Release(args[0])
		releaseRest(args[1:])
		return nil, err
	}
	a.Elems = append(a.Elems, args[1:]...)
	return a, nil
}

// arrPop removes and returns the last element, or nil if empty.
func arrPop(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	a, err := receiverArr("pop", args)
	if err != nil {
		vm.Release(args[0])
		return nil, err
	}
	if len(a.Elems) == 0 {
		vm.Release(a)
		return vm.Nil{}, nil
	}
	v := a.Elems[len(a.Elems)-1]
	a.Elems = a.Elems[:len(a.Elems)-1]
	vm.Release(a)
	return v, nil
}

// arrSort sorts the receiver in place using Compare ("<") and returns it,
// erroring if any pair of elements is not comparable (spec §4.1's
// Compare rule: numeric with promotion, or two strings).
func arrSort(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	a, err := receiverArr("sort", args)
	if err != nil {
		vm.Release(args[0])
		return nil, err
	}
	var sortErr error
	sort.SliceStable(a.Elems, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		lt, err := vm.Compare("<", a.Elems[i], a.Elems[j])
		if err != nil {
			sortErr = err
			return false
		}
		return vm.Truthy(lt)
	})
	if sortErr != nil {
		vm.Release(a)
		return nil, sortErr
	}
	return a, nil
}

// arrJoin implements arr.join(sep), concatenating String elements with
// sep between them (defaulting to ""); any non-string element is a type
// mismatch, matching the original hana stdlib's strict join.
func arrJoin(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	a, err := receiverArr("join", args)
	if err != nil {
		vm.Release(args[0])
		releaseRest(args[1:])
		return nil, err
	}
	sep := ""
	if len(args) > 1 {
		s, ok := args[1].(*vm.Str)
		if !ok {
			vm.Release(a)
			vm.Release(args[1])
			return nil, wrongArgType("join", "string", args[1])
		}
		sep = s.S
		vm.Release(s)
	}
	out := ""
	for i, e := range a.Elems {
		s, ok := e.(*vm.Str)
		if !ok {
			vm.Release(a)
			return nil, vm.NewRuntimeError(vm.KindTypeMismatch, "join: element %d is not a string", i)
		}
		if i > 0 {
			out += sep
		}
		out += s.S
	}
	vm.Release(a)
	return vm.NewStr(out), nil
}
