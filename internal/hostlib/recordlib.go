package hostlib

import "github.com/mna/calyx/vm"

func installRecord(t *vm.Thread) {
	bag := map[string]vm.NativeFnImpl{
		"keys": recKeys,
		"has":  recHas,
	}
	for name, fn := range bag {
		t.RecordProto.Set(name, vm.NewNativeFn(name, fn))
	}
}

func receiverRecord(name string, args []vm.Value) (*vm.Record, error) {
	r, ok := args[0].(*vm.Record)
	if !ok {
		return nil, wrongArgType(name, "record", args[0])
	}
	return r, nil
}

// recKeys returns rec's own (non-inherited) field names as an Array of
// Str, matching Record.Keys' "own fields only, insertion order" contract.
func recKeys(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	r, err := receiverRecord("keys", args)
	if err != nil {
		vm.Release(args[0])
		return nil, err
	}
	ks := r.Keys()
	out := make([]vm.Value, len(ks))
	for i, k := range ks {
		out[i] = vm.NewStr(k)
	}
	vm.Release(r)
	return vm.NewArray(out), nil
}

// recHas reports whether rec has key among its own fields (no prototype
// walk, the same scope OwnGet uses for "constructor").
func recHas(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	r, err := receiverRecord("has", args)
	if err != nil {
		vm.Release(args[0])
		releaseRest(args[1:])
		return nil, err
	}
	if len(args) < 2 {
		vm.Release(r)
		return nil, vm.NewRuntimeError(vm.KindArityMismatch, "has expects 1 argument")
	}
	key, ok := args[1].(*vm.Str)
	if !ok {
		vm.Release(r)
		vm.Release(args[1])
		return nil, wrongArgType("has", "string", args[1])
	}
	_, has := r.OwnGet(key.S)
	vm.Release(r)
	vm.Release(key)
	if has {
		return vm.Int(1), nil
	}
	return vm.Int(0), nil
}
