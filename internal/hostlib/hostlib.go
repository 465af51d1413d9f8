// Package hostlib supplies the minimal standard-library surface spec
// §6.4's globals bootstrap leaves to the embedder: method bags for the
// String/Array/Record prototypes plus a handful of I/O native functions
// (the Int and Float prototypes get no methods here), enough to run the end-to-end scenarios named in spec §8
// without attempting a complete standard library (an explicit Non-goal).
//
// Every bag follows the same receiver convention a method call compiles
// to (lang/compiler's compileCall, "self included" in the Call opcode's
// arg count): the native function's args[0] is always the receiver, the
// rest are the call's own arguments.
package hostlib

import "github.com/mna/calyx/vm"

// Install registers every method bag and I/O native this package
// provides against t. Call once, right after vm.NewThread, before
// running any program.
func Install(t *vm.Thread) {
	installString(t)
	installArray(t)
	installRecord(t)
	installIO(t)
}

func argOr(args []vm.Value, i int, def vm.Value) vm.Value {
	if i < len(args) {
		return args[i]
	}
	return def
}

func wrongArgType(name string, want string, got vm.Value) error {
	return vm.NewRuntimeError(vm.KindTypeMismatch, "%s: expected %s, got %s", name, want, got.Type())
}
