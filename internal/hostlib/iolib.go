package hostlib

import (
	"bufio"
	"fmt"
	"os"

	"github.com/mna/calyx/vm"
)

// installIO registers the print/println globals and the File record
// (constructor + read/write/close method bag), grounded on spec §9's
// native-object teardown supplement: a NativeObj wraps the *os.File and
// its Destroy closure runs exactly once, at refcount zero, whether that
// is triggered by an explicit .close() or the record simply going out of
// scope.
func installIO(t *vm.Thread) {
	t.RegisterNative("print", ioPrint(false))
	t.RegisterNative("println", ioPrint(true))

	fileProto := vm.NewRecord()
	fileProto.Set("read", vm.NewNativeFn("read", fileRead))
	fileProto.Set("write", vm.NewNativeFn("write", fileWrite))
	fileProto.Set("close", vm.NewNativeFn("close", fileClose))

	file := vm.NewRecord()
	file.Set("prototype", fileProto)
	file.Set("constructor", vm.NewNativeFn("File", fileOpen(fileProto)))
	t.RegisterGlobal("File", file)

	vm.Release(fileProto)
	vm.Release(file)
}

// ioPrint implements print/println: each argument's String() form is
// written to t.Stdout, space-separated, with or without a trailing
// newline. Returns Nil, the same "statement used as expression" value
// the original VM's native I/O functions return.
func ioPrint(newline bool) vm.NativeFnImpl {
	return func(t *vm.Thread, args []vm.Value) (vm.Value, error) {
		for i, a := range args {
			if i > 0 {
				fmt.Fprint(t.Stdout, " ")
			}
			fmt.Fprint(t.Stdout, a.String())
		}
		if newline {
			fmt.Fprintln(t.Stdout)
		}
		releaseRest(args)
		return vm.Nil{}, nil
	}
}

// fileHandle is the Go value a File record's NativeObj wraps.
type fileHandle struct {
	f *os.File
	r *bufio.Reader
	w *bufio.Writer
}

// fileOpen is File's constructor native: File(path, mode), mode being
// "r" or "w" (append is not in scope, matching the minimal surface
// spec §8's scenarios need).
func fileOpen(fileProto *vm.Record) vm.NativeFnImpl {
	return func(t *vm.Thread, args []vm.Value) (vm.Value, error) {
		defer releaseRest(args)
		if len(args) < 1 {
			return nil, vm.NewRuntimeError(vm.KindArityMismatch, "File expects at least 1 argument")
		}
		path, ok := args[0].(*vm.Str)
		if !ok {
			return nil, wrongArgType("File", "string", args[0])
		}
		mode := "r"
		if len(args) > 1 {
			m, ok := args[1].(*vm.Str)
			if !ok {
				return nil, wrongArgType("File", "string", args[1])
			}
			mode = m.S
		}

		var f *os.File
		var err error
		h := &fileHandle{}
		switch mode {
		case "r":
			f, err = os.Open(path.S)
			if err == nil {
				h.r = bufio.NewReader(f)
			}
		case "w":
			f, err = os.Create(path.S)
			if err == nil {
				h.w = bufio.NewWriter(f)
			}
		default:
			return nil, vm.NewRuntimeError(vm.KindTypeMismatch, "File: unknown mode %q", mode)
		}
		if err != nil {
			return nil, vm.NewRuntimeError(vm.KindTypeMismatch, "File: %s", err)
		}
		h.f = f

		obj := vm.NewNativeObj("file", h, func(data any) {
			fh := data.(*fileHandle)
			if fh.w != nil {
				fh.w.Flush()
			}
			fh.f.Close()
		})
		rec := vm.NewRecord()
		rec.Set("prototype", fileProto)
		rec.Set("handle", obj)
		vm.Release(obj)
		return rec, nil
	}
}

func fileRead(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	defer releaseRest(args)
	h, err := receiverFile("read", args)
	if err != nil {
		return nil, err
	}
	if h.r == nil {
		return nil, vm.NewRuntimeError(vm.KindTypeMismatch, "read: file not opened for reading")
	}
	line, err := h.r.ReadString('\n')
	if err != nil && line == "" {
		return vm.Nil{}, nil
	}
	return vm.NewStr(line), nil
}

func fileWrite(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	defer releaseRest(args)
	h, err := receiverFile("write", args)
	if err != nil {
		return nil, err
	}
	if h.w == nil {
		return nil, vm.NewRuntimeError(vm.KindTypeMismatch, "write: file not opened for writing")
	}
	if len(args) < 2 {
		return nil, vm.NewRuntimeError(vm.KindArityMismatch, "write expects 1 argument")
	}
	s, ok := args[1].(*vm.Str)
	if !ok {
		return nil, wrongArgType("write", "string", args[1])
	}
	n, werr := h.w.WriteString(s.S)
	if werr != nil {
		return nil, vm.NewRuntimeError(vm.KindTypeMismatch, "write: %s", werr)
	}
	return vm.Int(n), nil
}

func fileClose(t *vm.Thread, args []vm.Value) (vm.Value, error) {
	defer releaseRest(args)
	_, err := receiverFile("close", args)
	if err != nil {
		return nil, err
	}
	// Releasing the receiver (deferred above, via args[0]) drops this
	// call's own reference; the destructor only actually runs once every
	// other holder of the record has also let go, same as any other
	// refcounted value. There is no separate eager-close primitive: the
	// record's teardown is the close.
	return vm.Nil{}, nil
}

func receiverFile(name string, args []vm.Value) (*fileHandle, error) {
	rec, ok := args[0].(*vm.Record)
	if !ok {
		return nil, wrongArgType(name, "record", args[0])
	}
	v, ok := rec.OwnGet("handle")
	if !ok {
		return nil, vm.NewRuntimeError(vm.KindTypeMismatch, "%s: not a File", name)
	}
	obj, ok := v.(*vm.NativeObj)
	if !ok {
		return nil, vm.NewRuntimeError(vm.KindTypeMismatch, "%s: not a File", name)
	}
	return obj.Data.(*fileHandle), nil
}
