package hostlib

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/mna/calyx/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThreadWithStdout(buf *bytes.Buffer) *vm.Thread {
	t := vm.NewThread(buf, buf)
	Install(t)
	return t
}

func TestPrintAndPrintln(t *testing.T) {
	var buf bytes.Buffer
	th := newThreadWithStdout(&buf)

	printFn, ok := th.Globals.Get("print")
	require.True(t, ok)
	_, err := printFn.(*vm.NativeFn).Impl(th, []vm.Value{vm.NewStr("a"), vm.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, "a 1", buf.String())

	buf.Reset()
	printlnFn, ok := th.Globals.Get("println")
	require.True(t, ok)
	_, err = printlnFn.(*vm.NativeFn).Impl(th, []vm.Value{vm.NewStr("b")})
	require.NoError(t, err)
	assert.Equal(t, "b\n", buf.String())
}

func fileConstructor(t *testing.T, th *vm.Thread) *vm.NativeFn {
	t.Helper()
	file, ok := th.Globals.Get("File")
	require.True(t, ok)
	ctor, ok := file.(*vm.Record).OwnGet("constructor")
	require.True(t, ok)
	return ctor.(*vm.NativeFn)
}

func TestFileWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	th := newThreadWithStdout(&buf)
	ctor := fileConstructor(t, th)

	path := filepath.Join(t.TempDir(), "out.txt")

	wf, err := ctor.Impl(th, []vm.Value{vm.NewStr(path), vm.NewStr("w")})
	require.NoError(t, err)
	rec := wf.(*vm.Record)

	writeFn, ok := rec.Get("write")
	require.True(t, ok)
	n, err := writeFn.(*vm.NativeFn).Impl(th, []vm.Value{rec, vm.NewStr("hello\n")})
	require.NoError(t, err)
	assert.Equal(t, vm.Int(6), n)

	closeFn, ok := rec.Get("close")
	require.True(t, ok)
	_, err = closeFn.(*vm.NativeFn).Impl(th, []vm.Value{rec})
	require.NoError(t, err)

	rf, err := ctor.Impl(th, []vm.Value{vm.NewStr(path), vm.NewStr("r")})
	require.NoError(t, err)
	rrec := rf.(*vm.Record)

	readFn, ok := rrec.Get("read")
	require.True(t, ok)
	line, err := readFn.(*vm.NativeFn).Impl(th, []vm.Value{rrec})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line.(*vm.Str).S)

	line, err = readFn.(*vm.NativeFn).Impl(th, []vm.Value{rrec})
	require.NoError(t, err)
	assert.Equal(t, vm.Nil{}, line)
}

func TestFileWriteOnReadOnlyErrors(t *testing.T) {
	var buf bytes.Buffer
	th := newThreadWithStdout(&buf)
	ctor := fileConstructor(t, th)

	path := filepath.Join(t.TempDir(), "ro.txt")
	// create the file first so opening for read succeeds
	wf, err := ctor.Impl(th, []vm.Value{vm.NewStr(path), vm.NewStr("w")})
	require.NoError(t, err)
	rec := wf.(*vm.Record)
	closeFn, _ := rec.Get("close")
	_, err = closeFn.(*vm.NativeFn).Impl(th, []vm.Value{rec})
	require.NoError(t, err)

	rf, err := ctor.Impl(th, []vm.Value{vm.NewStr(path), vm.NewStr("r")})
	require.NoError(t, err)
	rrec := rf.(*vm.Record)

	writeFn, _ := rrec.Get("write")
	_, err = writeFn.(*vm.NativeFn).Impl(th, []vm.Value{rrec, vm.NewStr("x")})
	require.Error(t, err)
}

func TestFileUnknownModeErrors(t *testing.T) {
	var buf bytes.Buffer
	th := newThreadWithStdout(&buf)
	ctor := fileConstructor(t, th)

	_, err := ctor.Impl(th, []vm.Value{vm.NewStr(filepath.Join(t.TempDir(), "x.txt")), vm.NewStr("rw")})
	require.Error(t, err)
}
