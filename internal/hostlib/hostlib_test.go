package hostlib

import (
	"testing"

	"github.com/mna/calyx/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThread() *vm.Thread {
	t := vm.NewThread(nil, nil)
	Install(t)
	return t
}

func TestInstallWiresAllBags(t *testing.T) {
	th := newThread()
	for _, name := range []string{"length", "upper", "lower", "slice", "find"} {
		_, ok := th.StringProto.OwnGet(name)
		assert.True(t, ok, "string.%s", name)
	}
	for _, name := range []string{"length", "push", "pop", "sort", "join"} {
		_, ok := th.ArrayProto.OwnGet(name)
		assert.True(t, ok, "array.%s", name)
	}
	for _, name := range []string{"keys", "has"} {
		_, ok := th.RecordProto.OwnGet(name)
		assert.True(t, ok, "record.%s", name)
	}
	_, ok := th.Globals.Get("print")
	assert.True(t, ok)
	_, ok = th.Globals.Get("println")
	assert.True(t, ok)
	_, ok = th.Globals.Get("File")
	assert.True(t, ok)
}

func TestStrLengthUpperLower(t *testing.T) {
	th := newThread()

	n, err := strLength(th, []vm.Value{vm.NewStr("hello")})
	require.NoError(t, err)
	assert.Equal(t, vm.Int(5), n)

	u, err := strUpper(th, []vm.Value{vm.NewStr("hello")})
	require.NoError(t, err)
	assert.Equal(t, "HELLO", u.(*vm.Str).S)

	l, err := strLower(th, []vm.Value{vm.NewStr("HELLO")})
	require.NoError(t, err)
	assert.Equal(t, "hello", l.(*vm.Str).S)
}

func TestStrSliceClampsBounds(t *testing.T) {
	th := newThread()
	v, err := strSlice(th, []vm.Value{vm.NewStr("hello"), vm.Int(1), vm.Int(100)})
	require.NoError(t, err)
	assert.Equal(t, "ello", v.(*vm.Str).S)
}

func TestStrFind(t *testing.T) {
	th := newThread()
	v, err := strFind(th, []vm.Value{vm.NewStr("hello world"), vm.NewStr("world")})
	require.NoError(t, err)
	assert.Equal(t, vm.Int(6), v)

	v, err = strFind(th, []vm.Value{vm.NewStr("hello"), vm.NewStr("xyz")})
	require.NoError(t, err)
	assert.Equal(t, vm.Int(-1), v)
}

func TestArrLengthPushPop(t *testing.T) {
	th := newThread()
	a := vm.NewArray([]vm.Value{vm.Int(1), vm.Int(2)})

	n, err := arrLength(th, []vm.Value{a})
	require.NoError(t, err)
	assert.Equal(t, vm.Int(2), n)

	a = vm.NewArray([]vm.Value{vm.Int(1)})
	v, err := arrPush(th, []vm.Value{a, vm.Int(2), vm.Int(3)})
	require.NoError(t, err)
	assert.Equal(t, []vm.Value{vm.Int(1), vm.Int(2), vm.Int(3)}, v.(*vm.Array).Elems)

	popped, err := arrPop(th, []vm.Value{a})
	require.NoError(t, err)
	assert.Equal(t, vm.Int(3), popped)
	assert.Equal(t, []vm.Value{vm.Int(1), vm.Int(2)}, a.Elems)
}

func TestArrPopEmpty(t *testing.T) {
	th := newThread()
	a := vm.NewArray(nil)
	v, err := arrPop(th, []vm.Value{a})
	require.NoError(t, err)
	assert.Equal(t, vm.Nil{}, v)
}

func TestArrSort(t *testing.T) {
	th := newThread()
	a := vm.NewArray([]vm.Value{vm.Int(3), vm.Int(1), vm.Int(2)})
	v, err := arrSort(th, []vm.Value{a})
	require.NoError(t, err)
	assert.Equal(t, []vm.Value{vm.Int(1), vm.Int(2), vm.Int(3)}, v.(*vm.Array).Elems)
}

func TestArrJoin(t *testing.T) {
	th := newThread()
	a := vm.NewArray([]vm.Value{vm.NewStr("a"), vm.NewStr("b"), vm.NewStr("c")})
	v, err := arrJoin(th, []vm.Value{a, vm.NewStr(", ")})
	require.NoError(t, err)
	assert.Equal(t, "a, b, c", v.(*vm.Str).S)
}

func TestArrJoinNonStringElementErrors(t *testing.T) {
	th := newThread()
	a := vm.NewArray([]vm.Value{vm.NewStr("a"), vm.Int(1)})
	_, err := arrJoin(th, []vm.Value{a, vm.NewStr(",")})
	require.Error(t, err)
}

func newTestRecord() *vm.Record {
	r := vm.NewRecord()
	r.Set("b", vm.Int(1))
	r.Set("a", vm.Int(2))
	return r
}

func TestRecKeys(t *testing.T) {
	th := newThread()
	v, err := recKeys(th, []vm.Value{newTestRecord()})
	require.NoError(t, err)
	keys := v.(*vm.Array).Elems
	require.Len(t, keys, 2)
	assert.Equal(t, "b", keys[0].(*vm.Str).S)
	assert.Equal(t, "a", keys[1].(*vm.Str).S)
}

func TestRecHas(t *testing.T) {
	th := newThread()
	has, err := recHas(th, []vm.Value{newTestRecord(), vm.NewStr("b")})
	require.NoError(t, err)
	assert.Equal(t, vm.Int(1), has)

	has, err = recHas(th, []vm.Value{newTestRecord(), vm.NewStr("missing")})
	require.NoError(t, err)
	assert.Equal(t, vm.Int(0), has)
}

func TestWrongReceiverTypeErrors(t *testing.T) {
	th := newThread()
	_, err := arrLength(th, []vm.Value{vm.Int(1)})
	require.Error(t, err)

	_, err = strLength(th, []vm.Value{vm.Int(1)})
	require.Error(t, err)

	_, err = recKeys(th, []vm.Value{vm.Int(1)})
	require.Error(t, err)
}
