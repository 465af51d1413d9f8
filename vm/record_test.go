package vm_test

import (
	"testing"

	"github.com/mna/calyx/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSetGetOwnGet(t *testing.T) {
	proto := vm.NewRecord()
	proto.Set("greeting", vm.NewStr("hi"))

	r := vm.NewRecord()
	r.Set("prototype", proto)
	r.Set("name", vm.NewStr("calyx"))

	v, ok := r.Get("name")
	require.True(t, ok)
	assert.Equal(t, "calyx", v.(*vm.Str).S)

	// inherited through the prototype chain
	v, ok = r.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hi", v.(*vm.Str).S)

	// OwnGet does not walk the chain
	_, ok = r.OwnGet("greeting")
	assert.False(t, ok)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRecordSetOverwriteReleasesOld(t *testing.T) {
	destroyed := false
	old := vm.NewNativeObj("old", nil, func(any) { destroyed = true })

	r := vm.NewRecord()
	r.Set("handle", old)
	vm.Release(old) // r now holds the only reference

	r.Set("handle", vm.NewStr("replacement"))
	assert.True(t, destroyed)

	v, ok := r.Get("handle")
	require.True(t, ok)
	assert.Equal(t, "replacement", v.(*vm.Str).S)
}

func TestRecordKeysInsertionOrder(t *testing.T) {
	r := vm.NewRecord()
	r.Set("b", vm.Int(1))
	r.Set("a", vm.Int(2))
	r.Set("c", vm.Int(3))
	assert.Equal(t, []string{"b", "a", "c"}, r.Keys())
}
