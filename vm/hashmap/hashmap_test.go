package hashmap_test

import (
	"fmt"
	"testing"

	"github.com/mna/calyx/vm/hashmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetHas(t *testing.T) {
	m := hashmap.New[int]()
	_, ok := m.Get("missing")
	assert.False(t, ok)
	assert.False(t, m.Has("missing"))

	m.Set("a", 1)
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, m.Has("a"))

	m.Set("a", 2)
	v, ok = m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestDeleteAndKeysOrder(t *testing.T) {
	m := hashmap.New[string]()
	m.Set("first", "1")
	m.Set("second", "2")
	m.Set("third", "3")
	assert.Equal(t, []string{"first", "second", "third"}, m.Keys())

	m.Delete("second")
	assert.False(t, m.Has("second"))
	assert.Equal(t, []string{"first", "third"}, m.Keys())
	assert.Equal(t, 2, m.Len())
}

func TestGrowthPreservesEntries(t *testing.T) {
	m := hashmap.New[int]()
	const n = 500
	for i := 0; i < n; i++ {
		m.Set(fmt.Sprintf("key-%d", i), i)
	}
	assert.Equal(t, n, m.Len())
	for i := 0; i < n; i++ {
		v, ok := m.Get(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestClone(t *testing.T) {
	m := hashmap.New[int]()
	m.Set("a", 1)
	c := m.Clone()
	c.Set("b", 2)

	assert.False(t, m.Has("b"))
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}
