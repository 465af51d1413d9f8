// Package hashmap implements the open-hashing, bucket-array string-keyed
// map the VM uses for records and the globals table. It is a deliberate
// hand-rolled reimplementation of the original `hana` VM's hmap.c bucket
// layout (see DESIGN.md for why this component, unlike the compiler's
// intern tables, is not backed by a swiss table): an initial bucket count
// of 2, doubling whenever occupied/buckets exceeds a 0.7 load factor, and
// per-bucket linear-probe chains of (key, value) pairs.
package hashmap

import "hash/maphash"

const (
	initialBuckets = 2
	loadFactor     = 0.7
)

type entry[V any] struct {
	key string
	val V
}

// Map is a string-keyed open-hashing map preserving first-insertion order
// of its keys (via Keys), mirroring hmap.c's separate `keys` side array.
type Map[V any] struct {
	seed     maphash.Seed
	buckets  [][]entry[V]
	occupied int
	keys     []string
}

// New returns an empty Map. A single maphash.Seed is generated per Map so
// that hash values are not predictable across separate maps, cheap
// hash-flood hygiene even though sandboxing in general is out of scope.
func New[V any]() *Map[V] {
	m := &Map[V]{seed: maphash.MakeSeed()}
	m.buckets = make([][]entry[V], initialBuckets)
	return m
}

func (m *Map[V]) hash(key string) uint64 {
	return maphash.String(m.seed, key)
}

func (m *Map[V]) bucketIndex(key string) uint64 {
	return m.hash(key) & uint64(len(m.buckets)-1)
}

// Get returns the value stored for key, if any.
func (m *Map[V]) Get(key string) (V, bool) {
	idx := m.bucketIndex(key)
	for _, e := range m.buckets[idx] {
		if e.key == key {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores val for key, growing the bucket array first if the load
// factor would be exceeded, exactly as hmap_set does before inserting.
func (m *Map[V]) Set(key string, val V) {
	if float64(m.occupied+1)/float64(len(m.buckets)) > loadFactor {
		m.grow()
	}
	idx := m.bucketIndex(key)
	for i, e := range m.buckets[idx] {
		if e.key == key {
			m.buckets[idx][i].val = val
			return
		}
	}
	if len(m.buckets[idx]) == 0 {
		m.occupied++
	}
	m.buckets[idx] = append(m.buckets[idx], entry[V]{key: key, val: val})
	m.keys = append(m.keys, key)
}

// Delete removes key, if present.
func (m *Map[V]) Delete(key string) {
	idx := m.bucketIndex(key)
	bucket := m.buckets[idx]
	for i, e := range bucket {
		if e.key == key {
			m.buckets[idx] = append(bucket[:i], bucket[i+1:]...)
			if len(m.buckets[idx]) == 0 {
				m.occupied--
			}
			for i, k := range m.keys {
				if k == key {
					m.keys = append(m.keys[:i], m.keys[i+1:]...)
					break
				}
			}
			return
		}
	}
}

// Len returns the number of keys stored in the map.
func (m *Map[V]) Len() int { return len(m.keys) }

// Keys returns the map's keys in first-insertion order. The returned slice
// must not be mutated.
func (m *Map[V]) Keys() []string { return m.keys }

func (m *Map[V]) grow() {
	old := m.buckets
	m.buckets = make([][]entry[V], len(old)*2)
	m.occupied = 0
	for _, bucket := range old {
		for _, e := range bucket {
			idx := m.bucketIndex(e.key)
			if len(m.buckets[idx]) == 0 {
				m.occupied++
			}
			m.buckets[idx] = append(m.buckets[idx], e)
		}
	}
}

// Clone returns a deep-enough copy of m: buckets and keys are copied, but
// stored values are copied by assignment (shallow for reference types).
func (m *Map[V]) Clone() *Map[V] {
	out := &Map[V]{seed: m.seed, occupied: m.occupied}
	out.buckets = make([][]entry[V], len(m.buckets))
	for i, bucket := range m.buckets {
		out.buckets[i] = append([]entry[V](nil), bucket...)
	}
	out.keys = append([]string(nil), m.keys...)
	return out
}
