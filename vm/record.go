package vm

import (
	"strings"

	"github.com/mna/calyx/vm/hashmap"
)

// Record is the VM's sole structured/object type: a string-keyed map of
// fields plus a cached pointer to its prototype record. Method and
// attribute lookup walks the prototype chain (MemberGet); the
// "constructor" key is a deliberate exception (see OwnGet) and is
// never resolved through the chain, matching the original VM's call
// dispatch exactly (see DESIGN.md).
type Record struct {
	refCounted
	fields *hashmap.Map[Value]
	// Proto is the cached prototype pointer. Writing the "prototype" key
	// via Set keeps this in sync; reading "prototype" via Get returns
	// whatever was last written there (which should always be Proto, or
	// Nil{} if Proto is nil).
	Proto *Record
}

// NewRecord returns an empty Record with one live reference and no
// prototype.
func NewRecord() *Record {
	return &Record{refCounted: refCounted{refs: 1}, fields: hashmap.New[Value]()}
}

func (*Record) Type() string { return "record" }

func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.fields.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		v, _ := r.fields.Get(k)
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v.String())
	}
	b.WriteByte('}')
	return b.String()
}

// Set stores val under key on r's own fields, bypassing the prototype
// chain (MemberSet never writes through a prototype). Writing "prototype"
// additionally updates the cached Proto pointer. Set takes ownership of
// val (retaining it) and releases whatever it replaces, so callers should
// not separately retain val for the record's sake.
func (r *Record) Set(key string, val Value) {
	if old, ok := r.fields.Get(key); ok {
		Release(old)
	}
	Retain(val)
	r.fields.Set(key, val)
	if key == "prototype" {
		if p, ok := val.(*Record); ok {
			r.Proto = p
		} else {
			r.Proto = nil
		}
	}
}

// setOwned stores val under key like Set, but without Set's extra retain:
// it assumes the caller already owns the one reference it is handing over
// (e.g. a value just popped off the operand stack, as DictLoad and
// ArrayLoad's element transfers do), so no Release is needed afterward.
// Any value replaced at key is still released, same as Set.
func (r *Record) setOwned(key string, val Value) {
	if old, ok := r.fields.Get(key); ok {
		Release(old)
	}
	r.fields.Set(key, val)
	if key == "prototype" {
		if p, ok := val.(*Record); ok {
			r.Proto = p
		} else {
			r.Proto = nil
		}
	}
}

// Get resolves key by walking r's own fields, then its prototype chain,
// the usual (non-constructor) member access rule.
func (r *Record) Get(key string) (Value, bool) {
	for cur := r; cur != nil; cur = cur.Proto {
		if v, ok := cur.fields.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// OwnGet resolves key against r's own fields only, with no prototype walk.
// Used for the "constructor" key during a call (spec: constructor lookup
// never walks the prototype chain) and for iterating a record's own keys.
func (r *Record) OwnGet(key string) (Value, bool) { return r.fields.Get(key) }

// Keys returns r's own field names in insertion order.
func (r *Record) Keys() []string { return r.fields.Keys() }

func (r *Record) teardown() {
	for _, k := range r.fields.Keys() {
		v, _ := r.fields.Get(k)
		Release(v)
	}
}
