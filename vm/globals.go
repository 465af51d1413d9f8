package vm

import (
	"math"

	"github.com/mna/calyx/vm/hashmap"
)

// bootstrap populates the globals map and the VM-wide prototype fields
// before user code runs (spec §6.4): the nil/true/false/nan/inf constants,
// a method-bag record per primitive type (kept as Thread fields, not a
// globals lookup, so value_get_prototype-equivalent dispatch stays O(1)
// per the original's design note in §9 "Global state"), and one error-type
// record per RuntimeError Kind so a fatal arithmetic/index/etc. mismatch
// can be raised through the same Try/handler machinery as a user Raise
// (spec §9 "Exceptions vs. errors" names this unification as the intended
// re-architecture; Thread.Run performs it, raising the record built by
// newRuntimeErrorValue below through Thread.raise).
func (t *Thread) bootstrap() {
	t.Globals.Set("nil", Nil{})
	t.Globals.Set("true", Int(1))
	t.Globals.Set("false", Int(0))
	t.Globals.Set("nan", Float(math.NaN()))
	t.Globals.Set("inf", Float(math.Inf(1)))

	t.StringProto = NewRecord()
	t.IntProto = NewRecord()
	t.FloatProto = NewRecord()
	t.ArrayProto = NewRecord()
	t.RecordProto = NewRecord()
	t.Globals.Set("String", t.StringProto)
	t.Globals.Set("Int", t.IntProto)
	t.Globals.Set("Float", t.FloatProto)
	t.Globals.Set("Array", t.ArrayProto)
	t.Globals.Set("Record", t.RecordProto)

	t.ErrorProtos = make(map[Kind]*Record, 8)
	for kind, name := range errorProtoNames {
		proto := NewRecord()
		proto.Set("name", NewStr(name))
		t.ErrorProtos[kind] = proto
		t.Globals.Set(name, proto)
	}
}

var errorProtoNames = map[Kind]string{
	KindTypeMismatch:    "TypeError",
	KindUnboundGlobal:   "UnboundGlobalError",
	KindArityMismatch:   "ArityError",
	KindNotCallable:     "NotCallableError",
	KindNoConstructor:   "NoConstructorError",
	KindBadIndex:        "IndexError",
	KindOutOfRange:      "RangeError",
	KindBadMemberTarget: "MemberError",
	KindStackOverflow:   "StackOverflowError",
}

// newRuntimeErrorValue builds the record a RuntimeError is raised as: an
// instance of the matching error-type global, carrying the message under
// "message" so a handler can report it.
func (t *Thread) newRuntimeErrorValue(re *RuntimeError) *Record {
	proto := t.ErrorProtos[re.Kind]
	rec := NewRecord()
	rec.Set("prototype", proto) // proto is a long-lived global the bootstrap already owns a reference to
	rec.setOwned("message", NewStr(re.Msg)) // freshly allocated, owned solely by this field
	return rec
}

// RegisterNative adds a native function to the globals table (use
// RegisterGlobal for any other value), the embedding hook spec §6.4 names ("any additional native
// functions exposed by the embedding").
func (t *Thread) RegisterNative(name string, fn NativeFnImpl) {
	t.Globals.Set(name, NewNativeFn(name, fn))
}

// RegisterGlobal adds an arbitrary already-constructed Value (a record
// acting as a class, a constant, anything not a plain native function) to
// the globals table under name, retaining it the same way setGlobal does
// for a SetGlobal instruction.
func (t *Thread) RegisterGlobal(name string, v Value) {
	t.setGlobal(name, v)
}

func newGlobals() *hashmap.Map[Value] { return hashmap.New[Value]() }
