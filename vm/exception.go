package vm

// exceptionHandler is one (etype, handler) pair recorded by a Try
// instruction, grounded on hana's exception_frame_data.
type exceptionHandler struct {
	etype *Record
	fn    *Fn
}

// ExceptionFrame is the unwind target pushed by Try and popped by
// ExframeRet: the handler list for this try block plus the environment
// and stack depth to restore when a handler matches, and a link to the
// next-outer frame. unwindEnv carries one extra reference on top of
// whatever Environment.Retain count it already had (taken when the frame
// is built, see Thread's Try opcode handler) so that unwinding several
// call frames deep can Release the current environment once and let its
// teardown cascade stop exactly here; whoever discards this frame --
// ExframeRet on the normal path, or Thread.raise skipping past it --
// must Release(unwindEnv) exactly once to drop that protection.
type ExceptionFrame struct {
	handlers       []exceptionHandler
	unwindEnv      *Environment
	unwindStackLen int
	recoveryIP     uint32
	prev           *ExceptionFrame
}

// matchHandler returns the handler fn whose etype equals raised's own
// prototype record, or nil if none of this frame's handlers match.
// Per the original VM (and spec §4.3), this is a single equality against
// the raised value's own prototype, not a prototype-chain walk: a
// handler guarding the grandparent type does not catch a more specific
// raised type unless it IS that exact prototype record.
func (f *ExceptionFrame) matchHandler(proto *Record) *Fn {
	for _, h := range f.handlers {
		if h.etype == proto {
			return h.fn
		}
	}
	return nil
}
