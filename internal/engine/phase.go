package engine

// Phase is the engine's solve state. The variants are Idle, Computing and
// Done; no other type implements Phase.
type Phase interface {
	phase()
	String() string
}

// Idle means no valid result is cached. The next query computes.
type Idle struct{}

// Computing means a fixpoint is in flight. Nested queries read the
// working set instead of recursing.
type Computing struct {
	work *working
}

// Done carries the cached result of the last compute.
type Done struct {
	Result *Result
}

func (Idle) phase()      {}
func (Computing) phase() {}
func (Done) phase()      {}

func (Idle) String() string      { return "idle" }
func (Computing) String() string { return "computing" }
func (Done) String() string      { return "done" }
