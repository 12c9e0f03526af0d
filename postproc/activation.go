package postproc

import "github.com/buiminhnhut114/edge-npu-design-sub000/arith"

// ActivationUnit applies the selected activation function with a fixed
// pipeline latency.
type ActivationUnit struct {
	code arith.ActFunc
	pipe *delayLine

	inV  int32
	inOk bool

	out   int8
	outOk bool
}

// NewActivationUnit creates an activation unit with the given pipeline
// depth.
func NewActivationUnit(depth int) *ActivationUnit {
	return &ActivationUnit{pipe: newDelayLine(depth)}
}

// SetFunc selects the activation applied to subsequently pushed values.
func (u *ActivationUnit) SetFunc(code arith.ActFunc) {
	u.code = code
}

// Push accepts one input for this cycle.
func (u *ActivationUnit) Push(x int8) {
	u.inV = int32(arith.Activate(u.code, x))
	u.inOk = true
}

// Tick advances the pipeline one cycle.
func (u *ActivationUnit) Tick() {
	v, ok := u.pipe.shift(u.inV, u.inOk)
	u.inV, u.inOk = 0, false
	u.out, u.outOk = int8(v), ok
}

// Out returns the value that completed this cycle, if any.
func (u *ActivationUnit) Out() (int8, bool) {
	return u.out, u.outOk
}

// Busy reports whether any value is still in flight.
func (u *ActivationUnit) Busy() bool {
	return u.inOk || u.outOk || u.pipe.busy()
}

// Reset drops all in-flight state.
func (u *ActivationUnit) Reset() {
	u.pipe.reset()
	u.inOk = false
	u.outOk = false
	u.code = arith.ActNone
}
