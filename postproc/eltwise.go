package postproc

import "github.com/buiminhnhut114/edge-npu-design-sub000/arith"

// EltwiseOp selects the element-wise operation.
type EltwiseOp uint8

// Element-wise operations.
const (
	EltAdd EltwiseOp = iota
	EltMul
)

// EltwiseUnit combines two operand streams element by element with
// saturating 8-bit arithmetic.
type EltwiseUnit struct {
	op   EltwiseOp
	pipe *delayLine

	inV  int32
	inOk bool

	out   int8
	outOk bool
}

// NewEltwiseUnit creates an element-wise unit with the given pipeline
// depth.
func NewEltwiseUnit(depth int) *EltwiseUnit {
	return &EltwiseUnit{pipe: newDelayLine(depth)}
}

// SetOp selects the operation applied to subsequently pushed pairs.
func (u *EltwiseUnit) SetOp(op EltwiseOp) {
	u.op = op
}

// Push accepts one operand pair for this cycle.
func (u *EltwiseUnit) Push(a, b int8) {
	switch u.op {
	case EltMul:
		u.inV = int32(arith.SatMul8(a, b))
	default:
		u.inV = int32(arith.SatAdd8(a, b))
	}
	u.inOk = true
}

// Tick advances the pipeline one cycle.
func (u *EltwiseUnit) Tick() {
	v, ok := u.pipe.shift(u.inV, u.inOk)
	u.inV, u.inOk = 0, false
	u.out, u.outOk = int8(v), ok
}

// Out returns the value that completed this cycle, if any.
func (u *EltwiseUnit) Out() (int8, bool) {
	return u.out, u.outOk
}

// Busy reports whether any value is still in flight.
func (u *EltwiseUnit) Busy() bool {
	return u.inOk || u.outOk || u.pipe.busy()
}

// Reset drops all in-flight state.
func (u *EltwiseUnit) Reset() {
	u.pipe.reset()
	u.inOk = false
	u.outOk = false
}
