package postproc

import "github.com/buiminhnhut114/edge-npu-design-sub000/arith"

// Quantizer rescales wide accumulator values to the 8-bit output
// representation using the programmed scale, shift and zero point.
type Quantizer struct {
	scale int32
	shift uint8
	zero  int8

	pipe *delayLine

	inV  int32
	inOk bool

	out   int8
	outOk bool
}

// NewQuantizer creates a quantizer with the given pipeline depth and unit
// scaling (scale 1, shift 0, zero point 0).
func NewQuantizer(depth int) *Quantizer {
	return &Quantizer{scale: 1, pipe: newDelayLine(depth)}
}

// Configure programs the requantization parameters.
func (q *Quantizer) Configure(scale int32, shift uint8, zeroPoint int8) {
	q.scale = scale
	q.shift = shift
	q.zero = zeroPoint
}

// Push accepts one accumulator value for this cycle.
func (q *Quantizer) Push(acc int32) {
	q.inV = int32(arith.Requantize(acc, q.scale, q.shift, q.zero))
	q.inOk = true
}

// Tick advances the pipeline one cycle.
func (q *Quantizer) Tick() {
	v, ok := q.pipe.shift(q.inV, q.inOk)
	q.inV, q.inOk = 0, false
	q.out, q.outOk = int8(v), ok
}

// Out returns the value that completed this cycle, if any.
func (q *Quantizer) Out() (int8, bool) {
	return q.out, q.outOk
}

// Busy reports whether any value is still in flight.
func (q *Quantizer) Busy() bool {
	return q.inOk || q.outOk || q.pipe.busy()
}

// Reset drops in-flight state; the programmed parameters survive.
func (q *Quantizer) Reset() {
	q.pipe.reset()
	q.inOk = false
	q.outOk = false
}
