package postproc

import "math"

// PoolUnit accumulates a fixed-size square window (2x2 or 3x3) one element
// per cycle and emits the maximum or the truncating integer average with
// the window's fixed divisor.
type PoolUnit struct {
	window  int
	average bool

	count int
	max   int32
	sum   int32

	staged   int32
	stagedOk bool

	pipe *delayLine

	out   int8
	outOk bool
}

// NewPoolUnit creates a pooling unit with the given pipeline depth and a
// 2x2 max window.
func NewPoolUnit(depth int) *PoolUnit {
	u := &PoolUnit{pipe: newDelayLine(depth)}
	u.Configure(2, false)
	return u
}

// Configure selects the window edge length (2 or 3) and max vs. average
// mode. Any partially accumulated window is discarded.
//
// The unit only emits on whole windows: a stream whose length is not a
// multiple of WindowSize leaves the final partial window accumulated and
// the unit busy until the next Configure or Reset. Software must encode
// pooling counts in whole windows.
func (u *PoolUnit) Configure(window int, average bool) {
	if window != 3 {
		window = 2
	}
	u.window = window
	u.average = average
	u.resetWindow()
}

// WindowSize returns the number of elements per pooling window.
func (u *PoolUnit) WindowSize() int { return u.window * u.window }

func (u *PoolUnit) resetWindow() {
	u.count = 0
	u.sum = 0
	u.max = math.MinInt32
}

// Push accepts one window element for this cycle.
func (u *PoolUnit) Push(x int8) {
	u.staged = int32(x)
	u.stagedOk = true
}

// Tick advances the unit one cycle: the staged element joins the current
// window, and a completed window's result enters the output pipeline.
func (u *PoolUnit) Tick() {
	var emit int32
	var emitOk bool

	if u.stagedOk {
		u.count++
		u.sum += u.staged
		if u.staged > u.max {
			u.max = u.staged
		}
		if u.count == u.WindowSize() {
			if u.average {
				emit = u.sum / int32(u.WindowSize())
			} else {
				emit = u.max
			}
			emitOk = true
			u.resetWindow()
		}
		u.stagedOk = false
	}

	v, ok := u.pipe.shift(emit, emitOk)
	u.out, u.outOk = int8(v), ok
}

// Out returns the pooled value that completed this cycle, if any.
func (u *PoolUnit) Out() (int8, bool) {
	return u.out, u.outOk
}

// Busy reports whether a window is partially accumulated or a result is
// still in the pipeline.
func (u *PoolUnit) Busy() bool {
	return u.stagedOk || u.count > 0 || u.outOk || u.pipe.busy()
}

// Reset drops the current window and all in-flight results.
func (u *PoolUnit) Reset() {
	u.resetWindow()
	u.stagedOk = false
	u.pipe.reset()
	u.outOk = false
}
