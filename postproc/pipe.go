// Package postproc models the post-processing units that sit between the
// PE array and the activation buffer: activation, pooling, element-wise
// arithmetic and requantization. Each unit is a small fixed-latency
// pipeline accepting one input per cycle when enabled, with valid_out
// delayed by the unit's depth.
package postproc

// lane is one pipeline register: a value plus its valid bit.
type lane struct {
	v     int32
	valid bool
}

// delayLine is a shift register of fixed depth shared by all units.
type delayLine struct {
	slots []lane
}

func newDelayLine(depth int) *delayLine {
	if depth < 1 {
		depth = 1
	}
	return &delayLine{slots: make([]lane, depth)}
}

// shift pushes one input lane and returns the lane falling out the far
// end. Called exactly once per cycle.
func (d *delayLine) shift(v int32, valid bool) (int32, bool) {
	out := d.slots[len(d.slots)-1]
	copy(d.slots[1:], d.slots[:len(d.slots)-1])
	d.slots[0] = lane{v: v, valid: valid}
	return out.v, out.valid
}

func (d *delayLine) busy() bool {
	for _, s := range d.slots {
		if s.valid {
			return true
		}
	}
	return false
}

func (d *delayLine) reset() {
	for i := range d.slots {
		d.slots[i] = lane{}
	}
}
