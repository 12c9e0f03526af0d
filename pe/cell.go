// Package pe models the weight-stationary systolic processing-element
// array at the heart of the NPU datapath.
package pe

import "github.com/buiminhnhut114/edge-npu-design-sub000/arith"

// Cell is one processing element: a stationary signed 8-bit weight, a
// saturating 32-bit accumulator, and the data register that forwards the
// activation to the right-hand neighbor each enabled cycle.
type Cell struct {
	weight int8
	acc    int32
	valid  bool

	data      int8
	dataValid bool

	// macd records that at least one enabled accumulation has happened;
	// validity asserts one cycle later.
	macd bool
}

// LoadWeight latches a new stationary weight. Only the weight-load strobe
// drives this; compute never touches the weight register.
func (c *Cell) LoadWeight(w int8) {
	c.weight = w
}

// Weight returns the stationary weight.
func (c *Cell) Weight() int8 { return c.weight }

// Acc returns the accumulator value.
func (c *Cell) Acc() int32 { return c.acc }

// Valid reports the accumulator validity flag.
func (c *Cell) Valid() bool { return c.valid }

// step performs one enabled cycle: the validity flag registers the
// previous cycle's accumulation, then the incoming data is accumulated
// and latched for the neighbor.
func (c *Cell) step(in int8, inValid bool) {
	if c.macd {
		c.valid = true
	}

	c.acc = arith.MAC(c.acc, in, c.weight)
	c.macd = true

	c.data = in
	c.dataValid = inValid
}

// clear resets the accumulator and validity synchronously. The weight and
// data registers are untouched.
func (c *Cell) clear() {
	c.acc = 0
	c.valid = false
	c.macd = false
}
