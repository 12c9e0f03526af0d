package mem

import "errors"

// ErrHalfBusy is returned when a swap is attempted while the half being
// released still has a read in flight.
var ErrHalfBusy = errors.New("mem: released half has an in-flight read")

// DoubleBuffer exposes a bank as two logical ping/pong halves: the compute
// path reads the current half while the transfer path writes the other.
// Only the controller swaps roles, and a swap is refused while the half
// being handed over is still referenced by an in-flight read.
type DoubleBuffer struct {
	halves   [2]*Bank
	readHalf int
}

// NewDoubleBuffer creates a double buffer whose halves each hold halfSize
// bytes.
func NewDoubleBuffer(name string, halfSize, portWidth int) *DoubleBuffer {
	return &DoubleBuffer{
		halves: [2]*Bank{
			NewBank(name+".ping", halfSize, portWidth),
			NewBank(name+".pong", halfSize, portWidth),
		},
	}
}

// ReadBank returns the half currently owned by the compute path.
func (d *DoubleBuffer) ReadBank() *Bank { return d.halves[d.readHalf] }

// WriteBank returns the half currently owned by the transfer path.
func (d *DoubleBuffer) WriteBank() *Bank { return d.halves[1-d.readHalf] }

// Swap exchanges the roles of the two halves. It fails with ErrHalfBusy if
// the current read half still has a read port access in flight, since the
// consumer of that data has not observed it yet.
func (d *DoubleBuffer) Swap() error {
	if d.halves[d.readHalf].ReadBusy() {
		return ErrHalfBusy
	}
	d.readHalf = 1 - d.readHalf
	return nil
}

// Tick advances both halves one cycle.
func (d *DoubleBuffer) Tick() {
	d.halves[0].Tick()
	d.halves[1].Tick()
}

// Reset clears both halves and restores the initial role assignment.
func (d *DoubleBuffer) Reset() {
	d.halves[0].Reset()
	d.halves[1].Reset()
	d.readHalf = 0
}
