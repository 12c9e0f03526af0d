// Package mem models the NPU's on-chip memory banks: synchronous
// single-cycle stores with independent read and write ports, plus the
// ping/pong double buffering used by the activation buffer.
package mem

// Bank is a byte-addressable synchronous store with two read ports and one
// write port. Port A moves one port-width row per access and feeds the
// streaming datapath; port B latches a caller-sized row and serves the
// second element-wise operand and the DMA store path. A read issued this
// cycle returns its data on the next cycle (Valid pulses for exactly one
// cycle). A write issued this cycle commits on the next cycle and, when it
// overlaps a simultaneous read, the write data wins: the read observes the
// freshly written bytes.
//
// Addresses wrap at the bank size, the way the address decoder ignores
// bits above the implemented range. An access spanning the end of the bank
// truncates there and reads as zero beyond it.
type Bank struct {
	name string
	data []byte

	portWidth int

	// staged write port
	writePending bool
	writeAddr    uint32
	writeData    []byte

	// staged read port A
	readPending bool
	readAddr    uint32

	// registered port A output
	readValid bool
	readData  []byte

	// staged read port B
	readPendingB bool
	readAddrB    uint32
	readLenB     int

	// registered port B output
	readValidB bool
	readDataB  []byte
}

// NewBank creates a bank of the given size. portWidth is the number of
// bytes moved per port A access.
func NewBank(name string, size, portWidth int) *Bank {
	return &Bank{
		name:      name,
		data:      make([]byte, size),
		portWidth: portWidth,
		readData:  make([]byte, portWidth),
	}
}

// Name returns the bank's instance name.
func (b *Bank) Name() string { return b.name }

// Size returns the bank capacity in bytes.
func (b *Bank) Size() int { return len(b.data) }

// PortWidth returns the number of bytes per port A access.
func (b *Bank) PortWidth() int { return b.portWidth }

func (b *Bank) index(addr uint32) int {
	return int(addr % uint32(len(b.data)))
}

// ReadEnable issues a port A read of one port-width row at addr. The data
// appears on the next Tick. Issuing a second read in the same cycle
// replaces the first; each port carries one access per cycle.
func (b *Bank) ReadEnable(addr uint32) {
	b.readPending = true
	b.readAddr = addr
}

// ReadEnableB issues a port B read of n bytes at addr, with the same
// one-cycle latency as port A.
func (b *Bank) ReadEnableB(addr uint32, n int) {
	b.readPendingB = true
	b.readAddrB = addr
	b.readLenB = n
}

// Write stages a write of data at addr through the write port. At most one
// write is accepted per cycle; a second write in the same cycle replaces
// the first.
func (b *Bank) Write(addr uint32, data []byte) {
	b.writePending = true
	b.writeAddr = addr
	b.writeData = append(b.writeData[:0], data...)
}

// Tick advances the bank one cycle: the staged write commits first, then
// the staged reads latch, so a same-cycle same-address conflict resolves
// with write priority.
func (b *Bank) Tick() {
	if b.writePending {
		copy(b.data[b.index(b.writeAddr):], b.writeData)
		b.writePending = false
	}

	b.readValid = false
	if b.readPending {
		n := copy(b.readData, b.data[b.index(b.readAddr):])
		for i := n; i < b.portWidth; i++ {
			b.readData[i] = 0
		}
		b.readValid = true
		b.readPending = false
	}

	b.readValidB = false
	if b.readPendingB {
		if cap(b.readDataB) < b.readLenB {
			b.readDataB = make([]byte, b.readLenB)
		}
		b.readDataB = b.readDataB[:b.readLenB]
		n := copy(b.readDataB, b.data[b.index(b.readAddrB):])
		for i := n; i < b.readLenB; i++ {
			b.readDataB[i] = 0
		}
		b.readValidB = true
		b.readPendingB = false
	}
}

// Valid reports whether port A data is present this cycle. It pulses
// exactly one cycle after ReadEnable.
func (b *Bank) Valid() bool { return b.readValid }

// Data returns the latched port A data. Only meaningful while Valid is
// true.
func (b *Bank) Data() []byte { return b.readData }

// ValidB reports whether port B data is present this cycle.
func (b *Bank) ValidB() bool { return b.readValidB }

// DataB returns the latched port B data. Only meaningful while ValidB is
// true.
func (b *Bank) DataB() []byte { return b.readDataB }

// ReadBusy reports whether either read port has an issued or just-latched
// access in flight. The double buffer uses it to gate swaps.
func (b *Bank) ReadBusy() bool {
	return b.readPending || b.readValid || b.readPendingB || b.readValidB
}

// Peek copies bytes starting at addr without engaging the read ports. It
// is the debug/host view used by tests.
func (b *Bank) Peek(addr uint32, n int) []byte {
	out := make([]byte, n)
	copy(out, b.data[b.index(addr):])
	return out
}

// Poke writes bytes at addr without engaging the write port, for host-side
// preloading.
func (b *Bank) Poke(addr uint32, data []byte) {
	copy(b.data[b.index(addr):], data)
}

// Reset clears the bank contents and any staged port activity.
func (b *Bank) Reset() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.writePending = false
	b.readPending = false
	b.readValid = false
	b.readPendingB = false
	b.readValidB = false
}
