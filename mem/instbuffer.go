package mem

// InstBuffer is the synchronous instruction store: fixed-width 64-bit
// entries with the same one-cycle read latency as the data banks.
type InstBuffer struct {
	entries []uint64

	readPending bool
	readIndex   uint32

	readValid bool
	readData  uint64
}

// NewInstBuffer creates an instruction buffer with the given entry count.
func NewInstBuffer(entries int) *InstBuffer {
	return &InstBuffer{entries: make([]uint64, entries)}
}

// Len returns the buffer capacity in entries.
func (ib *InstBuffer) Len() int { return len(ib.entries) }

// WriteEntry stores an instruction word at the given index. Program upload
// is a host-side operation and takes effect immediately.
func (ib *InstBuffer) WriteEntry(index uint32, raw uint64) {
	if int(index) < len(ib.entries) {
		ib.entries[index] = raw
	}
}

// ReadEnable issues a fetch of the entry at index; the word is available
// on the next Tick.
func (ib *InstBuffer) ReadEnable(index uint32) {
	ib.readPending = true
	ib.readIndex = index
}

// Tick advances the buffer one cycle.
func (ib *InstBuffer) Tick() {
	ib.readValid = false
	if ib.readPending {
		if int(ib.readIndex) < len(ib.entries) {
			ib.readData = ib.entries[ib.readIndex]
		} else {
			ib.readData = 0
		}
		ib.readValid = true
		ib.readPending = false
	}
}

// Valid pulses for the one cycle the fetched word is present.
func (ib *InstBuffer) Valid() bool { return ib.readValid }

// Data returns the fetched instruction word.
func (ib *InstBuffer) Data() uint64 { return ib.readData }

// Reset clears the buffer contents and port state.
func (ib *InstBuffer) Reset() {
	for i := range ib.entries {
		ib.entries[i] = 0
	}
	ib.readPending = false
	ib.readValid = false
}
