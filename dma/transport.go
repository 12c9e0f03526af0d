// Package dma models the NPU's burst-transfer DMA engine and the bus-side
// transport it drives. The transport handshake itself belongs to the
// external interconnect; only the beat-level data/response contract is
// modeled here.
package dma

// Response is the per-beat status returned by the transport.
type Response uint8

// Transport responses.
const (
	RespOK Response = iota
	RespError
)

// Transport is the beat-level view of the external memory interconnect.
// One call moves exactly one beat.
type Transport interface {
	// ReadBeat returns n bytes at addr.
	ReadBeat(addr uint64, n int) ([]byte, Response)
	// WriteBeat stores data at addr.
	WriteBeat(addr uint64, data []byte) Response
}

// Memory is a flat external memory implementing Transport. Out-of-range
// beats report a bus error, which the engine turns into an aborted
// transfer.
type Memory struct {
	data []byte
}

// NewMemory creates an external memory of the given size.
func NewMemory(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory capacity in bytes.
func (m *Memory) Size() int { return len(m.data) }

// ReadBeat implements Transport.
func (m *Memory) ReadBeat(addr uint64, n int) ([]byte, Response) {
	if addr+uint64(n) > uint64(len(m.data)) {
		return nil, RespError
	}
	out := make([]byte, n)
	copy(out, m.data[addr:])
	return out, RespOK
}

// WriteBeat implements Transport.
func (m *Memory) WriteBeat(addr uint64, data []byte) Response {
	if addr+uint64(len(data)) > uint64(len(m.data)) {
		return RespError
	}
	copy(m.data[addr:], data)
	return RespOK
}

// Write is the host-side (zero-latency) store used to preload models and
// activations.
func (m *Memory) Write(addr uint64, data []byte) {
	copy(m.data[addr:], data)
}

// Read is the host-side view used to inspect results.
func (m *Memory) Read(addr uint64, n int) []byte {
	out := make([]byte, n)
	copy(out, m.data[addr:])
	return out
}
