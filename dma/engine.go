package dma

import (
	"fmt"

	"github.com/buiminhnhut114/edge-npu-design-sub000/mem"
)

// State is the engine's FSM state.
type State uint8

// Engine states. The engine is busy in every state except Idle.
const (
	StateIdle State = iota
	StateReadAddr
	StateReadData
	StateWriteAddr
	StateWriteData
	StateWriteResp
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateReadAddr:
		return "READ_ADDR"
	case StateReadData:
		return "READ_DATA"
	case StateWriteAddr:
		return "WRITE_ADDR"
	case StateWriteData:
		return "WRITE_DATA"
	case StateWriteResp:
		return "WRITE_RESP"
	case StateDone:
		return "DONE"
	}
	return "UNKNOWN"
}

// Engine moves data between external memory and the on-chip buffers in
// bursts. Each burst spends one cycle in the address phase and then moves
// one beat per cycle; a transfer longer than the maximum burst length is
// split into back-to-back bursts. A bus error aborts the transfer and
// latches a sticky error flag.
type Engine struct {
	transport Transport
	beatBytes int
	maxBurst  int

	weightSink func() *mem.Bank
	actInSink  func() *mem.Bank
	actOutSrc  func() *mem.Bank

	state State
	desc  Descriptor
	ch    Channel

	remaining uint32
	extAddr   uint64
	bufAddr   uint32
	burstLeft int
	burstErr  bool

	done bool
	err  bool
	irq  bool

	transfers uint64
	bursts    uint64
	beats     uint64
}

// NewEngine creates a DMA engine driving the given transport. beatBytes is
// the bus beat width and maxBurst the maximum number of beats per burst.
func NewEngine(transport Transport, beatBytes, maxBurst int) *Engine {
	if beatBytes < 1 {
		beatBytes = 1
	}
	if maxBurst < 1 {
		maxBurst = 1
	}
	return &Engine{
		transport: transport,
		beatBytes: beatBytes,
		maxBurst:  maxBurst,
	}
}

// BindBuffers connects the engine's three channels to their on-chip
// buffers. The accessors are called per beat so the activation channels
// follow the double buffer across swaps.
func (e *Engine) BindBuffers(weight, actIn, actOut func() *mem.Bank) {
	e.weightSink = weight
	e.actInSink = actIn
	e.actOutSrc = actOut
}

// BeatBytes returns the bus beat width.
func (e *Engine) BeatBytes() int { return e.beatBytes }

// MaxBurstLen returns the maximum number of beats per burst.
func (e *Engine) MaxBurstLen() int { return e.maxBurst }

// Start launches a transfer on the given channel. It fails if the engine
// is already busy or the descriptor length is zero.
func (e *Engine) Start(d Descriptor, ch Channel) error {
	if e.Busy() {
		return fmt.Errorf("dma: engine busy in state %s", e.state)
	}
	d = d.Normalize()
	if d.Length == 0 {
		return fmt.Errorf("dma: zero-length transfer on channel %s", ch)
	}

	e.desc = d
	e.ch = ch
	e.remaining = d.Length
	e.burstErr = false
	e.done = false

	if d.IsWrite() {
		e.extAddr = d.DstAddr
		e.bufAddr = uint32(d.SrcAddr)
		e.state = StateWriteAddr
	} else {
		e.extAddr = d.SrcAddr
		e.bufAddr = uint32(d.DstAddr)
		e.state = StateReadAddr
	}
	return nil
}

// Busy reports whether a transfer is in flight.
func (e *Engine) Busy() bool { return e.state != StateIdle }

// Done pulses for one cycle when a transfer completes successfully.
func (e *Engine) Done() bool { return e.done }

// Err reports the sticky error flag. It stays set until ClearError.
func (e *Engine) Err() bool { return e.err }

// IRQPending pulses with Done when the completed descriptor requested an
// interrupt.
func (e *Engine) IRQPending() bool { return e.irq }

// ClearError clears the sticky error flag.
func (e *Engine) ClearError() { e.err = false }

// State returns the current FSM state.
func (e *Engine) State() State { return e.state }

// Transfers returns the number of successfully completed transfers.
func (e *Engine) Transfers() uint64 { return e.transfers }

// Bursts returns the total number of address phases issued.
func (e *Engine) Bursts() uint64 { return e.bursts }

// Beats returns the total number of data beats moved.
func (e *Engine) Beats() uint64 { return e.beats }

// Abort drops the in-flight transfer and returns the engine to idle. The
// sticky error flag is left untouched.
func (e *Engine) Abort() {
	e.state = StateIdle
	e.remaining = 0
	e.done = false
	e.irq = false
}

// Reset returns the engine to power-on state, clearing counters and the
// error flag.
func (e *Engine) Reset() {
	e.Abort()
	e.err = false
	e.transfers = 0
	e.bursts = 0
	e.beats = 0
}

func (e *Engine) burstLen() int {
	beats := int((e.remaining + uint32(e.beatBytes) - 1) / uint32(e.beatBytes))
	if beats > e.maxBurst {
		beats = e.maxBurst
	}
	return beats
}

func (e *Engine) beatSize() int {
	if e.remaining < uint32(e.beatBytes) {
		return int(e.remaining)
	}
	return e.beatBytes
}

func (e *Engine) advance(n int) {
	e.remaining -= uint32(n)
	e.bufAddr += uint32(n)
	e.beats++

	stride := uint64(n)
	if e.desc.IsStrided() {
		if e.desc.IsWrite() {
			stride = uint64(e.desc.DstStride)
		} else {
			stride = uint64(e.desc.SrcStride)
		}
	}
	e.extAddr = (e.extAddr + stride) & addrMask
}

func (e *Engine) fail() {
	e.err = true
	e.state = StateIdle
	e.remaining = 0
}

func (e *Engine) sink() *mem.Bank {
	if e.ch == ChanWeight {
		return e.weightSink()
	}
	return e.actInSink()
}

// Tick advances the engine one cycle.
func (e *Engine) Tick() {
	e.done = false
	e.irq = false

	switch e.state {
	case StateIdle:

	case StateReadAddr:
		e.burstLeft = e.burstLen()
		e.bursts++
		e.state = StateReadData

	case StateReadData:
		n := e.beatSize()
		data, resp := e.transport.ReadBeat(e.extAddr, n)
		if resp != RespOK {
			e.fail()
			return
		}
		e.sink().Write(e.bufAddr, data)
		e.advance(n)
		e.burstLeft--
		if e.remaining == 0 {
			e.state = StateDone
		} else if e.burstLeft == 0 {
			e.state = StateReadAddr
		}

	case StateWriteAddr:
		e.burstLeft = e.burstLen()
		e.bursts++
		e.burstErr = false
		e.actOutSrc().ReadEnableB(e.bufAddr, e.beatSize())
		e.state = StateWriteData

	case StateWriteData:
		src := e.actOutSrc()
		if !src.ValidB() {
			// The beat's read got lost to a buffer swap; reissue it.
			src.ReadEnableB(e.bufAddr, e.beatSize())
			return
		}
		n := e.beatSize()
		data := src.DataB()[:n]
		if resp := e.transport.WriteBeat(e.extAddr, data); resp != RespOK {
			e.burstErr = true
		}
		e.advance(n)
		e.burstLeft--
		if e.burstLeft == 0 || e.remaining == 0 {
			e.state = StateWriteResp
		} else {
			src.ReadEnableB(e.bufAddr, e.beatSize())
		}

	case StateWriteResp:
		if e.burstErr {
			e.fail()
			return
		}
		if e.remaining == 0 {
			e.state = StateDone
		} else {
			e.state = StateWriteAddr
		}

	case StateDone:
		e.done = true
		e.irq = e.desc.WantsIRQ()
		e.transfers++
		e.state = StateIdle
	}
}
