// Package control implements the NPU's control plane: the CSR register
// file the driver programs, the instruction scheduler, and the top-level
// controller state machine that sequences every other unit.
package control

import "github.com/buiminhnhut114/edge-npu-design-sub000/dma"

// Register byte offsets. Drivers depend on these values; they must not
// move.
const (
	RegCtrl      = 0x000
	RegStatus    = 0x004
	RegIRQEnable = 0x008
	RegIRQStatus = 0x00C
	RegVersion   = 0x010
	RegConfig    = 0x014
	RegErrorCode = 0x018
	RegInstCount = 0x01C

	RegDMACtrl      = 0x100
	RegDMAStatus    = 0x104
	RegDMASrc       = 0x108
	RegDMADst       = 0x10C
	RegDMALen       = 0x110
	RegDMASrcStride = 0x114
	RegDMADstStride = 0x118

	RegQuantScale = 0x120
	RegQuantShift = 0x124
	RegQuantZero  = 0x128

	RegPerfCtrl   = 0x600
	RegPerfCycLo  = 0x604
	RegPerfCycHi  = 0x608
	RegPerfInst   = 0x60C
	RegPerfMACLo  = 0x610
	RegPerfMACHi  = 0x614
	RegPerfStall  = 0x618
	RegPerfDMACnt = 0x61C
)

// CTRL register bits.
const (
	CtrlEnable    uint32 = 1 << 0
	CtrlStart     uint32 = 1 << 1 // self-clearing
	CtrlSoftReset uint32 = 1 << 2 // self-clearing
	CtrlIRQEnable uint32 = 1 << 3
)

// STATUS register bits. Bits [7:4] carry the controller FSM state.
const (
	StatusBusy  uint32 = 1 << 0
	StatusDone  uint32 = 1 << 1
	StatusError uint32 = 1 << 2

	StatusStateShift = 4
	StatusStateMask  = 0xF
)

// IRQ_STATUS / IRQ_ENABLE bits. IRQ_STATUS is write-1-to-clear.
const (
	IRQDone     uint32 = 1 << 0
	IRQError    uint32 = 1 << 1
	IRQDMADone  uint32 = 1 << 2
	IRQDMAError uint32 = 1 << 3
)

// DMA_CTRL register bits.
const (
	DMACtrlStart   uint32 = 1 << 0 // self-clearing
	DMACtrlWrite   uint32 = 1 << 1
	DMACtrlStrided uint32 = 1 << 2
	DMACtrlIRQ     uint32 = 1 << 3

	DMACtrlChanShift = 4
	DMACtrlChanMask  = 0x3
)

// DMA_STATUS register bits.
const (
	DMAStatusBusy  uint32 = 1 << 0
	DMAStatusDone  uint32 = 1 << 1
	DMAStatusError uint32 = 1 << 2
)

// PERF_CTRL register bits.
const (
	PerfCtrlEnable uint32 = 1 << 0
	PerfCtrlReset  uint32 = 1 << 1 // self-clearing
)

// Version is the value of the read-only VERSION register (major 1,
// minor 0, patch 0).
const Version uint32 = 0x00010000

// Stats are the performance counters exposed through the 0x600 block.
type Stats struct {
	Cycles       uint64
	Instructions uint64
	MACs         uint64
	Stalls       uint64
	DMATransfers uint64
}

// RegFile is the memory-mapped control/status register surface. It owns
// the write-one-to-clear and self-clearing bit semantics; dynamic status
// words are pushed in by the device once per cycle.
type RegFile struct {
	ctrl      uint32
	status    uint32
	irqEnable uint32
	irqStatus uint32
	config    uint32
	errCode   uint32

	startPending bool
	resetPending bool

	dmaCtrl      uint32
	dmaStatus    uint32
	dmaSrc       uint32
	dmaDst       uint32
	dmaLen       uint32
	dmaSrcStride uint32
	dmaDstStride uint32

	dmaStartPending bool

	quantScale uint32
	quantShift uint32
	quantZero  uint32

	perfEnable bool
	stats      Stats
}

// NewRegFile creates a register file advertising the given PE geometry in
// CONFIG.
func NewRegFile(rows, cols int) *RegFile {
	return &RegFile{
		config: uint32(rows&0xFF) | uint32(cols&0xFF)<<8,
	}
}

// Read returns the register word at offset. Undefined offsets read zero,
// as on the real register bus.
func (r *RegFile) Read(offset uint32) uint32 {
	switch offset {
	case RegCtrl:
		return r.ctrl
	case RegStatus:
		return r.status
	case RegIRQEnable:
		return r.irqEnable
	case RegIRQStatus:
		return r.irqStatus
	case RegVersion:
		return Version
	case RegConfig:
		return r.config
	case RegErrorCode:
		return r.errCode
	case RegInstCount:
		return uint32(r.stats.Instructions)
	case RegDMACtrl:
		return r.dmaCtrl
	case RegDMAStatus:
		return r.dmaStatus
	case RegDMASrc:
		return r.dmaSrc
	case RegDMADst:
		return r.dmaDst
	case RegDMALen:
		return r.dmaLen
	case RegDMASrcStride:
		return r.dmaSrcStride
	case RegDMADstStride:
		return r.dmaDstStride
	case RegQuantScale:
		return r.quantScale
	case RegQuantShift:
		return r.quantShift
	case RegQuantZero:
		return r.quantZero
	case RegPerfCtrl:
		if r.perfEnable {
			return PerfCtrlEnable
		}
		return 0
	case RegPerfCycLo:
		return uint32(r.stats.Cycles)
	case RegPerfCycHi:
		return uint32(r.stats.Cycles >> 32)
	case RegPerfInst:
		return uint32(r.stats.Instructions)
	case RegPerfMACLo:
		return uint32(r.stats.MACs)
	case RegPerfMACHi:
		return uint32(r.stats.MACs >> 32)
	case RegPerfStall:
		return uint32(r.stats.Stalls)
	case RegPerfDMACnt:
		return uint32(r.stats.DMATransfers)
	}
	return 0
}

// Write stores a register word. Read-only registers ignore writes;
// IRQ_STATUS clears the bits written as one.
func (r *RegFile) Write(offset, v uint32) {
	switch offset {
	case RegCtrl:
		if v&CtrlStart != 0 {
			r.startPending = true
		}
		if v&CtrlSoftReset != 0 {
			r.resetPending = true
		}
		r.ctrl = v &^ (CtrlStart | CtrlSoftReset)
	case RegIRQEnable:
		r.irqEnable = v & 0xF
	case RegIRQStatus:
		r.irqStatus &^= v
	case RegDMACtrl:
		if v&DMACtrlStart != 0 {
			r.dmaStartPending = true
		}
		r.dmaCtrl = v &^ DMACtrlStart
	case RegDMASrc:
		r.dmaSrc = v
	case RegDMADst:
		r.dmaDst = v
	case RegDMALen:
		r.dmaLen = v
	case RegDMASrcStride:
		r.dmaSrcStride = v & 0xFFFF
	case RegDMADstStride:
		r.dmaDstStride = v & 0xFFFF
	case RegQuantScale:
		r.quantScale = v
	case RegQuantShift:
		r.quantShift = v & 0xFF
	case RegQuantZero:
		r.quantZero = v & 0xFF
	case RegPerfCtrl:
		r.perfEnable = v&PerfCtrlEnable != 0
		if v&PerfCtrlReset != 0 {
			r.stats = Stats{}
		}
	}
}

// Enabled reports whether the core enable bit is set.
func (r *RegFile) Enabled() bool { return r.ctrl&CtrlEnable != 0 }

// TakeStart consumes a pending start pulse.
func (r *RegFile) TakeStart() bool {
	p := r.startPending
	r.startPending = false
	return p
}

// TakeSoftReset consumes a pending soft-reset pulse.
func (r *RegFile) TakeSoftReset() bool {
	p := r.resetPending
	r.resetPending = false
	return p
}

// TakeDMAStart consumes a pending register-driven DMA start pulse.
func (r *RegFile) TakeDMAStart() bool {
	p := r.dmaStartPending
	r.dmaStartPending = false
	return p
}

// DMARequest assembles the descriptor and channel programmed through the
// DMA register block.
func (r *RegFile) DMARequest() (dma.Descriptor, dma.Channel) {
	d := dma.Descriptor{
		SrcAddr:   uint64(r.dmaSrc),
		DstAddr:   uint64(r.dmaDst),
		Length:    r.dmaLen,
		SrcStride: uint16(r.dmaSrcStride),
		DstStride: uint16(r.dmaDstStride),
	}
	if r.dmaCtrl&DMACtrlWrite != 0 {
		d.Flags |= dma.FlagWrite
	}
	if r.dmaCtrl&DMACtrlStrided != 0 {
		d.Flags |= dma.FlagStrided
	}
	if r.dmaCtrl&DMACtrlIRQ != 0 {
		d.Flags |= dma.FlagIRQ
	}
	ch := dma.Channel(r.dmaCtrl >> DMACtrlChanShift & DMACtrlChanMask)
	return d.Normalize(), ch
}

// DMALen returns the DMA_LEN register, the transfer length used by
// LOAD/STORE instructions whose block count field is zero.
func (r *RegFile) DMALen() uint32 { return r.dmaLen }

// DMAStrides returns the programmed source and destination strides.
func (r *RegFile) DMAStrides() (uint16, uint16) {
	return uint16(r.dmaSrcStride), uint16(r.dmaDstStride)
}

// QuantParams returns the requantization parameters programmed through
// the 0x120 block.
func (r *RegFile) QuantParams() (scale int32, shift uint8, zeroPoint int8) {
	scale = int32(r.quantScale)
	if scale == 0 {
		scale = 1
	}
	return scale, uint8(r.quantShift), int8(r.quantZero)
}

// SetErrorCode latches the sticky error-code register.
func (r *RegFile) SetErrorCode(code uint32) { r.errCode = code }

// RaiseIRQ sets interrupt-status bits; they stay set until the driver
// writes them back as ones.
func (r *RegFile) RaiseIRQ(bits uint32) { r.irqStatus |= bits }

// IRQ reports whether the interrupt line is asserted: an enabled status
// bit is pending and the global gate in CTRL is open.
func (r *RegFile) IRQ() bool {
	return r.ctrl&CtrlIRQEnable != 0 && r.irqStatus&r.irqEnable != 0
}

// UpdateStatus composes the STATUS word from the controller's outputs.
// Called once per cycle by the device.
func (r *RegFile) UpdateStatus(busy, done, errFlag bool, state uint8) {
	var v uint32
	if busy {
		v |= StatusBusy
	}
	if done {
		v |= StatusDone
	}
	if errFlag {
		v |= StatusError
	}
	v |= uint32(state&StatusStateMask) << StatusStateShift
	r.status = v
}

// UpdateDMAStatus composes the DMA_STATUS word from the engine's outputs.
func (r *RegFile) UpdateDMAStatus(busy, done, errFlag bool) {
	var v uint32
	if busy {
		v |= DMAStatusBusy
	}
	if done {
		v |= DMAStatusDone
	}
	if errFlag {
		v |= DMAStatusError
	}
	r.dmaStatus = v
}

// CountCycle advances the cycle counter and, when the array was enabled,
// the MAC counter. Counting is gated on PERF_CTRL.enable.
func (r *RegFile) CountCycle(macs uint64, stalled bool) {
	if !r.perfEnable {
		return
	}
	r.stats.Cycles++
	r.stats.MACs += macs
	if stalled {
		r.stats.Stalls++
	}
}

// CountInstruction advances the retired-instruction counter. INST_COUNT
// is architectural and counts regardless of PERF_CTRL.enable.
func (r *RegFile) CountInstruction() {
	r.stats.Instructions++
}

// CountDMATransfer advances the completed-transfer counter.
func (r *RegFile) CountDMATransfer() {
	if r.perfEnable {
		r.stats.DMATransfers++
	}
}

// Stats returns a copy of the performance counters.
func (r *RegFile) Stats() Stats { return r.stats }

// Reset restores power-on values. CONFIG and VERSION are hardwired and
// survive.
func (r *RegFile) Reset() {
	cfg := r.config
	*r = RegFile{config: cfg}
}
