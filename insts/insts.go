// Package insts provides NPU instruction definitions, encoding and decoding.
package insts

import "fmt"

// Op represents an NPU opcode, the 4-bit field in bits [63:60] of an
// instruction word.
type Op uint8

// NPU opcodes.
const (
	OpNOP    Op = 0x0
	OpCONV   Op = 0x1
	OpFC     Op = 0x2
	OpPOOL   Op = 0x3
	OpACT    Op = 0x4
	OpLOAD   Op = 0x5
	OpSTORE  Op = 0x6
	OpSYNC   Op = 0x7
	OpADD    Op = 0x8
	OpMUL    Op = 0x9
	OpCONCAT Op = 0xA
	OpSPLIT  Op = 0xB
)

// Valid reports whether the opcode is in the defined set. Any other value
// drives the controller into its ERROR state.
func (op Op) Valid() bool {
	return op <= OpSPLIT
}

func (op Op) String() string {
	names := [...]string{
		"NOP", "CONV", "FC", "POOL", "ACT", "LOAD",
		"STORE", "SYNC", "ADD", "MUL", "CONCAT", "SPLIT",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return fmt.Sprintf("INVALID(0x%X)", uint8(op))
}

// Instruction flag bits (bits [59:56]).
const (
	// FlagLast marks the final instruction of a sequence; a SYNC carrying
	// it parks the controller in IDLE instead of resuming fetch.
	FlagLast uint8 = 1 << 0
	// FlagWeight routes a LOAD to the weight buffer instead of the
	// activation buffer. It shares FlagLast's bit position; a LOAD never
	// terminates a sequence.
	FlagWeight uint8 = 1 << 0
	// FlagIRQ raises the done interrupt when the instruction completes.
	FlagIRQ uint8 = 1 << 1
	// FlagStrided selects strided (2D) DMA addressing for LOAD/STORE.
	FlagStrided uint8 = 1 << 2
	// FlagAsync lets a LOAD/STORE retire without waiting for the DMA
	// engine; SYNC is the join point.
	FlagAsync uint8 = 1 << 3
)

// BufferPageBytes is the unit of the 8-bit dst/src0/src1 address fields:
// they index 256-byte pages of the on-chip buffers.
const BufferPageBytes = 256

// Instruction is one decoded 64-bit NPU instruction.
//
// Encoding: [63:60] opcode, [59:56] flags, [55:48] dst, [47:40] src0,
// [39:32] src1, [31:0] immediate.
type Instruction struct {
	Op    Op
	Flags uint8
	Dst   uint8
	Src0  uint8
	Src1  uint8
	Imm   uint32
}

// New builds an instruction from its fields, masking each to its encoded
// width.
func New(op Op, flags, dst, src0, src1 uint8, imm uint32) Instruction {
	return Instruction{
		Op:    op & 0xF,
		Flags: flags & 0xF,
		Dst:   dst,
		Src0:  src0,
		Src1:  src1,
		Imm:   imm,
	}
}

// Encode packs the instruction back into its 64-bit wire form.
func (i Instruction) Encode() uint64 {
	return uint64(i.Op&0xF)<<60 |
		uint64(i.Flags&0xF)<<56 |
		uint64(i.Dst)<<48 |
		uint64(i.Src0)<<40 |
		uint64(i.Src1)<<32 |
		uint64(i.Imm)
}

// Iterations returns the compute iteration count from imm[15:0]. The
// controller honors this value verbatim even if it disagrees with the
// layer shape registers; software is responsible for encoding it
// correctly.
func (i Instruction) Iterations() uint32 {
	return i.Imm & 0xFFFF
}

// ActCode returns the 3-bit activation function code from imm[18:16].
func (i Instruction) ActCode() uint8 {
	return uint8(i.Imm >> 16 & 0x7)
}

// Accumulate reports whether a compute instruction keeps the PE
// accumulators instead of clearing them at dispatch (imm[19]).
func (i Instruction) Accumulate() bool {
	return i.Imm>>19&0x1 != 0
}

// PoolAverage reports whether a POOL instruction emits the window average
// instead of the maximum (imm[16]).
func (i Instruction) PoolAverage() bool {
	return i.Imm>>16&0x1 != 0
}

// PoolWindow returns the pooling window edge length: 3 when imm[17] is
// set, otherwise 2.
func (i Instruction) PoolWindow() int {
	if i.Imm>>17&0x1 != 0 {
		return 3
	}
	return 2
}

// ExtAddr returns the external memory byte address of a LOAD/STORE from
// imm[23:0].
func (i Instruction) ExtAddr() uint64 {
	return uint64(i.Imm & 0xFFFFFF)
}

// DMABlocks returns the LOAD/STORE transfer length in 256-byte blocks
// from imm[31:24]. Zero means the length comes from the DMA_LEN register.
func (i Instruction) DMABlocks() uint32 {
	return i.Imm >> 24
}

// SplitLens returns the two lengths (in bytes) of a CONCAT's sources or a
// SPLIT's destinations, from imm[15:0] and imm[31:16].
func (i Instruction) SplitLens() (uint32, uint32) {
	return i.Imm & 0xFFFF, i.Imm >> 16
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s flags=0x%X dst=0x%02X src0=0x%02X src1=0x%02X imm=0x%08X",
		i.Op, i.Flags, i.Dst, i.Src0, i.Src1, i.Imm)
}
