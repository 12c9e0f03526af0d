package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/buiminhnhut114/edge-npu-design-sub000/insts"
)

var _ = Describe("Instruction encoding", func() {
	It("should place each field at its documented position", func() {
		inst := insts.New(insts.OpCONV, 0x5, 0x12, 0x34, 0x56, 0xDEADBEEF)

		raw := inst.Encode()

		Expect(raw >> 60 & 0xF).To(Equal(uint64(0x1)))
		Expect(raw >> 56 & 0xF).To(Equal(uint64(0x5)))
		Expect(raw >> 48 & 0xFF).To(Equal(uint64(0x12)))
		Expect(raw >> 40 & 0xFF).To(Equal(uint64(0x34)))
		Expect(raw >> 32 & 0xFF).To(Equal(uint64(0x56)))
		Expect(raw & 0xFFFFFFFF).To(Equal(uint64(0xDEADBEEF)))
	})

	It("should encode NOP as all zeroes", func() {
		Expect(insts.New(insts.OpNOP, 0, 0, 0, 0, 0).Encode()).To(Equal(uint64(0)))
	})
})

var _ = Describe("Op", func() {
	It("should accept the defined opcode range", func() {
		for op := insts.OpNOP; op <= insts.OpSPLIT; op++ {
			Expect(op.Valid()).To(BeTrue(), "opcode %v", op)
		}
	})

	It("should reject opcodes outside the set", func() {
		Expect(insts.Op(0xC).Valid()).To(BeFalse())
		Expect(insts.Op(0xF).Valid()).To(BeFalse())
	})

	It("should print mnemonic names", func() {
		Expect(insts.OpCONV.String()).To(Equal("CONV"))
		Expect(insts.OpSYNC.String()).To(Equal("SYNC"))
	})
})

var _ = Describe("Immediate views", func() {
	It("should extract compute fields", func() {
		inst := insts.New(insts.OpCONV, 0, 0, 0, 0, 0x000A0010)

		Expect(inst.Iterations()).To(Equal(uint32(0x10)))
		Expect(inst.ActCode()).To(Equal(uint8(2))) // imm[18:16] = 0b010
		Expect(inst.Accumulate()).To(BeTrue())     // imm[19]
	})

	It("should extract pooling fields", func() {
		maxPool := insts.New(insts.OpPOOL, 0, 0, 0, 0, 0x00000004)
		Expect(maxPool.PoolAverage()).To(BeFalse())
		Expect(maxPool.PoolWindow()).To(Equal(2))
		Expect(maxPool.Iterations()).To(Equal(uint32(4)))

		avgPool := insts.New(insts.OpPOOL, 0, 0, 0, 0, 0x00030004)
		Expect(avgPool.PoolAverage()).To(BeTrue())
		Expect(avgPool.PoolWindow()).To(Equal(3))
	})

	It("should extract DMA fields", func() {
		load := insts.New(insts.OpLOAD, insts.FlagWeight, 0, 0, 0, 0x02001000)

		Expect(load.ExtAddr()).To(Equal(uint64(0x1000)))
		Expect(load.DMABlocks()).To(Equal(uint32(2)))
	})

	It("should extract concat/split lengths", func() {
		inst := insts.New(insts.OpCONCAT, 0, 0, 0, 0, 0x00400020)

		len0, len1 := inst.SplitLens()
		Expect(len0).To(Equal(uint32(0x20)))
		Expect(len1).To(Equal(uint32(0x40)))
	})
})
