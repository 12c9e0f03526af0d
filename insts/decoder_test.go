package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/buiminhnhut114/edge-npu-design-sub000/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	It("should decode a CONV word field by field", func() {
		// CONV flags=0x2 dst=0x01 src0=0x02 src1=0x03 imm=0x00000010
		raw := uint64(0x1201020300000010)

		inst := decoder.Decode(raw)

		Expect(inst.Op).To(Equal(insts.OpCONV))
		Expect(inst.Flags).To(Equal(uint8(0x2)))
		Expect(inst.Dst).To(Equal(uint8(0x01)))
		Expect(inst.Src0).To(Equal(uint8(0x02)))
		Expect(inst.Src1).To(Equal(uint8(0x03)))
		Expect(inst.Imm).To(Equal(uint32(0x10)))
	})

	It("should round-trip every opcode through encode and decode", func() {
		for op := insts.OpNOP; op <= insts.OpSPLIT; op++ {
			inst := insts.New(op, 0xA&0xF, 0x7F, 0x80, 0xFF, 0x12345678)

			got := decoder.Decode(inst.Encode())

			Expect(got).To(Equal(inst))
			Expect(got.Encode()).To(Equal(inst.Encode()))
		}
	})

	It("should surface invalid opcodes rather than fail", func() {
		inst := decoder.Decode(0xF000000000000000)

		Expect(inst.Op.Valid()).To(BeFalse())
	})
})

var _ = Describe("TensorShape", func() {
	It("should derive output dimensions from input geometry", func() {
		shape := insts.TensorShape{
			Height: 32, Width: 32, InCh: 3, OutCh: 16,
			KernelH: 3, KernelW: 3, Stride: 1, Padding: 1,
		}

		h, w := shape.OutputDims()

		Expect(h).To(Equal(32))
		Expect(w).To(Equal(32))
		Expect(shape.OutputLen()).To(Equal(32 * 32 * 16))
	})

	It("should apply stride", func() {
		shape := insts.TensorShape{
			Height: 28, Width: 28,
			KernelH: 2, KernelW: 2, Stride: 2,
		}

		h, w := shape.OutputDims()

		Expect(h).To(Equal(14))
		Expect(w).To(Equal(14))
	})

	It("should return zero for degenerate geometry", func() {
		tooSmall := insts.TensorShape{
			Height: 2, Width: 2, KernelH: 5, KernelW: 5, Stride: 1,
		}
		h, w := tooSmall.OutputDims()
		Expect(h).To(BeZero())
		Expect(w).To(BeZero())

		noStride := insts.TensorShape{Height: 8, Width: 8, KernelH: 2, KernelW: 2}
		h, w = noStride.OutputDims()
		Expect(h).To(BeZero())
		Expect(w).To(BeZero())
	})
})
