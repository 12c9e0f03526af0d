package control_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/buiminhnhut114/edge-npu-design-sub000/control"
	"github.com/buiminhnhut114/edge-npu-design-sub000/dma"
)

var _ = Describe("RegFile", func() {
	var r *control.RegFile

	BeforeEach(func() {
		r = control.NewRegFile(16, 16)
	})

	It("should expose the version and geometry", func() {
		Expect(r.Read(control.RegVersion)).To(Equal(uint32(0x00010000)))
		Expect(r.Read(control.RegConfig)).To(Equal(uint32(16 | 16<<8)))
	})

	It("should self-clear the start bit", func() {
		r.Write(control.RegCtrl, control.CtrlEnable|control.CtrlStart)

		Expect(r.Read(control.RegCtrl) & control.CtrlStart).To(BeZero())
		Expect(r.Enabled()).To(BeTrue())
		Expect(r.TakeStart()).To(BeTrue())
		Expect(r.TakeStart()).To(BeFalse())
	})

	It("should self-clear the soft-reset bit", func() {
		r.Write(control.RegCtrl, control.CtrlSoftReset)

		Expect(r.Read(control.RegCtrl) & control.CtrlSoftReset).To(BeZero())
		Expect(r.TakeSoftReset()).To(BeTrue())
		Expect(r.TakeSoftReset()).To(BeFalse())
	})

	It("should clear IRQ status with write-one-to-clear", func() {
		r.RaiseIRQ(control.IRQDone | control.IRQDMADone)

		r.Write(control.RegIRQStatus, control.IRQDone)

		Expect(r.Read(control.RegIRQStatus)).To(Equal(control.IRQDMADone))
	})

	It("should gate the IRQ line on both enables", func() {
		r.RaiseIRQ(control.IRQDone)
		Expect(r.IRQ()).To(BeFalse())

		r.Write(control.RegIRQEnable, control.IRQDone)
		Expect(r.IRQ()).To(BeFalse())

		r.Write(control.RegCtrl, control.CtrlIRQEnable)
		Expect(r.IRQ()).To(BeTrue())

		r.Write(control.RegIRQStatus, control.IRQDone)
		Expect(r.IRQ()).To(BeFalse())
	})

	It("should ignore writes to read-only registers", func() {
		r.Write(control.RegVersion, 0xDEAD)
		r.Write(control.RegStatus, 0xDEAD)

		Expect(r.Read(control.RegVersion)).To(Equal(control.Version))
		Expect(r.Read(control.RegStatus)).To(BeZero())
	})

	It("should read undefined offsets as zero", func() {
		Expect(r.Read(0xFFC)).To(BeZero())
	})

	It("should assemble the register-programmed DMA descriptor", func() {
		r.Write(control.RegDMASrc, 0x1000)
		r.Write(control.RegDMADst, 0x40)
		r.Write(control.RegDMALen, 256)
		r.Write(control.RegDMASrcStride, 32)
		r.Write(control.RegDMACtrl,
			control.DMACtrlStart|control.DMACtrlStrided|
				uint32(dma.ChanWeight)<<control.DMACtrlChanShift)

		Expect(r.TakeDMAStart()).To(BeTrue())
		d, ch := r.DMARequest()
		Expect(ch).To(Equal(dma.ChanWeight))
		Expect(d.SrcAddr).To(Equal(uint64(0x1000)))
		Expect(d.DstAddr).To(Equal(uint64(0x40)))
		Expect(d.Length).To(Equal(uint32(256)))
		Expect(d.SrcStride).To(Equal(uint16(32)))
		Expect(d.IsStrided()).To(BeTrue())
		Expect(d.IsWrite()).To(BeFalse())
	})

	It("should default the quantizer scale to one", func() {
		scale, shift, zero := r.QuantParams()
		Expect(scale).To(Equal(int32(1)))
		Expect(shift).To(BeZero())
		Expect(zero).To(BeZero())

		r.Write(control.RegQuantScale, 3)
		r.Write(control.RegQuantShift, 4)
		r.Write(control.RegQuantZero, 0x80)

		scale, shift, zero = r.QuantParams()
		Expect(scale).To(Equal(int32(3)))
		Expect(shift).To(Equal(uint8(4)))
		Expect(zero).To(Equal(int8(-128)))
	})

	It("should gate performance counters on PERF_CTRL", func() {
		r.CountCycle(256, false)
		Expect(r.Read(control.RegPerfCycLo)).To(BeZero())

		r.Write(control.RegPerfCtrl, control.PerfCtrlEnable)
		r.CountCycle(256, true)
		r.CountCycle(0, false)

		Expect(r.Read(control.RegPerfCycLo)).To(Equal(uint32(2)))
		Expect(r.Read(control.RegPerfMACLo)).To(Equal(uint32(256)))
		Expect(r.Read(control.RegPerfStall)).To(Equal(uint32(1)))

		r.Write(control.RegPerfCtrl, control.PerfCtrlEnable|control.PerfCtrlReset)
		Expect(r.Read(control.RegPerfCycLo)).To(BeZero())
	})

	It("should count instructions regardless of the perf enable", func() {
		r.CountInstruction()
		r.CountInstruction()

		Expect(r.Read(control.RegInstCount)).To(Equal(uint32(2)))
	})

	It("should survive reset with hardwired registers intact", func() {
		r.Write(control.RegDMALen, 64)
		r.RaiseIRQ(control.IRQError)
		r.Reset()

		Expect(r.Read(control.RegDMALen)).To(BeZero())
		Expect(r.Read(control.RegIRQStatus)).To(BeZero())
		Expect(r.Read(control.RegConfig)).To(Equal(uint32(16 | 16<<8)))
		Expect(r.Read(control.RegVersion)).To(Equal(control.Version))
	})
})
