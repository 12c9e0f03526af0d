package insts

// Decoder decodes 64-bit NPU instruction words.
type Decoder struct{}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode extracts the fixed bit fields of an instruction word. Decoding
// never fails; an out-of-range opcode yields an instruction whose Op
// reports !Valid(), which the controller turns into its ERROR state.
func (d *Decoder) Decode(raw uint64) Instruction {
	return Instruction{
		Op:    Op(raw >> 60 & 0xF),
		Flags: uint8(raw >> 56 & 0xF),
		Dst:   uint8(raw >> 48 & 0xFF),
		Src0:  uint8(raw >> 40 & 0xFF),
		Src1:  uint8(raw >> 32 & 0xFF),
		Imm:   uint32(raw & 0xFFFFFFFF),
	}
}

// TensorShape describes the logical geometry a CONV/FC/POOL instruction
// operates on. Output dimensions are never stored: they are always derived
// from the input geometry, so a mismatching pair cannot exist.
type TensorShape struct {
	Height  int
	Width   int
	InCh    int
	OutCh   int
	KernelH int
	KernelW int
	Stride  int
	Padding int
}

// OutputDims derives the output height and width from the input
// dimensions, kernel, stride and padding. Degenerate geometry (kernel
// larger than the padded input, or a non-positive stride) yields zero
// dimensions.
func (s TensorShape) OutputDims() (h, w int) {
	if s.Stride <= 0 {
		return 0, 0
	}
	hSpan := s.Height + 2*s.Padding - s.KernelH
	wSpan := s.Width + 2*s.Padding - s.KernelW
	if hSpan < 0 || wSpan < 0 {
		return 0, 0
	}
	return hSpan/s.Stride + 1, wSpan/s.Stride + 1
}

// OutputLen returns the number of output elements, including the channel
// dimension.
func (s TensorShape) OutputLen() int {
	h, w := s.OutputDims()
	return h * w * s.OutCh
}
