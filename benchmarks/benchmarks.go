// Package benchmarks provides self-checking NPU workloads used for
// calibration and regression runs. Each benchmark is a complete program
// image plus a check of the external memory it produces.
package benchmarks

import (
	"bytes"
	"fmt"

	"github.com/buiminhnhut114/edge-npu-design-sub000/arith"
	"github.com/buiminhnhut114/edge-npu-design-sub000/control"
	"github.com/buiminhnhut114/edge-npu-design-sub000/device"
	"github.com/buiminhnhut114/edge-npu-design-sub000/insts"
	"github.com/buiminhnhut114/edge-npu-design-sub000/loader"
)

// Benchmark is one self-checking workload.
type Benchmark struct {
	Name        string
	Description string
	Image       *loader.Image

	// Check inspects the device after the program drains and returns an
	// error when the output is wrong.
	Check func(dev *device.Device) error
}

// Run executes the benchmark on the given device to completion and
// verifies its output.
func Run(dev *device.Device, b Benchmark, maxCycles uint64) error {
	dev.WriteExternal(b.Image.WeightAddr, b.Image.Weights)
	dev.WriteExternal(b.Image.ActAddr, b.Image.Acts)
	if err := dev.LoadProgram(b.Image.Instructions); err != nil {
		return fmt.Errorf("%s: %w", b.Name, err)
	}

	dev.WriteReg(control.RegCtrl, control.CtrlEnable|control.CtrlStart)
	if _, err := dev.Run(maxCycles); err != nil {
		return fmt.Errorf("%s: %w", b.Name, err)
	}
	if dev.ReadReg(control.RegStatus)&control.StatusError != 0 {
		return fmt.Errorf("%s: core trapped with error code %d",
			b.Name, dev.ReadReg(control.RegErrorCode))
	}
	return b.Check(dev)
}

// GetMicrobenchmarks returns the standard workload set. Each one targets
// a single datapath: DMA, systolic compute, pooling, element-wise math
// and the activation unit.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		dmaRoundTrip(),
		convIdentity(),
		poolMax(),
		eltwiseSaturate(),
		activationReLU(),
	}
}

func words(program ...insts.Instruction) []uint64 {
	out := make([]uint64, len(program))
	for i, in := range program {
		out[i] = in.Encode()
	}
	return out
}

func checkExternal(name string, addr uint64, want []byte) func(*device.Device) error {
	return func(dev *device.Device) error {
		got := dev.ReadExternal(addr, len(want))
		if !bytes.Equal(got, want) {
			return fmt.Errorf("%s: output mismatch at 0x%X:\n got  % X\n want % X",
				name, addr, got, want)
		}
		return nil
	}
}

// dmaRoundTrip loads a block into the activation buffer and stores it
// straight back out, exercising both DMA directions and the buffer swap.
func dmaRoundTrip() Benchmark {
	acts := make([]byte, 256)
	for i := range acts {
		acts[i] = byte(i ^ 0x5A)
	}

	return Benchmark{
		Name:        "dma_roundtrip",
		Description: "256-byte load then store - checks DMA and double buffering",
		Image: &loader.Image{
			Instructions: words(
				insts.New(insts.OpLOAD, 0, 0, 0, 0, 0x01000000),
				insts.New(insts.OpSTORE, 0, 0, 0, 0, 0x01002000),
				insts.New(insts.OpSYNC, insts.FlagLast, 0, 0, 0, 0),
			),
			ActAddr: 0,
			Acts:    acts,
		},
		Check: checkExternal("dma_roundtrip", 0x2000, acts),
	}
}

// convIdentity pushes sixteen activation vectors through identity
// weights; each output column is the plain sum of that column's inputs.
func convIdentity() Benchmark {
	weights := make([]byte, 256)
	for i := 0; i < 16; i++ {
		weights[i*16+i] = 1
	}
	acts := make([]byte, 256)
	for i := range acts {
		acts[i] = byte(i % 4)
	}

	want := make([]byte, 16)
	for c := 0; c < 16; c++ {
		var sum int32
		for p := 0; p < 16; p++ {
			sum += int32(int8(acts[p*16+c]))
		}
		want[c] = byte(arith.Sat8(sum))
	}

	return Benchmark{
		Name:        "conv_identity",
		Description: "16-pass convolution with identity weights - checks the systolic array",
		Image: &loader.Image{
			Instructions: words(
				insts.New(insts.OpLOAD, insts.FlagWeight, 0, 0, 0, 0x01000000),
				insts.New(insts.OpLOAD, 0, 0, 0, 0, 0x01000100),
				insts.New(insts.OpCONV, 0, 0, 0, 0, 0x00000010),
				insts.New(insts.OpSYNC, 0, 0, 0, 0, 0),
				insts.New(insts.OpSTORE, 0, 0, 0, 0, 0x01003000),
				insts.New(insts.OpSYNC, insts.FlagLast, 0, 0, 0, 0),
			),
			WeightAddr: 0,
			Weights:    weights,
			ActAddr:    0x100,
			Acts:       acts,
		},
		Check: checkExternal("conv_identity", 0x3000, want),
	}
}

// poolMax reduces sixteen inputs through 2x2 max windows.
func poolMax() Benchmark {
	acts := make([]byte, 256)
	src := []byte{3, 1, 4, 2, 9, 7, 8, 6, 0, 5, 2, 1, 7, 7, 7, 7}
	copy(acts, src)

	want := []byte{4, 9, 5, 7}

	return Benchmark{
		Name:        "pool_max",
		Description: "2x2 max pooling over 16 elements - checks the pooling unit",
		Image: &loader.Image{
			Instructions: words(
				insts.New(insts.OpLOAD, 0, 0, 0, 0, 0x01000000),
				insts.New(insts.OpPOOL, 0, 1, 0, 0, 16),
				insts.New(insts.OpSTORE, 0, 0, 1, 0, 0x01004000),
				insts.New(insts.OpSYNC, insts.FlagLast, 0, 0, 0, 0),
			),
			ActAddr: 0,
			Acts:    acts,
		},
		Check: checkExternal("pool_max", 0x4000, want),
	}
}

// eltwiseSaturate adds two pages with values chosen to clip at both rails.
func eltwiseSaturate() Benchmark {
	acts := make([]byte, 512)
	for i := 0; i < 256; i++ {
		acts[i] = byte(int8(100 - i))
		acts[256+i] = byte(int8(i - 100))
	}

	want := make([]byte, 64)
	for i := range want {
		want[i] = byte(arith.SatAdd8(int8(acts[i]), int8(acts[256+i])))
	}

	return Benchmark{
		Name:        "eltwise_saturate",
		Description: "element-wise add across the saturation rails",
		Image: &loader.Image{
			Instructions: words(
				insts.New(insts.OpLOAD, 0, 0, 0, 0, 0x02000000),
				insts.New(insts.OpADD, 0, 2, 0, 1, 64),
				insts.New(insts.OpSTORE, 0, 0, 2, 0, 0x01005000),
				insts.New(insts.OpSYNC, insts.FlagLast, 0, 0, 0, 0),
			),
			ActAddr: 0,
			Acts:    acts,
		},
		Check: checkExternal("eltwise_saturate", 0x5000, want),
	}
}

// activationReLU streams a page through the activation unit.
func activationReLU() Benchmark {
	acts := make([]byte, 256)
	for i := range acts {
		acts[i] = byte(int8(i - 128))
	}

	want := make([]byte, 256)
	for i := range want {
		want[i] = byte(arith.ReLU(int8(acts[i])))
	}

	return Benchmark{
		Name:        "activation_relu",
		Description: "ReLU over a full page - checks the activation unit",
		Image: &loader.Image{
			Instructions: words(
				insts.New(insts.OpLOAD, 0, 0, 0, 0, 0x01000000),
				insts.New(insts.OpACT, 0, 1, 0, 0, 256|uint32(arith.ActReLU)<<16),
				insts.New(insts.OpSTORE, 0, 0, 1, 0, 0x01006000),
				insts.New(insts.OpSYNC, insts.FlagLast, 0, 0, 0, 0),
			),
			ActAddr: 0,
			Acts:    acts,
		},
		Check: checkExternal("activation_relu", 0x6000, want),
	}
}
