// Package loader reads and writes .npu program images: the container the
// offline compiler emits with the instruction stream plus the weight and
// activation blobs to place in external memory.
package loader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Magic identifies a .npu image.
var Magic = [4]byte{'N', 'P', 'U', 'P'}

// FormatVersion is the image format revision this package produces.
const FormatVersion uint32 = 1

// Image is a decoded .npu program image.
type Image struct {
	// Instructions are the 64-bit words to upload to the instruction
	// buffer, in program order.
	Instructions []uint64

	// WeightAddr is the external memory address the weight blob is
	// placed at before the program runs.
	WeightAddr uint64
	Weights    []byte

	// ActAddr is the external memory address of the input activations.
	ActAddr uint64
	Acts    []byte
}

type header struct {
	Magic      [4]byte
	Version    uint32
	InstCount  uint32
	WeightAddr uint64
	WeightLen  uint32
	ActAddr    uint64
	ActLen     uint32
}

// Encode serializes the image.
func (img *Image) Encode() []byte {
	hdr := header{
		Magic:      Magic,
		Version:    FormatVersion,
		InstCount:  uint32(len(img.Instructions)),
		WeightAddr: img.WeightAddr,
		WeightLen:  uint32(len(img.Weights)),
		ActAddr:    img.ActAddr,
		ActLen:     uint32(len(img.Acts)),
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, hdr)
	binary.Write(&buf, binary.LittleEndian, img.Instructions)
	buf.Write(img.Weights)
	buf.Write(img.Acts)
	return buf.Bytes()
}

// Decode parses a .npu image.
func Decode(data []byte) (*Image, error) {
	r := bytes.NewReader(data)

	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if hdr.Magic != Magic {
		return nil, fmt.Errorf("not an NPU image: bad magic %q", hdr.Magic[:])
	}
	if hdr.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported image version %d", hdr.Version)
	}

	img := &Image{
		Instructions: make([]uint64, hdr.InstCount),
		WeightAddr:   hdr.WeightAddr,
		Weights:      make([]byte, hdr.WeightLen),
		ActAddr:      hdr.ActAddr,
		Acts:         make([]byte, hdr.ActLen),
	}
	if err := binary.Read(r, binary.LittleEndian, img.Instructions); err != nil {
		return nil, fmt.Errorf("failed to read instruction stream: %w", err)
	}
	if _, err := io.ReadFull(r, img.Weights); err != nil {
		return nil, fmt.Errorf("failed to read weight blob: %w", err)
	}
	if _, err := io.ReadFull(r, img.Acts); err != nil {
		return nil, fmt.Errorf("failed to read activation blob: %w", err)
	}
	return img, nil
}

// Load reads a .npu image from a file.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return Decode(data)
}

// Save writes the image to a file.
func (img *Image) Save(path string) error {
	if err := os.WriteFile(path, img.Encode(), 0644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}
