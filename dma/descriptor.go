package dma

// Descriptor flag bits.
const (
	// FlagWrite moves data from an on-chip buffer to external memory.
	// When clear the transfer loads external memory into a buffer.
	FlagWrite uint8 = 1 << 0
	// FlagStrided advances the external address by the programmed stride
	// after every beat instead of by the beat width.
	FlagStrided uint8 = 1 << 1
	// FlagIRQ requests a completion interrupt.
	FlagIRQ uint8 = 1 << 2
)

// Channel selects which on-chip buffer a transfer targets.
type Channel uint8

// DMA channels.
const (
	ChanWeight Channel = iota
	ChanActIn
	ChanActOut
)

func (c Channel) String() string {
	switch c {
	case ChanWeight:
		return "weight"
	case ChanActIn:
		return "act-in"
	case ChanActOut:
		return "act-out"
	}
	return "unknown"
}

// Descriptor describes one DMA transfer. External addresses are 40 bits
// and lengths 24 bits; Normalize masks off anything wider.
type Descriptor struct {
	SrcAddr   uint64
	DstAddr   uint64
	Length    uint32
	SrcStride uint16
	DstStride uint16
	Flags     uint8
}

const (
	addrMask = (uint64(1) << 40) - 1
	lenMask  = (uint32(1) << 24) - 1
)

// Normalize clamps address and length fields to their register widths.
func (d Descriptor) Normalize() Descriptor {
	d.SrcAddr &= addrMask
	d.DstAddr &= addrMask
	d.Length &= lenMask
	return d
}

// IsWrite reports whether the transfer stores buffer data to external
// memory.
func (d Descriptor) IsWrite() bool { return d.Flags&FlagWrite != 0 }

// IsStrided reports whether the external address advances by the stride
// after every beat.
func (d Descriptor) IsStrided() bool { return d.Flags&FlagStrided != 0 }

// WantsIRQ reports whether completion should raise an interrupt.
func (d Descriptor) WantsIRQ() bool { return d.Flags&FlagIRQ != 0 }
