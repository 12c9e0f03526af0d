package arith

// ActFunc selects the activation applied by the activation unit. The values
// match the 3-bit code carried in compute instructions.
type ActFunc uint8

// Activation function codes.
const (
	ActNone    ActFunc = 0
	ActReLU    ActFunc = 1
	ActReLU6   ActFunc = 2
	ActSigmoid ActFunc = 3
	ActTanh    ActFunc = 4
	ActSwish   ActFunc = 5
	ActGELU    ActFunc = 6
)

// The sigmoid and tanh paths are piecewise-linear hardware approximations
// operating on Q4.4 inputs (one LSB = 1/16). Sigmoid128 returns the PLAN
// approximation scaled by 128; segment boundaries sit at |x| = 1.0, 2.375
// and 5.0. Swish and GELU reuse the sigmoid unit. These curves, not the
// transcendental functions, are the bit-exact contract.

// Sigmoid128 evaluates the piecewise-linear sigmoid approximation on a
// Q4.4 input and returns the result scaled by 128 (range [0, 128]).
func Sigmoid128(x int32) int32 {
	ax := x
	if ax < 0 {
		ax = -ax
	}

	var y int32
	switch {
	case ax >= 80: // |x| >= 5.0
		y = 128
	case ax >= 38: // |x| >= 2.375
		y = ax>>2 + 108
	case ax >= 16: // |x| >= 1.0
		y = ax + 80
	default:
		y = ax<<1 + 64
	}

	if x < 0 {
		y = 128 - y
	}
	return y
}

// Sigmoid applies the PLAN sigmoid to a Q4.4 input, producing an unsigned
// result on the [0, 127] output scale.
func Sigmoid(x int8) int8 {
	y := Sigmoid128(int32(x))
	if y > MaxData {
		y = MaxData
	}
	return int8(y)
}

// Tanh applies tanh(x) = 2*sigmoid(2x) - 1 using the PLAN sigmoid,
// producing a result on the [-127, 127] output scale (saturating).
func Tanh(x int8) int8 {
	y := 2*Sigmoid128(2*int32(x)) - 128
	return Sat8(y)
}

// Swish applies x*sigmoid(x) on the Q4.4 input scale, rescaled to the
// 8-bit output range.
func Swish(x int8) int8 {
	v := int64(x) * int64(Sigmoid128(int32(x))) * 127
	return Sat8(int32(v >> 11))
}

// GELU approximates x*sigmoid(1.702x); the 1.702 factor is realized as
// 27/16 in fixed point.
func GELU(x int8) int8 {
	xs := (int32(x) * 27) >> 4
	v := int64(x) * int64(Sigmoid128(xs)) * 127
	return Sat8(int32(v >> 11))
}

// ReLU6 clamps to [0, 6] on the quantized scale, matching the reference
// model exactly.
func ReLU6(x int8) int8 {
	if x < 0 {
		return 0
	}
	if x > 6 {
		return 6
	}
	return x
}

// ReLU zeroes negative inputs.
func ReLU(x int8) int8 {
	if x < 0 {
		return 0
	}
	return x
}

// Activate applies the activation selected by code. Unknown codes pass the
// value through unchanged, as the hardware decodes only the defined set.
func Activate(code ActFunc, x int8) int8 {
	switch code {
	case ActReLU:
		return ReLU(x)
	case ActReLU6:
		return ReLU6(x)
	case ActSigmoid:
		return Sigmoid(x)
	case ActTanh:
		return Tanh(x)
	case ActSwish:
		return Swish(x)
	case ActGELU:
		return GELU(x)
	default:
		return x
	}
}
