// Package arith provides the saturating fixed-point primitives shared by
// the PE array and the post-processing units.
package arith

import "math"

// Data and accumulator ranges for the 8-bit datapath with 32-bit
// accumulators.
const (
	MaxData = math.MaxInt8
	MinData = math.MinInt8
	MaxAcc  = math.MaxInt32
	MinAcc  = math.MinInt32
)

// Sat8 clamps a 32-bit value to the signed 8-bit data range.
func Sat8(v int32) int8 {
	if v > MaxData {
		return MaxData
	}
	if v < MinData {
		return MinData
	}
	return int8(v)
}

// SatAdd32 performs a saturating signed 32-bit addition. Overflow clamps to
// the accumulator limits instead of wrapping.
func SatAdd32(a, b int32) int32 {
	sum := int64(a) + int64(b)
	if sum > MaxAcc {
		return MaxAcc
	}
	if sum < MinAcc {
		return MinAcc
	}
	return int32(sum)
}

// MAC performs one multiply-accumulate step: acc + data*weight with
// saturating accumulation. The 8x8 product itself cannot overflow 32 bits.
func MAC(acc int32, data, weight int8) int32 {
	return SatAdd32(acc, int32(data)*int32(weight))
}

// SatAdd8 performs a saturating signed 8-bit addition.
func SatAdd8(a, b int8) int8 {
	return Sat8(int32(a) + int32(b))
}

// SatMul8 performs a saturating signed 8-bit multiplication.
func SatMul8(a, b int8) int8 {
	return Sat8(int32(a) * int32(b))
}

// Requantize rescales a wide accumulator value to the 8-bit output
// representation: (acc*scale) >> shift, rounded half away from zero, plus
// the zero point, saturating to the output width.
func Requantize(acc int32, scale int32, shift uint8, zeroPoint int8) int8 {
	prod := int64(acc) * int64(scale)

	if shift > 0 {
		half := int64(1) << (shift - 1)
		if prod >= 0 {
			prod = (prod + half) >> shift
		} else {
			prod = -((-prod + half) >> shift)
		}
	}

	prod += int64(zeroPoint)

	if prod > MaxData {
		return MaxData
	}
	if prod < MinData {
		return MinData
	}
	return int8(prod)
}
