package fixed

import (
	"fmt"
	"math"
)

// FracBits is the number of fractional bits in a Fixed value.
const FracBits = 16

// Unit is 1.0 in fixed-point.
const Unit Fixed = 1 << FracBits

// Fixed is a 16.16 signed fixed-point number, the representation the
// simulation uses for positions, momentum and speed.
type Fixed int32

// FromInt converts a whole number to fixed-point.
func FromInt(v int) Fixed {
	return Fixed(v << FracBits)
}

// FromFloat converts a float to fixed-point, truncating toward zero.
func FromFloat(v float64) Fixed {
	return Fixed(v * float64(Unit))
}

// Int returns the integer part (arithmetic shift, rounds toward -inf).
func (f Fixed) Int() int {
	return int(f >> FracBits)
}

// Float returns f as a float64.
func (f Fixed) Float() float64 {
	return float64(f) / float64(Unit)
}

// Mul multiplies two fixed-point values.
func Mul(a, b Fixed) Fixed {
	return Fixed((int64(a) * int64(b)) >> FracBits)
}

// Hypot returns sqrt(x*x + y*y) in fixed-point.
func Hypot(x, y Fixed) Fixed {
	fx, fy := x.Float(), y.Float()
	return FromFloat(math.Sqrt(fx*fx + fy*fy))
}

// String formats f with three decimals, e.g. "-12.500".
func (f Fixed) String() string {
	sign := ""
	v := int64(f)
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v >> FracBits
	frac := (v & int64(Unit-1)) * 1000 >> FracBits
	return fmt.Sprintf("%s%d.%03d", sign, whole, frac)
}
