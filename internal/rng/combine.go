package rng

import (
	"math"
	"math/bits"
)

// toUnit maps the top 53 bits of u onto [0,1).
func toUnit(u uint64) float64 {
	return float64(u>>11) * 0x1p-53
}

// XOR combines two per-agent raw values into one pairwise uniform.
// Multiplication and subtraction wrap.
func XOR(a, b uint64) float64 {
	c := (a * b) ^ (a - b)
	return toUnit(c)
}

// Modulo combines two per-agent uniforms by their sum modulo 1.
func Modulo(a, b float64) float64 {
	return math.Mod(a+b, 1)
}

// MiddleSquare runs the five rounds of the Squares counter-based generator
// with counter a and key b. The last round XORs as in the published
// generator. Variants that raise t to the power x there give different
// values, and their Middle Square figures are not reproduced.
func MiddleSquare(a, b uint64) float64 {
	x := a * b
	y := x
	z := y + b

	x = bits.RotateLeft64(x*x+y, 32)
	x = bits.RotateLeft64(x*x+z, 32)
	x = bits.RotateLeft64(x*x+y, 32)
	x = x*x + z
	t := x
	x = bits.RotateLeft64(x, 32)

	return toUnit(t ^ ((x*x + y) >> 32))
}
