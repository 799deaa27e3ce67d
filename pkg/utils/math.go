package utils

import "math"

// AtLeast returns v, or floor when v is smaller
func AtLeast(v, floor float64) float64 {
	return math.Max(v, floor)
}

// Round rounds value half away from zero to the given number of decimals
func Round(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}

// Round2 is the precision every reported metric uses
func Round2(value float64) float64 {
	return Round(value, 2)
}
