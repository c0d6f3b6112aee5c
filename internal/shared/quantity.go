package shared

import "math"

// RoundKg rounds a weight to the gram, the precision of every *_kg column.
func RoundKg(kg float64) float64 {
	return math.Round(kg*1000) / 1000
}
