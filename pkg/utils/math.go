package utils

import (
	"math"

	"golang.org/x/exp/constraints"
)

// NormalizeL2 scales x in place to unit L2 norm. A zero vector is left unchanged.
func NormalizeL2[T constraints.Float](x []T) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := 1.0 / math.Sqrt(sum)
	for i := range x {
		x[i] = T(float64(x[i]) * norm)
	}
}
