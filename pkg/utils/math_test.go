package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	t.Run("float32", func(t *testing.T) {
		x := []float32{3, 4}
		NormalizeL2(x)
		if math.Abs(float64(x[0])-0.6) > 1e-6 || math.Abs(float64(x[1])-0.8) > 1e-6 {
			t.Errorf("NormalizeL2 = %v, want [0.6 0.8]", x)
		}
	})

	t.Run("float64", func(t *testing.T) {
		x := []float64{0, 2, 0}
		NormalizeL2(x)
		if x[0] != 0 || x[1] != 1 || x[2] != 0 {
			t.Errorf("NormalizeL2 = %v, want [0 1 0]", x)
		}
	})

	t.Run("zero vector unchanged", func(t *testing.T) {
		x := []float64{0, 0}
		NormalizeL2(x)
		if x[0] != 0 || x[1] != 0 {
			t.Errorf("NormalizeL2 = %v, want zeros", x)
		}
	})
}
