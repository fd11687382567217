package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	x := []float32{3, 4}
	if norm := NormalizeL2(x); math.Abs(norm-5) > 1e-9 {
		t.Errorf("NormalizeL2 norm = %v, want 5", norm)
	}
	if math.Abs(float64(x[0])-0.6) > 1e-6 || math.Abs(float64(x[1])-0.8) > 1e-6 {
		t.Errorf("NormalizeL2([3 4]) = %v", x)
	}

	zero := []float32{0, 0, 0}
	if norm := NormalizeL2(zero); norm != 0 {
		t.Errorf("zero vector norm = %v", norm)
	}
	for _, v := range zero {
		if v != 0 {
			t.Errorf("zero vector changed: %v", zero)
		}
	}
}

func TestFirstNonFinite(t *testing.T) {
	tests := []struct {
		in   []float32
		want int
	}{
		{[]float32{1, 2, 3}, -1},
		{nil, -1},
		{[]float32{1, float32(math.NaN())}, 1},
		{[]float32{float32(math.Inf(-1)), 0}, 0},
	}
	for _, tt := range tests {
		if got := FirstNonFinite(tt.in); got != tt.want {
			t.Errorf("FirstNonFinite(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
