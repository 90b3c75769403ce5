package mathx

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-0.2, 0, 1, 0},
		{1.7, 0, 1, 1},
		{0.5, 1, 0, 0.5}, // swapped bounds
		{0, 0, 1, 0},
		{1, 0, 1, 1},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Fatalf("Clamp(%v,%v,%v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestBetween(t *testing.T) {
	if !Between(7, 0, 7) || !Between(0, 7, 0) {
		t.Fatal("bounds must be inclusive")
	}
	if Between(8, 0, 7) || Between(-1, 0, 7) {
		t.Fatal("out of range accepted")
	}
}
