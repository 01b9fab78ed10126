package window

import (
	"math"
	"testing"
)

func TestGenerateLengthAndFinite(t *testing.T) {
	for _, typ := range []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman, TypeKaiser} {
		t.Run(typ.String(), func(t *testing.T) {
			w := Generate(typ, 64)
			if len(w) != 64 {
				t.Fatalf("len=%d, want 64", len(w))
			}

			for i, v := range w {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("coefficient[%d] invalid: %v", i, v)
				}
			}
		})
	}
}

func TestGenerateEmpty(t *testing.T) {
	if w := Generate(TypeHamming, 0); w != nil {
		t.Fatalf("expected nil for zero length, got %v", w)
	}
}

func TestHammingEndpointsAndPeak(t *testing.T) {
	w, err := Hamming(467)
	if err != nil {
		t.Fatalf("Hamming: %v", err)
	}

	if math.Abs(w[0]-0.08) > 1e-12 || math.Abs(w[466]-0.08) > 1e-12 {
		t.Fatalf("endpoints = %v, %v, want 0.08", w[0], w[466])
	}

	if math.Abs(w[233]-1) > 1e-12 {
		t.Fatalf("centre = %v, want 1", w[233])
	}
}

func TestSymmetricForm(t *testing.T) {
	for _, typ := range []Type{TypeHann, TypeHamming, TypeBlackman, TypeKaiser} {
		w := Generate(typ, 31)
		for i := range w {
			if math.Abs(w[i]-w[len(w)-1-i]) > 1e-14 {
				t.Fatalf("%s not symmetric at %d: %v vs %v", typ, i, w[i], w[len(w)-1-i])
			}
		}
	}
}

func TestPeriodicDiffersFromSymmetric(t *testing.T) {
	a := Generate(TypeHann, 16)
	b := Generate(TypeHann, 16, WithPeriodic())

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}

	if same {
		t.Fatal("periodic and symmetric windows are identical")
	}
}

func TestKaiserZeroBetaIsRectangular(t *testing.T) {
	w, err := Kaiser(9, 0)
	if err != nil {
		t.Fatalf("Kaiser: %v", err)
	}

	for i, v := range w {
		if v != 1 {
			t.Fatalf("w[%d]=%v, want 1", i, v)
		}
	}
}

func TestKaiserRejectsNegativeBeta(t *testing.T) {
	if _, err := Kaiser(9, -1); err == nil {
		t.Fatal("expected error for negative beta")
	}
}

func TestBesselI0(t *testing.T) {
	tests := []struct {
		x, want float64
	}{
		{0, 1},
		{1, 1.2660658777520082},
		{5, 27.239871823604442},
	}

	for _, tt := range tests {
		if got := BesselI0(tt.x); math.Abs(got-tt.want) > 1e-9*tt.want {
			t.Errorf("BesselI0(%v)=%v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, typ := range []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman, TypeKaiser} {
		got, err := Parse(typ.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", typ.String(), err)
		}

		if got != typ {
			t.Fatalf("Parse(%q)=%v, want %v", typ.String(), got, typ)
		}
	}

	if _, err := Parse("flat-top"); err == nil {
		t.Fatal("expected error for unknown name")
	}
}
