package conv

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-absence/internal/testutil"
)

// naiveConvolve is the reference O(N*M) convolution.
func naiveConvolve(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i := range a {
		for j := range b {
			out[i+j] += a[i] * b[j]
		}
	}
	return out
}

func TestDirectSmall(t *testing.T) {
	got, err := Direct([]float64{1, 2, 3}, []float64{0, 1, 0.5})
	if err != nil {
		t.Fatalf("Direct: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, got, []float64{0, 1, 2.5, 4, 1.5}, 1e-12)
}

func TestConvolveMatchesNaive(t *testing.T) {
	tests := []struct {
		name       string
		signalLen  int
		kernelLen  int
		toleration float64
	}{
		{"short kernel", 256, 16, 1e-12},
		{"threshold kernel", 256, directThreshold, 1e-12},
		{"engine kernel", 256, 467, 1e-9},
		{"kernel longer than block", 100, 1500, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testutil.DeterministicNoise(1, 1, tt.signalLen)
			b := testutil.DeterministicNoise(2, 0.1, tt.kernelLen)

			got, err := Convolve(a, b)
			if err != nil {
				t.Fatalf("Convolve: %v", err)
			}

			testutil.RequireSliceNearlyEqual(t, got, naiveConvolve(a, b), tt.toleration)
		})
	}
}

func TestConvolveIsCommutative(t *testing.T) {
	a := testutil.DeterministicNoise(3, 1, 300)
	b := testutil.DeterministicNoise(4, 1, 90)

	ab, err := Convolve(a, b)
	if err != nil {
		t.Fatalf("Convolve(a,b): %v", err)
	}
	ba, err := Convolve(b, a)
	if err != nil {
		t.Fatalf("Convolve(b,a): %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, ab, ba, 1e-12)
}

func TestConvolveEmpty(t *testing.T) {
	if _, err := Convolve(nil, []float64{1}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err=%v, want ErrEmptyInput", err)
	}
	if _, err := Convolve([]float64{1}, nil); !errors.Is(err, ErrEmptyKernel) {
		t.Fatalf("err=%v, want ErrEmptyKernel", err)
	}
}

func TestConvolveModeLengths(t *testing.T) {
	a := make([]float64, 10)
	b := make([]float64, 4)

	tests := []struct {
		mode Mode
		want int
	}{
		{ModeFull, 13},
		{ModeSame, 10},
		{ModeValid, 7},
	}

	for _, tt := range tests {
		got, err := ConvolveMode(a, b, tt.mode)
		if err != nil {
			t.Fatalf("ConvolveMode: %v", err)
		}
		if len(got) != tt.want {
			t.Errorf("mode %d: len=%d, want %d", tt.mode, len(got), tt.want)
		}
	}
}

func TestCorrelateValidEqualLengthIsDot(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{0.5, -1, 2, 1}

	valid, err := CorrelateMode(a, b, ModeValid)
	if err != nil {
		t.Fatalf("CorrelateMode: %v", err)
	}
	if len(valid) != 1 {
		t.Fatalf("len=%d, want 1", len(valid))
	}

	want := 0.5 - 2 + 6 + 4
	if math.Abs(valid[0]-want) > 1e-12 {
		t.Fatalf("valid=%v, want %v", valid[0], want)
	}

	zl, err := ZeroLag(a, b)
	if err != nil {
		t.Fatalf("ZeroLag: %v", err)
	}
	if zl != want {
		t.Fatalf("ZeroLag=%v, want %v", zl, want)
	}
}

func TestZeroLagMatchesValidModeForUnequalLengths(t *testing.T) {
	long := testutil.DeterministicNoise(5, 1, 12)
	short := testutil.DeterministicNoise(6, 1, 5)

	for _, pair := range [][2][]float64{{long, short}, {short, long}} {
		valid, err := CorrelateMode(pair[0], pair[1], ModeValid)
		if err != nil {
			t.Fatalf("CorrelateMode: %v", err)
		}

		zl, err := ZeroLag(pair[0], pair[1])
		if err != nil {
			t.Fatalf("ZeroLag: %v", err)
		}

		if math.Abs(zl-valid[0]) > 1e-12 {
			t.Fatalf("ZeroLag=%v, valid[0]=%v", zl, valid[0])
		}
	}
}

func TestCorrelateFullLagOrder(t *testing.T) {
	// numpy.correlate([1, 2, 3], [0, 1, 0.5], "full") = [0.5, 2, 3.5, 3, 0]
	got, err := Correlate([]float64{1, 2, 3}, []float64{0, 1, 0.5})
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, got, []float64{0.5, 2, 3.5, 3, 0}, 1e-12)
}

func TestOverlapAddReuse(t *testing.T) {
	kernel := testutil.DeterministicNoise(7, 1, 200)
	oa, err := NewOverlapAdd(kernel, 128)
	if err != nil {
		t.Fatalf("NewOverlapAdd: %v", err)
	}
	if oa.BlockSize() != 128 || oa.FFTSize() != 512 {
		t.Fatalf("block=%d fft=%d, want 128/512", oa.BlockSize(), oa.FFTSize())
	}

	for seed := int64(10); seed < 13; seed++ {
		sig := testutil.DeterministicNoise(seed, 1, 333)
		got, err := oa.Process(sig)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		testutil.RequireSliceNearlyEqual(t, got, naiveConvolve(sig, kernel), 1e-9)
	}
}

func BenchmarkConvolveEngineKernel(b *testing.B) {
	epoch := testutil.DeterministicNoise(1, 1, 256)
	kernel := testutil.DeterministicNoise(2, 0.01, 467)

	for b.Loop() {
		if _, err := Convolve(epoch, kernel); err != nil {
			b.Fatal(err)
		}
	}
}
