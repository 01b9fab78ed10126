package fir

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-absence/dsp/window"
	"github.com/cwbudde/algo-absence/internal/testutil"
)

func TestDesignMatchesFirwinReference(t *testing.T) {
	// scipy.signal.firwin(3, 0.1) with the default Nyquist of 1.
	k, err := Design(3, []float64{0.1}, 2)
	if err != nil {
		t.Fatalf("Design: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, k.Coefficients(), []float64{0.06799017, 0.86401967, 0.06799017}, 1e-8)
}

func TestBandpassMatchesFirwinReference(t *testing.T) {
	// scipy.signal.firwin(7, [0.2, 0.5], pass_zero=False).
	k, err := Bandpass(7, 0.2, 0.5, 2)
	if err != nil {
		t.Fatalf("Bandpass: %v", err)
	}

	want := []float64{
		-0.03453014781991538, -0.09783581770694455, 0.2106561322189544, 0.6255052841316859,
		0.2106561322189545, -0.09783581770694455, -0.03453014781991538,
	}
	testutil.RequireSliceNearlyEqual(t, k.Coefficients(), want, 1e-12)

	if g := k.Magnitude(0.35); math.Abs(g-1) > 1e-12 {
		t.Fatalf("gain at band centre = %v, want 1", g)
	}
}

func TestBandpassEngineKernels(t *testing.T) {
	tests := []struct {
		name       string
		low, high  float64
		passbandLo float64
		passbandHi float64
		stop       []float64
	}{
		{"broad", 1, 30, 4, 26, []float64{0, 40, 50, 64}},
		{"narrow", 3, 12, 5, 10, []float64{0, 1, 20, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := Bandpass(467, tt.low, tt.high, 128)
			if err != nil {
				t.Fatalf("Bandpass: %v", err)
			}
			if k.Len() != 467 {
				t.Fatalf("Len=%d, want 467", k.Len())
			}
			if k.Delay() != 233 {
				t.Fatalf("Delay=%v, want 233", k.Delay())
			}

			c := k.Coefficients()
			for i := range c {
				if math.Abs(c[i]-c[len(c)-1-i]) > 1e-15 {
					t.Fatalf("not linear phase at %d: %v vs %v", i, c[i], c[len(c)-1-i])
				}
			}

			centre := 0.5 * (tt.low + tt.high)
			if g := k.Magnitude(centre); math.Abs(g-1) > 1e-12 {
				t.Fatalf("gain at centre %v Hz = %v, want 1", centre, g)
			}

			for f := tt.passbandLo; f <= tt.passbandHi; f += 0.5 {
				if g := k.Magnitude(f); math.Abs(g-1) > 0.01 {
					t.Errorf("passband gain at %v Hz = %v", f, g)
				}
			}

			for _, f := range []float64{tt.low, tt.high} {
				if g := k.Magnitude(f); g < 0.4 || g > 0.6 {
					t.Errorf("edge gain at %v Hz = %v, want about 0.5", f, g)
				}
			}

			for _, f := range tt.stop {
				if db := k.MagnitudeDB(f); db > -20 {
					t.Errorf("stopband %v Hz = %.1f dB, want < -20 dB", f, db)
				}
			}
		})
	}
}

func TestDesignPassZeroTwoCutoffsIsBandstop(t *testing.T) {
	k, err := Design(467, []float64{1, 30}, 128)
	if err != nil {
		t.Fatalf("Design: %v", err)
	}

	if g := k.Magnitude(0); math.Abs(g-1) > 1e-12 {
		t.Fatalf("DC gain = %v, want 1", g)
	}
	if db := k.MagnitudeDB(15.5); db > -20 {
		t.Fatalf("stopband centre = %.1f dB, want < -20 dB", db)
	}
	if g := k.Magnitude(60); math.Abs(g-1) > 0.01 {
		t.Fatalf("upper pass band gain = %v", g)
	}
}

func TestDesignLowpassDCGain(t *testing.T) {
	k, err := Design(101, []float64{10}, 128, WithWindow(window.TypeKaiser), WithKaiserBeta(6))
	if err != nil {
		t.Fatalf("Design: %v", err)
	}

	var sum float64
	for _, c := range k.Coefficients() {
		sum += c
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("DC gain = %v, want 1", sum)
	}
}

func TestDesignErrors(t *testing.T) {
	tests := []struct {
		name    string
		taps    int
		cutoffs []float64
		fs      float64
		opts    []DesignOption
		want    error
	}{
		{"no taps", 0, []float64{1}, 128, nil, ErrInvalidTaps},
		{"bad rate", 11, []float64{1}, 0, nil, ErrInvalidSampleRate},
		{"no cutoffs", 11, nil, 128, nil, ErrInvalidCutoff},
		{"at nyquist", 11, []float64{64}, 128, nil, ErrInvalidCutoff},
		{"decreasing", 11, []float64{30, 1}, 128, []DesignOption{WithPassZero(false)}, ErrInvalidCutoff},
		{"even highpass", 10, []float64{10}, 128, []DesignOption{WithPassZero(false)}, ErrEvenNyquist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Design(tt.taps, tt.cutoffs, tt.fs, tt.opts...); !errors.Is(err, tt.want) {
				t.Fatalf("err=%v, want %v", err, tt.want)
			}
		})
	}
}

func TestKernelApplyFullLength(t *testing.T) {
	k, err := Bandpass(467, 3, 12, 128)
	if err != nil {
		t.Fatalf("Bandpass: %v", err)
	}

	x := testutil.DeterministicNoise(1, 1, 256)
	y, err := k.Apply(x)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(y) != 256+467-1 {
		t.Fatalf("len=%d, want %d", len(y), 256+467-1)
	}
}

func TestNewKernelCopies(t *testing.T) {
	c := []float64{0.25, 0.5, 0.25}
	k := NewKernel(c, 128)
	c[0] = 999
	if k.Coefficients()[0] != 0.25 {
		t.Fatal("NewKernel did not copy coefficients")
	}
	if g := k.Magnitude(0); math.Abs(g-1) > 1e-12 {
		t.Fatalf("DC gain = %v, want 1", g)
	}
}
