package hilbert

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by the analytic-signal transforms.
var (
	ErrEmptyInput     = errors.New("hilbert: empty input")
	ErrLengthMismatch = errors.New("hilbert: length mismatch")
)

// Transformer computes analytic signals of a fixed length. It reuses its
// FFT plan and scratch buffer and is not safe for concurrent use.
type Transformer struct {
	n       int
	plan    *algofft.Plan[complex128]
	buf     []complex128
	weights []float64
}

// New creates a Transformer for blocks of n samples.
func New(n int) (*Transformer, error) {
	if n < 1 {
		return nil, ErrEmptyInput
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("hilbert: failed to create FFT plan: %w", err)
	}

	return &Transformer{
		n:       n,
		plan:    plan,
		buf:     make([]complex128, n),
		weights: spectralWeights(n),
	}, nil
}

// spectralWeights returns the one-sided spectrum multiplier.
func spectralWeights(n int) []float64 {
	h := make([]float64, n)
	h[0] = 1
	if n%2 == 0 {
		h[n/2] = 1
		for k := 1; k < n/2; k++ {
			h[k] = 2
		}
	} else {
		for k := 1; k < (n+1)/2; k++ {
			h[k] = 2
		}
	}
	return h
}

// Len returns the block length.
func (t *Transformer) Len() int { return t.n }

// Analytic writes the analytic signal of x into dst. Both must have Len()
// elements.
func (t *Transformer) Analytic(dst []complex128, x []float64) error {
	if len(x) != t.n || len(dst) != t.n {
		return fmt.Errorf("%w: got %d and %d, want %d", ErrLengthMismatch, len(x), len(dst), t.n)
	}

	for i, v := range x {
		t.buf[i] = complex(v, 0)
	}

	if err := t.plan.Forward(t.buf, t.buf); err != nil {
		return fmt.Errorf("hilbert: forward FFT failed: %w", err)
	}

	for k, w := range t.weights {
		t.buf[k] *= complex(w, 0)
	}

	if err := t.plan.Inverse(dst, t.buf); err != nil {
		return fmt.Errorf("hilbert: inverse FFT failed: %w", err)
	}

	return nil
}

// Analytic returns the analytic signal x + j*H{x}.
func Analytic(x []float64) ([]complex128, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}

	t, err := New(len(x))
	if err != nil {
		return nil, err
	}

	z := make([]complex128, len(x))
	if err := t.Analytic(z, x); err != nil {
		return nil, err
	}

	return z, nil
}

// Envelope returns the magnitude of the analytic signal of x.
func Envelope(x []float64) ([]float64, error) {
	z, err := Analytic(x)
	if err != nil {
		return nil, err
	}

	re := make([]float64, len(z))
	im := make([]float64, len(z))
	for i, v := range z {
		re[i] = real(v)
		im[i] = imag(v)
	}

	env := make([]float64, len(z))
	vecmath.Magnitude(env, re, im)

	return env, nil
}

// InstantaneousPhase returns the unwrapped phase of the analytic signal
// of x in radians.
func InstantaneousPhase(x []float64) ([]float64, error) {
	z, err := Analytic(x)
	if err != nil {
		return nil, err
	}

	phase := make([]float64, len(z))
	var offset float64
	for i, v := range z {
		p := cmplx.Phase(v)
		if i > 0 {
			d := p + offset - phase[i-1]
			switch {
			case d > math.Pi:
				offset -= 2 * math.Pi
			case d < -math.Pi:
				offset += 2 * math.Pi
			}
		}
		phase[i] = p + offset
	}

	return phase, nil
}
