package fir

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-absence/dsp/conv"
)

// Kernel is an immutable set of FIR coefficients bound to the sample rate
// it was designed for. It is safe for concurrent use.
type Kernel struct {
	coeffs     []float64
	sampleRate float64
}

// NewKernel wraps precomputed coefficients. The coefficients are copied.
func NewKernel(coeffs []float64, sampleRate float64) *Kernel {
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Kernel{coeffs: c, sampleRate: sampleRate}
}

// Len returns the number of taps.
func (k *Kernel) Len() int { return len(k.coeffs) }

// SampleRate returns the design sample rate in Hz.
func (k *Kernel) SampleRate() float64 { return k.sampleRate }

// Delay returns the group delay in samples of a linear-phase kernel.
func (k *Kernel) Delay() float64 { return 0.5 * float64(len(k.coeffs)-1) }

// Coefficients returns a copy of the filter coefficients.
func (k *Kernel) Coefficients() []float64 {
	c := make([]float64, len(k.coeffs))
	copy(c, k.coeffs)
	return c
}

// Apply returns the full convolution of x with the kernel, of length
// len(x) + Len() - 1.
func (k *Kernel) Apply(x []float64) ([]float64, error) {
	return conv.Convolve(x, k.coeffs)
}

// Response computes the complex frequency response H(e^{jw}) at freqHz.
func (k *Kernel) Response(freqHz float64) complex128 {
	w := 2 * math.Pi * freqHz / k.sampleRate
	var h complex128
	for n, c := range k.coeffs {
		h += complex(c, 0) * cmplx.Exp(complex(0, -w*float64(n)))
	}
	return h
}

// Magnitude returns |H| at freqHz.
func (k *Kernel) Magnitude(freqHz float64) float64 {
	return cmplx.Abs(k.Response(freqHz))
}

// MagnitudeDB returns the magnitude response in dB at freqHz.
func (k *Kernel) MagnitudeDB(freqHz float64) float64 {
	return 20 * math.Log10(k.Magnitude(freqHz))
}
