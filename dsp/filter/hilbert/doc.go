// Package hilbert computes the analytic signal of a finite real sequence
// with the FFT method.
//
// The spectrum of x is taken over its full length, negative-frequency bins
// are zeroed, positive bins are doubled and the DC and Nyquist bins kept,
// then transformed back. The real part of the result equals x and the
// imaginary part is its Hilbert transform. The block is treated as one
// period, so no windowing or padding is applied.
package hilbert
