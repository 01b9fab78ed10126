// Package conv provides linear convolution and cross-correlation.
//
// Two convolution strategies are available:
//
//   - Direct convolution: O(N*M) time-domain convolution, used for short kernels
//   - Overlap-add (OLA): FFT-based block convolution for longer kernels
//
// [Convolve] selects between them by kernel length and always returns the full
// result of length len(a)+len(b)-1, the same as numpy.convolve. The band-pass
// kernels of the absence feature engine (467 taps) take the FFT path.
//
// # Correlation
//
// [Correlate] computes the full cross-correlation; [CorrelateMode] trims it the
// way numpy.correlate does. [ZeroLag] returns the single valid-mode value used
// by the correlation features, which for equal-length inputs is their inner
// product:
//
//	r, err := conv.ZeroLag(epoch, nextEpoch)
package conv
