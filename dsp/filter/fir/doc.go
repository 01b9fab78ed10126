// Package fir designs linear-phase FIR filters by the windowed-sinc method and
// applies them by full linear convolution.
//
// [Design] follows the semantics of scipy.signal.firwin: cutoff frequencies
// are given in Hz together with the sample rate, the pass_zero flag decides
// whether the band starting at DC passes, the default window is Hamming, and
// coefficients are scaled to unit gain at the centre of the first pass band.
// The absence feature engine designs its 467-tap [1,30] Hz and [3,12] Hz
// kernels with [Bandpass].
package fir
