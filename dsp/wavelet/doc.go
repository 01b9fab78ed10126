// Package wavelet provides discrete wavelet decomposition with Daubechies
// filter banks.
//
// [DWT] performs a single analysis step and [Wavedec] the multilevel
// decomposition. Coefficient layout and output lengths follow the
// convention of PyWavelets: a level-L decomposition returns
// [cA_L, cD_L, cD_{L-1}, ..., cD_1] and every step produces
// floor((N+F-1)/2) coefficients for an input of N samples and a filter
// of F taps.
//
// Signal boundaries are handled by an extension [Mode]. The default
// [ModeSymmetric] mirrors the signal about its edges including the edge
// sample (half-sample symmetry).
package wavelet
