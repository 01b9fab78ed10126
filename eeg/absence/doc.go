// Package absence extracts the ten-feature vector used for absence-seizure
// paroxysm detection from pairs of consecutive EEG epochs.
//
// An [Extractor] is built once from a [Config]. It designs the two band-pass
// kernels (1-30 Hz and 3-12 Hz at 128 Hz by default) and resolves the
// wavelet, then maps a (current, next) epoch pair to a [Vector]:
//
//	0-3  log of the absolute detail-coefficient sums of a 5-level db4
//	     decomposition of the current epoch (levels 5, 3, 2, 1)
//	4    broad-band power raised to 0.1
//	5    narrow-band to broad-band power ratio
//	6    zero-lag correlation of current and next epoch, raised to 0.5
//	7    zero-lag correlation of the two band signals, squared
//	8    variance of the analytic signal of the mean-centred current epoch
//	9    variance of the Mahalanobis distance between the band signals,
//	     raised to 0.25
//
// Numeric edge cases are not guarded: log of zero yields -Inf, a flat
// broad-band signal divides by zero and a negative correlation under the
// square root yields NaN. The only explicit fallback is in the distance
// feature, where a non-invertible outer-product matrix is replaced by the
// identity.
//
// An Extractor holds only immutable kernels and is safe for concurrent use.
package absence
