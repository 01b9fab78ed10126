// Package resample provides rational sample-rate conversion of finite
// signals with a Kaiser-windowed sinc anti-aliasing filter.
//
// Conversion is one-shot and zero-phase: the prototype filter's group delay
// is compensated so that output sample m lines up with input time
// m*down/up. An N-sample input yields floor(N*up/down) samples.
//
// Quality modes:
//
//	mode            taps/phase   nominal stopband
//	QualityFast     16           ~55 dB
//	QualityBalanced 32           ~75 dB
//	QualityBest     64           ~90 dB
//
// Common workflows:
//   - ToRate(input, inRate, outRate, opts...)
//   - Resample(input, up, down, opts...)
//   - NewForRates / NewRational for repeated conversions of many channels
package resample
