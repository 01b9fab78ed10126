// Package window generates the tapering windows used for windowed-sinc FIR
// design and resampling prototypes.
//
// Windows are produced in symmetric form by default, which is what linear-phase
// filter design expects. [WithPeriodic] selects the FFT framing variant.
package window
