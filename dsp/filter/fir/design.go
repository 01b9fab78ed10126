package fir

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-absence/dsp/window"
)

// Errors returned by filter design.
var (
	ErrInvalidTaps       = errors.New("fir: number of taps must be >= 1")
	ErrInvalidSampleRate = errors.New("fir: sample rate must be > 0")
	ErrInvalidCutoff     = errors.New("fir: cutoffs must be increasing and inside (0, nyquist)")
	ErrEvenNyquist       = errors.New("fir: a filter passing nyquist needs an odd number of taps")
)

type designConfig struct {
	window   window.Type
	beta     float64
	passZero bool
	scale    bool
}

// DesignOption configures [Design].
type DesignOption func(*designConfig)

// WithWindow selects the design window. The default is Hamming.
func WithWindow(t window.Type) DesignOption {
	return func(c *designConfig) {
		c.window = t
	}
}

// WithKaiserBeta sets the shape parameter when the Kaiser window is selected.
func WithKaiserBeta(beta float64) DesignOption {
	return func(c *designConfig) {
		c.beta = beta
	}
}

// WithPassZero sets whether the band starting at DC is a pass band.
// The default is true, as in firwin.
func WithPassZero(passZero bool) DesignOption {
	return func(c *designConfig) {
		c.passZero = passZero
	}
}

// WithScale toggles unit-gain scaling at the centre of the first pass band.
func WithScale(scale bool) DesignOption {
	return func(c *designConfig) {
		c.scale = scale
	}
}

// Design builds a windowed-sinc FIR kernel with numTaps coefficients.
//
// cutoffsHz lists the band edges in Hz; with pass-zero the bands alternate
// pass/stop starting at DC, otherwise stop/pass. Two cutoffs without
// pass-zero give a band-pass filter.
func Design(numTaps int, cutoffsHz []float64, sampleRate float64, opts ...DesignOption) (*Kernel, error) {
	cfg := designConfig{
		window:   window.TypeHamming,
		beta:     8.6,
		passZero: true,
		scale:    true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if numTaps < 1 {
		return nil, ErrInvalidTaps
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, ErrInvalidSampleRate
	}

	nyq := sampleRate / 2
	edges := make([]float64, 0, len(cutoffsHz)+2)
	if cfg.passZero {
		edges = append(edges, 0)
	}
	for i, f := range cutoffsHz {
		c := f / nyq
		if !(c > 0 && c < 1) || (i > 0 && f <= cutoffsHz[i-1]) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCutoff, cutoffsHz)
		}
		edges = append(edges, c)
	}
	if len(cutoffsHz) == 0 {
		return nil, fmt.Errorf("%w: no cutoffs", ErrInvalidCutoff)
	}

	passNyquist := (len(cutoffsHz)%2 == 1) != cfg.passZero
	if passNyquist {
		if numTaps%2 == 0 {
			return nil, ErrEvenNyquist
		}
		edges = append(edges, 1)
	}

	alpha := 0.5 * float64(numTaps-1)
	h := make([]float64, numTaps)
	for b := 0; b+1 < len(edges); b += 2 {
		left, right := edges[b], edges[b+1]
		for i := range h {
			m := float64(i) - alpha
			h[i] += right*sinc(right*m) - left*sinc(left*m)
		}
	}

	window.Apply(cfg.window, h, window.WithBeta(cfg.beta))

	if cfg.scale {
		scaleToUnitGain(h, edges[0], edges[1], alpha)
	}

	return &Kernel{coeffs: h, sampleRate: sampleRate}, nil
}

// Bandpass designs a band-pass kernel passing [lowHz, highHz].
func Bandpass(numTaps int, lowHz, highHz, sampleRate float64, opts ...DesignOption) (*Kernel, error) {
	return Design(numTaps, []float64{lowHz, highHz}, sampleRate, append([]DesignOption{WithPassZero(false)}, opts...)...)
}

// scaleToUnitGain normalizes h so the response at the first pass band's
// reference frequency (DC, Nyquist or band centre) is exactly one.
func scaleToUnitGain(h []float64, left, right, alpha float64) {
	var freq float64
	switch {
	case left == 0:
		freq = 0
	case right == 1:
		freq = 1
	default:
		freq = 0.5 * (left + right)
	}

	var s float64
	for i, v := range h {
		s += v * math.Cos(math.Pi*(float64(i)-alpha)*freq)
	}

	for i := range h {
		h[i] /= s
	}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}

	px := math.Pi * x

	return math.Sin(px) / px
}
