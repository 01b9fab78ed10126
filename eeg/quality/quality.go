// Package quality summarises derivation signals before feature
// extraction.
//
// A flat derivation (disconnected or shorted electrode) yields -Inf and
// NaN features for every epoch; [Stats.Flat] lets callers report it.
package quality

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats holds time-domain statistics of one signal.
type Stats struct {
	Length int     `json:"length"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"` // population
	RMS    float64 `json:"rms"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Peak   float64 `json:"peak"` // max(|Min|, |Max|)
	// MeanCrossings counts sign changes of x - Mean.
	MeanCrossings int `json:"mean_crossings"`
	// Kurtosis is the bias-corrected excess kurtosis, near 0 for Gaussian
	// noise. It is NaN for constant signals and fewer than four samples.
	Kurtosis float64 `json:"-"`
}

// Measure computes the statistics of x. An empty x gives zero Stats.
func Measure(x []float64) Stats {
	n := len(x)
	if n == 0 {
		return Stats{}
	}

	s := Stats{Length: n}
	s.Mean, s.StdDev = stat.PopMeanStdDev(x, nil)
	s.RMS = floats.Norm(x, 2) / math.Sqrt(float64(n))
	s.Min, s.Max = floats.Min(x), floats.Max(x)
	s.Peak = math.Max(math.Abs(s.Min), math.Abs(s.Max))
	if s.StdDev > 0 && n > 3 {
		s.Kurtosis = stat.ExKurtosis(x, nil)
	} else {
		s.Kurtosis = math.NaN()
	}

	for i := 1; i < n; i++ {
		if (x[i-1]-s.Mean)*(x[i]-s.Mean) < 0 {
			s.MeanCrossings++
		}
	}
	return s
}

// Flat reports whether the peak-to-peak range is at most tol.
func (s Stats) Flat(tol float64) bool {
	return s.Length == 0 || s.Max-s.Min <= tol
}

// CrestFactor returns Peak/RMS, or 0 for a silent signal.
func (s Stats) CrestFactor() float64 {
	if s.RMS == 0 {
		return 0
	}
	return s.Peak / s.RMS
}

// DominantHz estimates the dominant frequency from the mean-crossing rate
// at sample rate fs.
func (s Stats) DominantHz(fs float64) float64 {
	if s.Length < 2 {
		return 0
	}
	return float64(s.MeanCrossings) * fs / (2 * float64(s.Length-1))
}
