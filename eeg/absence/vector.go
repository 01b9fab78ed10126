package absence

import (
	"fmt"
	"strings"
)

// NumFeatures is the length of a feature vector.
const NumFeatures = 10

// Feature positions within a [Vector].
const (
	WaveletD5 = iota
	WaveletD3
	WaveletD2
	WaveletD1
	BroadPower
	PowerRatio
	EpochCorrelation
	BandCorrelation
	PhaseVariance
	Distance
)

// FeatureNames lists stable names for the vector positions.
var FeatureNames = [NumFeatures]string{
	"wavelet_d5",
	"wavelet_d3",
	"wavelet_d2",
	"wavelet_d1",
	"power_1_30",
	"power_ratio_3_12",
	"corr_epoch_next",
	"corr_bands",
	"phase_variance",
	"distance",
}

// Vector is the fixed-order feature vector of one epoch pair.
type Vector [NumFeatures]float64

// Row returns the vector as a single-row matrix.
func (v Vector) Row() [][]float64 {
	row := make([]float64, NumFeatures)
	copy(row, v[:])
	return [][]float64{row}
}

// Slice returns a copy of the features as a slice.
func (v Vector) Slice() []float64 {
	return append([]float64(nil), v[:]...)
}

func (v Vector) String() string {
	var sb strings.Builder
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%.6g", FeatureNames[i], f)
	}
	return sb.String()
}

// Result is a feature vector with diagnostics.
type Result struct {
	Vector Vector
	// CovarianceFallback is set when the identity replaced the inverse of
	// the outer-product matrix.
	CovarianceFallback bool
	// MahalanobisDistance is the distance before the variance step.
	MahalanobisDistance float64
	// BroadPower and NarrowPower are the raw band energies.
	BroadPower  float64
	NarrowPower float64
}
