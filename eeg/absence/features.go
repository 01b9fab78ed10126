package absence

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-absence/dsp/conv"
	"github.com/cwbudde/algo-absence/dsp/filter/hilbert"
	"github.com/cwbudde/algo-absence/dsp/wavelet"
	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// waveletFeatures returns ln(sum|cD|) for detail levels 5, 3, 2 and 1.
// Level 4 is left out.
func waveletFeatures(x []float64, w *wavelet.Wavelet, mode wavelet.Mode, level int) ([4]float64, error) {
	var out [4]float64

	coeffs, err := wavelet.Wavedec(x, w, mode, level)
	if err != nil {
		return out, fmt.Errorf("absence: wavelet: %w", err)
	}

	j := 0
	for l := 1; l < len(coeffs); l++ {
		if l == 2 {
			continue
		}
		out[j] = math.Log(floats.Norm(coeffs[l], 1))
		j++
	}

	return out, nil
}

func bandPower(x []float64) float64 {
	return vecmath.DotProduct(x, x)
}

// powerFeatures compresses the broad-band power and relates the narrow
// band to it.
func powerFeatures(broad, narrow float64) (compressed, ratio float64) {
	return math.Pow(broad, 0.1), narrow / broad
}

func correlationFeatures(current, next, broad, narrow []float64) (epochs, bands float64, err error) {
	c, err := conv.ZeroLag(current, next)
	if err != nil {
		return 0, 0, fmt.Errorf("absence: epoch correlation: %w", err)
	}

	b, err := conv.ZeroLag(broad, narrow)
	if err != nil {
		return 0, 0, fmt.Errorf("absence: band correlation: %w", err)
	}

	return math.Pow(c, 0.5), math.Pow(b, 2), nil
}

// phaseVariance is the variance of the analytic signal of the mean-centred
// epoch, mean(|z - mean(z)|^2).
func phaseVariance(x []float64) (float64, error) {
	centred := make([]float64, len(x))
	copy(centred, x)
	floats.AddConst(-stat.Mean(x, nil), centred)

	z, err := hilbert.Analytic(centred)
	if err != nil {
		return 0, fmt.Errorf("absence: analytic signal: %w", err)
	}

	return complexVariance(z), nil
}

func complexVariance(z []complex128) float64 {
	var mean complex128
	for _, v := range z {
		mean += v
	}
	mean /= complex(float64(len(z)), 0)

	var acc float64
	for _, v := range z {
		d := v - mean
		acc += real(d)*real(d) + imag(d)*imag(d)
	}

	return acc / float64(len(z))
}

type distanceResult struct {
	feature  float64
	distance float64
	fallback bool
}

// mahalanobis computes sqrt((u-v)' VI (u-v)) with VI the inverse of the
// outer product u v', or the identity when that inverse does not exist.
// The feature is the population variance of that single distance, raised
// to 0.25.
func mahalanobis(u, v []float64, shortcut bool) distanceResult {
	n := len(u)
	vi, fallback := inverseOuter(u, v, shortcut)

	delta := make([]float64, n)
	m := min(n, len(v))
	floats.SubTo(delta[:m], u[:m], v[:m])
	copy(delta[m:], u[m:])

	var d float64
	if fallback {
		// Identity weighting reduces to the Euclidean norm.
		d = math.Sqrt(floats.Dot(delta, delta))
	} else {
		dv := mat.NewVecDense(n, delta)
		d = math.Sqrt(mat.Inner(dv, vi, dv))
	}

	variance := stat.PopVariance([]float64{d}, nil)

	return distanceResult{
		feature:  math.Pow(variance, 0.25),
		distance: d,
		fallback: fallback,
	}
}

// inverseOuter attempts to invert u v'. Any failure, including gonum's
// ill-conditioning report, selects the identity.
func inverseOuter(u, v []float64, shortcut bool) (*mat.Dense, bool) {
	if len(u) != len(v) || len(u) == 0 {
		return nil, true
	}
	// An outer product of two vectors has rank at most one.
	if shortcut && len(u) > 1 {
		return nil, true
	}

	var outer mat.Dense
	outer.Outer(1, mat.NewVecDense(len(u), u), mat.NewVecDense(len(v), v))

	var inv mat.Dense
	if err := inv.Inverse(&outer); err != nil {
		return nil, true
	}

	return &inv, false
}
