package wavelet

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by the transforms.
var (
	ErrEmptyInput   = errors.New("wavelet: empty input")
	ErrInvalidLevel = errors.New("wavelet: level must be >= 0")
)

// DWT performs one analysis step and returns the approximation and detail
// coefficients, each of length floor((len(x)+F-1)/2).
func DWT(x []float64, w *Wavelet, mode Mode) (cA, cD []float64, err error) {
	if len(x) == 0 {
		return nil, nil, ErrEmptyInput
	}
	if w == nil {
		return nil, nil, fmt.Errorf("%w: nil", ErrUnknownWavelet)
	}

	f := w.Len()
	outLen := (len(x) + f - 1) / 2
	xe := extend(x, f-1, mode)

	lo := reversed(w.decLo)
	hi := reversed(w.decHi)

	cA = make([]float64, outLen)
	cD = make([]float64, outLen)
	// out[o] = sum_j h[j] * x[2o+1-j]; with the reversed filter this is a
	// dot product over xe[2o+1 : 2o+1+f].
	for o := range outLen {
		seg := xe[2*o+1 : 2*o+1+f]
		cA[o] = vecmath.DotProduct(lo, seg)
		cD[o] = vecmath.DotProduct(hi, seg)
	}

	return cA, cD, nil
}

// Wavedec performs a level-step decomposition and returns
// [cA_level, cD_level, ..., cD_1]. Level 0 returns a copy of x.
func Wavedec(x []float64, w *Wavelet, mode Mode, level int) ([][]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}
	if level < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	coeffs := make([][]float64, level+1)
	a := append([]float64(nil), x...)
	for l := level; l >= 1; l-- {
		cA, cD, err := DWT(a, w, mode)
		if err != nil {
			return nil, fmt.Errorf("wavelet: level %d: %w", level-l+1, err)
		}
		coeffs[l] = cD
		a = cA
	}
	coeffs[0] = a

	return coeffs, nil
}

// MaxLevel returns the deepest useful decomposition level for a signal of
// n samples and a filter of filterLen taps.
func MaxLevel(n, filterLen int) int {
	if filterLen < 2 || n < filterLen-1 {
		return 0
	}

	return int(math.Floor(math.Log2(float64(n) / float64(filterLen-1))))
}

// CoeffLengths returns the coefficient lengths Wavedec produces for an
// n-sample input, in the same order as its result.
func CoeffLengths(n, filterLen, level int) []int {
	lengths := make([]int, level+1)
	for l := level; l >= 1; l-- {
		n = (n + filterLen - 1) / 2
		lengths[l] = n
	}
	lengths[0] = n

	return lengths
}

func reversed(h []float64) []float64 {
	r := make([]float64, len(h))
	for i, v := range h {
		r[len(h)-1-i] = v
	}
	return r
}
