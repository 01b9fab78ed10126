package conv

import "github.com/cwbudde/algo-vecmath"

// Correlate computes the full cross-correlation of a and b, defined as
// numpy.correlate(a, b, "full"): out[k] = sum_n a[n+k-(len(b)-1)] * b[n].
// Output index k corresponds to lag k - (len(b) - 1).
func Correlate(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyInput
	}

	// Cross-correlation is convolution with the time-reversed second signal.
	reversed := make([]float64, len(b))
	for i := range b {
		reversed[i] = b[len(b)-1-i]
	}

	return Convolve(a, reversed)
}

// CorrelateMode computes cross-correlation with the specified output mode.
// ModeValid matches numpy.correlate's default mode.
func CorrelateMode(a, b []float64, mode Mode) ([]float64, error) {
	full, err := Correlate(a, b)
	if err != nil {
		return nil, err
	}

	return trimToMode(full, len(a), len(b), mode), nil
}

// ZeroLag returns the first valid-mode correlation value of a and b, i.e.
// numpy.correlate(a, b)[0]. For equal lengths this is the inner product.
// It is evaluated as a single dot product, not through the full correlation.
func ZeroLag(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyInput
	}

	// With a shorter first input the first valid lag is negative and aligns
	// a with the trailing window of b.
	offset := 0
	n := len(b)
	if len(b) > len(a) {
		offset = len(b) - len(a)
		n = len(a)
	}

	return vecmath.DotProduct(a[:n], b[offset:offset+n]), nil
}
