package wavelet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownWavelet is returned when a wavelet name is not recognized.
var ErrUnknownWavelet = errors.New("wavelet: unknown wavelet")

// Wavelet is an orthogonal analysis filter pair.
type Wavelet struct {
	name  string
	decLo []float64
	decHi []float64
}

// Daubechies low-pass decomposition filters (orders 1 to 4).
var daubechiesLo = [][]float64{
	{0.7071067811865476, 0.7071067811865476},
	{
		-0.12940952255092145, 0.22414386804185735,
		0.836516303737469, 0.48296291314469025,
	},
	{
		0.035226291882100656, -0.08544127388224149, -0.13501102001039084,
		0.4598775021193313, 0.8068915093133388, 0.3326705529509569,
	},
	{
		-0.010597401784997278, 0.032883011666982945, 0.030841381835986965,
		-0.18703481171888114, -0.02798376941698385, 0.6308807679295904,
		0.7148465705525415, 0.23037781330885523,
	},
}

// Daubechies returns the Daubechies wavelet with the given number of
// vanishing moments (1 to 4). Order 1 is the Haar wavelet.
func Daubechies(order int) (*Wavelet, error) {
	if order < 1 || order > len(daubechiesLo) {
		return nil, fmt.Errorf("%w: db%d", ErrUnknownWavelet, order)
	}

	lo := daubechiesLo[order-1]
	return newOrthogonal(fmt.Sprintf("db%d", order), lo), nil
}

// Lookup resolves a wavelet by name ("haar", "db1" ... "db4").
func Lookup(name string) (*Wavelet, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "haar" {
		return Daubechies(1)
	}

	var order int
	if _, err := fmt.Sscanf(n, "db%d", &order); err != nil || fmt.Sprintf("db%d", order) != n {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWavelet, name)
	}

	return Daubechies(order)
}

// newOrthogonal derives the high-pass filter as the quadrature mirror of lo.
func newOrthogonal(name string, lo []float64) *Wavelet {
	f := len(lo)
	hi := make([]float64, f)
	for k := range hi {
		v := lo[f-1-k]
		if k%2 == 0 {
			v = -v
		}
		hi[k] = v
	}

	decLo := make([]float64, f)
	copy(decLo, lo)

	return &Wavelet{name: name, decLo: decLo, decHi: hi}
}

// Name returns the wavelet's short name, e.g. "db4".
func (w *Wavelet) Name() string { return w.name }

// Len returns the filter length.
func (w *Wavelet) Len() int { return len(w.decLo) }

// DecLo returns a copy of the low-pass decomposition filter.
func (w *Wavelet) DecLo() []float64 { return append([]float64(nil), w.decLo...) }

// DecHi returns a copy of the high-pass decomposition filter.
func (w *Wavelet) DecHi() []float64 { return append([]float64(nil), w.decHi...) }
