package window

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeKaiser
)

// String returns the lower-case window name used in configuration files.
func (t Type) String() string {
	switch t {
	case TypeRectangular:
		return "rectangular"
	case TypeHann:
		return "hann"
	case TypeHamming:
		return "hamming"
	case TypeBlackman:
		return "blackman"
	case TypeKaiser:
		return "kaiser"
	default:
		return "unknown"
	}
}

// Parse resolves a window name as returned by [Type.String].
func Parse(name string) (Type, error) {
	for _, t := range []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman, TypeKaiser} {
		if t.String() == name {
			return t, nil
		}
	}

	return 0, errUnknownType(name)
}

// Option configures window generation.
type Option func(*config)

type config struct {
	beta     float64
	periodic bool
}

func defaultConfig() config {
	return config{beta: 8.6}
}

// WithBeta sets the Kaiser shape parameter. Negative values are ignored.
func WithBeta(beta float64) Option {
	return func(c *config) {
		if beta >= 0 {
			c.beta = beta
		}
	}
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
// FIR design uses the symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

var (
	hannCoeffs     = []float64{0.5, -0.5}
	hammingCoeffs  = []float64{0.54, -0.46}
	blackmanCoeffs = []float64{0.42, -0.5, 0.08}
)

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)
	for i := range out {
		out[i] = evalWindow(t, samplePosition(i, length, cfg.periodic), cfg)
	}

	return out
}

// Apply multiplies buf in-place by the selected window.
func Apply(t Type, buf []float64, opts ...Option) {
	if len(buf) == 0 {
		return
	}

	vecmath.MulBlockInPlace(buf, Generate(t, len(buf), opts...))
}

// Hamming returns symmetric or periodic Hamming coefficients.
func Hamming(size int, opts ...Option) ([]float64, error) {
	return Generate(TypeHamming, size, opts...), validateLength(size)
}

// Kaiser returns Kaiser window coefficients.
func Kaiser(size int, beta float64, opts ...Option) ([]float64, error) {
	if size <= 0 || beta < 0 {
		return nil, validateKaiser(size, beta)
	}

	return Generate(TypeKaiser, size, append(opts, WithBeta(beta))...), nil
}

func evalWindow(t Type, x float64, cfg config) float64 {
	switch t {
	case TypeHann:
		return cosineFromCoeffs(x, hannCoeffs)
	case TypeHamming:
		return cosineFromCoeffs(x, hammingCoeffs)
	case TypeBlackman:
		return cosineFromCoeffs(x, blackmanCoeffs)
	case TypeKaiser:
		return kaiserAt(x, cfg.beta)
	default:
		return 1
	}
}

func cosineFromCoeffs(x float64, coeffs []float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

func samplePosition(n, size int, periodic bool) float64 {
	if size <= 1 {
		return 0
	}

	den := float64(size - 1)
	if periodic {
		den = float64(size)
	}

	return float64(n) / den
}

func kaiserAt(x, beta float64) float64 {
	if beta <= 0 {
		return 1
	}

	r := 2*x - 1
	term := math.Sqrt(math.Max(0, 1-r*r))

	return BesselI0(beta*term) / BesselI0(beta)
}

// BesselI0 returns the zeroth-order modified Bessel function of the first
// kind, evaluated by its power series.
func BesselI0(x float64) float64 {
	sum := 1.0
	term := 1.0

	x2 := (x * x) / 4
	for k := 1; k < 300; k++ {
		term *= x2 / float64(k*k)

		sum += term
		if term < 1e-17*sum {
			break
		}
	}

	return sum
}
