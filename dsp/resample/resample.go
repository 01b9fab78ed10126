package resample

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-absence/dsp/filter/fir"
	"github.com/cwbudde/algo-absence/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

var (
	// ErrInvalidRatio indicates an invalid up/down ratio.
	ErrInvalidRatio = errors.New("resample: invalid ratio")
	// ErrInvalidRate indicates an invalid input/output sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
)

// Quality controls default anti-aliasing filter settings.
type Quality int

const (
	// QualityFast prioritizes lower CPU usage.
	QualityFast Quality = iota
	// QualityBalanced is the default quality/performance trade-off.
	QualityBalanced
	// QualityBest prioritizes stopband attenuation and passband flatness.
	QualityBest
)

// Profile exposes default filter parameters for each quality mode.
type Profile struct {
	TapsPerPhase      int
	CutoffScale       float64
	KaiserBeta        float64
	NominalStopbandDB float64
}

// QualityProfile returns the default profile used by quality mode q.
func QualityProfile(q Quality) Profile {
	switch q {
	case QualityFast:
		return Profile{TapsPerPhase: 16, CutoffScale: 0.88, KaiserBeta: 5.0, NominalStopbandDB: 55}
	case QualityBest:
		return Profile{TapsPerPhase: 64, CutoffScale: 0.96, KaiserBeta: 9.0, NominalStopbandDB: 90}
	default:
		return Profile{TapsPerPhase: 32, CutoffScale: 0.92, KaiserBeta: 7.5, NominalStopbandDB: 75}
	}
}

type config struct {
	quality      Quality
	tapsPerPhase int
	cutoffScale  float64
	kaiserBeta   float64
	maxDen       int
}

// Option configures the resampler.
type Option func(*config)

// WithQuality selects a predefined anti-aliasing quality mode.
func WithQuality(q Quality) Option {
	return func(cfg *config) {
		cfg.quality = q
	}
}

// WithTapsPerPhase overrides taps per polyphase branch.
func WithTapsPerPhase(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.tapsPerPhase = n
		}
	}
}

// WithCutoffScale overrides normalized cutoff scaling in range (0, 1].
func WithCutoffScale(v float64) Option {
	return func(cfg *config) {
		if v > 0 && v <= 1 {
			cfg.cutoffScale = v
		}
	}
}

// WithKaiserBeta overrides the Kaiser window beta parameter.
func WithKaiserBeta(beta float64) Option {
	return func(cfg *config) {
		if beta > 0 {
			cfg.kaiserBeta = beta
		}
	}
}

// WithMaxDenominator caps denominator size for rate-ratio approximation.
func WithMaxDenominator(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxDen = n
		}
	}
}

func newConfig(opts []Option) config {
	cfg := config{quality: QualityBalanced, maxDen: 4096}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	p := QualityProfile(cfg.quality)
	if cfg.tapsPerPhase <= 0 {
		cfg.tapsPerPhase = p.TapsPerPhase
	}
	if cfg.cutoffScale <= 0 {
		cfg.cutoffScale = p.CutoffScale
	}
	if cfg.kaiserBeta <= 0 {
		cfg.kaiserBeta = p.KaiserBeta
	}

	return cfg
}

// Resampler converts finite signals by a fixed rational ratio. It holds
// only immutable filter taps and is safe for concurrent use.
type Resampler struct {
	up      int
	down    int
	quality Quality
	taps    []float64
	delay   int
}

// NewRational creates a resampler for ratio up/down.
func NewRational(up, down int, opts ...Option) (*Resampler, error) {
	if up <= 0 || down <= 0 {
		return nil, ErrInvalidRatio
	}

	g := gcd(up, down)
	up /= g
	down /= g

	cfg := newConfig(opts)

	r := &Resampler{up: up, down: down, quality: cfg.quality}
	if up == 1 && down == 1 {
		return r, nil
	}

	taps, err := designPrototype(up, down, cfg)
	if err != nil {
		return nil, err
	}
	r.taps = taps
	r.delay = (len(taps) - 1) / 2

	return r, nil
}

// NewForRates creates a resampler by approximating outRate/inRate as a ratio.
func NewForRates(inRate, outRate float64, opts ...Option) (*Resampler, error) {
	if !validRate(inRate) || !validRate(outRate) {
		return nil, fmt.Errorf("%w: %v -> %v", ErrInvalidRate, inRate, outRate)
	}

	cfg := newConfig(opts)
	up, down := approximateRatio(outRate/inRate, cfg.maxDen)

	return NewRational(up, down, opts...)
}

// Resample converts input using ratio up/down as a one-shot helper.
func Resample(input []float64, up, down int, opts ...Option) ([]float64, error) {
	r, err := NewRational(up, down, opts...)
	if err != nil {
		return nil, err
	}

	return r.Apply(input), nil
}

// ToRate converts input sampled at inRate to outRate.
func ToRate(input []float64, inRate, outRate float64, opts ...Option) ([]float64, error) {
	r, err := NewForRates(inRate, outRate, opts...)
	if err != nil {
		return nil, err
	}

	return r.Apply(input), nil
}

// Apply converts a complete signal. Samples outside the input are treated
// as zero.
func (r *Resampler) Apply(input []float64) []float64 {
	n := len(input)
	if n == 0 {
		return nil
	}

	if r.taps == nil {
		out := make([]float64, n)
		copy(out, input)
		return out
	}

	outLen := r.OutputLen(n)
	out := make([]float64, outLen)
	l := len(r.taps)

	for m := range out {
		// Position on the upsampled grid, shifted by the filter delay.
		t := m*r.down + r.delay

		lo := 0
		if a := t - l + 1; a > 0 {
			lo = (a + r.up - 1) / r.up
		}
		hi := min(t/r.up, n-1)

		var y float64
		for i := lo; i <= hi; i++ {
			y += r.taps[t-i*r.up] * input[i]
		}
		out[m] = y
	}

	return out
}

// OutputLen returns the number of samples Apply produces for n inputs.
func (r *Resampler) OutputLen(n int) int {
	if n <= 0 {
		return 0
	}
	return n * r.up / r.down
}

// Ratio returns reduced up/down conversion factors.
func (r *Resampler) Ratio() (up, down int) {
	return r.up, r.down
}

// Quality returns the configured quality mode.
func (r *Resampler) Quality() Quality {
	return r.quality
}

// Prototype returns a copy of the anti-aliasing filter taps on the
// upsampled grid. It is empty for a 1:1 ratio.
func (r *Resampler) Prototype() []float64 {
	return append([]float64(nil), r.taps...)
}

// designPrototype builds the odd-length low-pass prototype at up times the
// input rate, with DC gain up so every polyphase branch has unit gain.
func designPrototype(up, down int, cfg config) ([]float64, error) {
	nTaps := 2*(cfg.tapsPerPhase/2)*up + 1

	// Rates are expressed with the input rate as 1.
	upRate := float64(up)
	cutoff := 0.5 * math.Min(1, float64(up)/float64(down)) * cfg.cutoffScale

	k, err := fir.Design(nTaps, []float64{cutoff}, upRate,
		fir.WithWindow(window.TypeKaiser), fir.WithKaiserBeta(cfg.kaiserBeta))
	if err != nil {
		return nil, fmt.Errorf("resample: prototype design: %w", err)
	}

	taps := k.Coefficients()
	vecmath.ScaleBlockInPlace(taps, float64(up))

	return taps, nil
}

func validRate(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func approximateRatio(v float64, maxDen int) (num, den int) {
	if maxDen <= 0 {
		maxDen = 4096
	}

	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1, 1
	}

	p0, q0 := 1.0, 0.0
	p1, q1 := math.Floor(v), 1.0
	x := v

	for {
		frac := x - math.Floor(x)
		if frac < 1e-12 {
			break
		}

		x = 1 / frac
		a := math.Floor(x)

		p2 := a*p1 + p0
		q2 := a*q1 + q0
		if q2 > float64(maxDen) {
			break
		}

		p0, q0 = p1, q1
		p1, q1 = p2, q2
	}

	num = int(math.Round(p1))
	den = int(math.Round(q1))
	if num <= 0 || den <= 0 {
		return 1, 1
	}

	g := gcd(num, den)

	return num / g, den / g
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}

	for b != 0 {
		a, b = b, a%b
	}

	if a == 0 {
		return 1
	}

	return a
}
