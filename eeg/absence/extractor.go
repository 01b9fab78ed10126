package absence

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-absence/dsp/filter/fir"
	"github.com/cwbudde/algo-absence/dsp/wavelet"
)

// ErrEmptyEpoch is returned when either epoch has no samples.
var ErrEmptyEpoch = errors.New("absence: empty epoch")

// Extractor computes feature vectors. It is safe for concurrent use.
type Extractor struct {
	cfg     Config
	broad   *fir.Kernel
	narrow  *fir.Kernel
	wavelet *wavelet.Wavelet
}

// New validates cfg and designs the band-pass kernels.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w, err := wavelet.Lookup(cfg.Wavelet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	broad, err := designBand(cfg, cfg.BroadBand)
	if err != nil {
		return nil, err
	}

	narrow, err := designBand(cfg, cfg.NarrowBand)
	if err != nil {
		return nil, err
	}

	return &Extractor{cfg: cfg, broad: broad, narrow: narrow, wavelet: w}, nil
}

func designBand(cfg Config, b Band) (*fir.Kernel, error) {
	k, err := fir.Design(cfg.FilterTaps, []float64{b.Low, b.High}, cfg.SampleRate,
		fir.WithWindow(cfg.Window), fir.WithPassZero(cfg.PassZero))
	if err != nil {
		return nil, fmt.Errorf("%w: band %v: %w", ErrInvalidConfig, b, err)
	}
	return k, nil
}

// Config returns the configuration the extractor was built with.
func (e *Extractor) Config() Config { return e.cfg }

// BroadKernel returns the broad-band kernel.
func (e *Extractor) BroadKernel() *fir.Kernel { return e.broad }

// NarrowKernel returns the narrow-band kernel.
func (e *Extractor) NarrowKernel() *fir.Kernel { return e.narrow }

// Extract computes the feature vector of the epoch pair.
func (e *Extractor) Extract(current, next []float64) (Vector, error) {
	r, err := e.ExtractDetailed(current, next)
	if err != nil {
		return Vector{}, err
	}
	return r.Vector, nil
}

// ExtractRow computes the feature vector as a single-row matrix.
func (e *Extractor) ExtractRow(current, next []float64) ([][]float64, error) {
	v, err := e.Extract(current, next)
	if err != nil {
		return nil, err
	}
	return v.Row(), nil
}

// ExtractDetailed computes the feature vector and its diagnostics.
func (e *Extractor) ExtractDetailed(current, next []float64) (Result, error) {
	if len(current) == 0 || len(next) == 0 {
		return Result{}, ErrEmptyEpoch
	}

	broad, err := e.broad.Apply(current)
	if err != nil {
		return Result{}, fmt.Errorf("absence: broad band: %w", err)
	}

	narrow, err := e.narrow.Apply(current)
	if err != nil {
		return Result{}, fmt.Errorf("absence: narrow band: %w", err)
	}

	var r Result
	v := &r.Vector

	wf, err := waveletFeatures(current, e.wavelet, e.cfg.WaveletMode, e.cfg.WaveletLevel)
	if err != nil {
		return Result{}, err
	}
	copy(v[WaveletD5:BroadPower], wf[:])

	r.BroadPower, r.NarrowPower = bandPower(broad), bandPower(narrow)
	v[BroadPower], v[PowerRatio] = powerFeatures(r.BroadPower, r.NarrowPower)

	v[EpochCorrelation], v[BandCorrelation], err = correlationFeatures(current, next, broad, narrow)
	if err != nil {
		return Result{}, err
	}

	v[PhaseVariance], err = phaseVariance(current)
	if err != nil {
		return Result{}, err
	}

	d := mahalanobis(broad, narrow, e.cfg.ShortcutSingular)
	v[Distance] = d.feature
	r.CovarianceFallback = d.fallback
	r.MahalanobisDistance = d.distance

	return r, nil
}
