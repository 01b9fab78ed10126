package absence

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-absence/dsp/wavelet"
	"github.com/cwbudde/algo-absence/dsp/window"
)

// ErrInvalidConfig is returned by [New] for unusable configurations.
var ErrInvalidConfig = errors.New("absence: invalid config")

// waveletLevels is the decomposition depth the vector layout is built on.
const waveletLevels = 5

// Band is a pass band in Hz.
type Band struct {
	Low  float64
	High float64
}

func (b Band) String() string { return fmt.Sprintf("%g-%g Hz", b.Low, b.High) }

// Config holds the engine constants.
type Config struct {
	// SampleRate of the epochs in Hz.
	SampleRate float64
	// EpochSeconds is the nominal epoch duration.
	EpochSeconds float64
	// FilterTaps is the length of both band-pass kernels.
	FilterTaps int
	// BroadBand and NarrowBand are the pass bands of the two kernels.
	BroadBand  Band
	NarrowBand Band
	// Window is the FIR design window.
	Window window.Type
	// PassZero designs the kernels with a pass band at DC. With two band
	// edges this turns each kernel into a band-stop filter.
	PassZero bool
	// Wavelet names the decomposition wavelet, e.g. "db4".
	Wavelet string
	// WaveletLevel is the decomposition depth. The vector layout needs 5.
	WaveletLevel int
	// WaveletMode is the signal extension used at epoch boundaries.
	WaveletMode wavelet.Mode
	// ShortcutSingular skips the LU factorization in the distance feature
	// when the outer-product matrix is rank-deficient by construction
	// (two or more samples). The result is unchanged.
	ShortcutSingular bool
}

// DefaultConfig returns the 128 Hz, 2 s configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:   128,
		EpochSeconds: 2,
		FilterTaps:   467,
		BroadBand:    Band{Low: 1, High: 30},
		NarrowBand:   Band{Low: 3, High: 12},
		Window:       window.TypeHamming,
		Wavelet:      "db4",
		WaveletLevel: waveletLevels,
		WaveletMode:  wavelet.ModeSymmetric,
	}
}

// EpochLen returns the nominal number of samples per epoch.
func (c Config) EpochLen() int {
	return int(c.SampleRate * c.EpochSeconds)
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	switch {
	case !(c.SampleRate > 0):
		return fmt.Errorf("%w: sample rate %v", ErrInvalidConfig, c.SampleRate)
	case !(c.EpochSeconds > 0):
		return fmt.Errorf("%w: epoch duration %v", ErrInvalidConfig, c.EpochSeconds)
	case c.FilterTaps < 1:
		return fmt.Errorf("%w: filter taps %d", ErrInvalidConfig, c.FilterTaps)
	case c.WaveletLevel != waveletLevels:
		return fmt.Errorf("%w: wavelet level %d, the feature layout needs %d", ErrInvalidConfig, c.WaveletLevel, waveletLevels)
	}

	nyq := c.SampleRate / 2
	for _, b := range []Band{c.BroadBand, c.NarrowBand} {
		if !(b.Low > 0 && b.Low < b.High && b.High < nyq) {
			return fmt.Errorf("%w: band %v outside (0, %g Hz)", ErrInvalidConfig, b, nyq)
		}
	}

	return nil
}
