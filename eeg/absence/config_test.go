package absence

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-absence/dsp/wavelet"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.EpochLen() != 256 {
		t.Fatalf("EpochLen=%d, want 256", cfg.EpochLen())
	}

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.BroadKernel().Len() != 467 || e.NarrowKernel().Len() != 467 {
		t.Fatalf("kernel lengths %d/%d", e.BroadKernel().Len(), e.NarrowKernel().Len())
	}
	if g := e.BroadKernel().Magnitude(15.5); math.Abs(g-1) > 1e-12 {
		t.Fatalf("broad centre gain=%v", g)
	}
	if g := e.NarrowKernel().Magnitude(7.5); math.Abs(g-1) > 1e-12 {
		t.Fatalf("narrow centre gain=%v", g)
	}
}

func TestPassZeroBuildsBandStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PassZero = true

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g := e.BroadKernel().Magnitude(0); math.Abs(g-1) > 1e-12 {
		t.Fatalf("DC gain=%v, want 1", g)
	}
	if db := e.BroadKernel().MagnitudeDB(15.5); db > -20 {
		t.Fatalf("stop band=%.1f dB", db)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rate", func(c *Config) { c.SampleRate = 0 }},
		{"nan rate", func(c *Config) { c.SampleRate = math.NaN() }},
		{"zero epoch", func(c *Config) { c.EpochSeconds = 0 }},
		{"no taps", func(c *Config) { c.FilterTaps = 0 }},
		{"level", func(c *Config) { c.WaveletLevel = 4 }},
		{"band order", func(c *Config) { c.BroadBand = Band{Low: 30, High: 1} }},
		{"band nyquist", func(c *Config) { c.NarrowBand = Band{Low: 3, High: 64} }},
		{"band zero", func(c *Config) { c.NarrowBand = Band{Low: 0, High: 12} }},
		{"wavelet", func(c *Config) { c.Wavelet = "coif1" }},
		{"even taps pass zero", func(c *Config) { c.PassZero = true; c.FilterTaps = 466 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err=%v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestOtherWaveletsAccepted(t *testing.T) {
	for _, name := range []string{"db1", "db2", "db3", "haar"} {
		cfg := DefaultConfig()
		cfg.Wavelet = name
		cfg.WaveletMode = wavelet.ModePeriodic
		if _, err := New(cfg); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}
