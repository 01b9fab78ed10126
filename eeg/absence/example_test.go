package absence_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-absence/eeg/absence"
)

func ExampleExtractor_Extract() {
	cfg := absence.DefaultConfig()
	cfg.ShortcutSingular = true

	e, err := absence.New(cfg)
	if err != nil {
		panic(err)
	}

	current := make([]float64, cfg.EpochLen())
	for i := range current {
		current[i] = math.Sin(2 * math.Pi * 10 * float64(i) / cfg.SampleRate)
	}

	v, err := e.Extract(current, current)
	if err != nil {
		panic(err)
	}

	fmt.Printf("%s=%.3f\n", absence.FeatureNames[absence.PhaseVariance], v[absence.PhaseVariance])
	fmt.Printf("%s=%.3f\n", absence.FeatureNames[absence.EpochCorrelation], v[absence.EpochCorrelation])
	fmt.Printf("%s=%.3f\n", absence.FeatureNames[absence.Distance], v[absence.Distance])
	// Output:
	// phase_variance=1.000
	// corr_epoch_next=11.314
	// distance=0.000
}
