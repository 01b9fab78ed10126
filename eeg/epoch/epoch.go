// Package epoch segments continuous signals into fixed-length, possibly
// overlapping windows and labels them from event intervals.
//
// Window starts advance in seconds by Duration*(1-Overlap/100) and a
// window is kept while its end lies inside the signal. Sample indices are
// truncated toward zero, so signals and labels of the same length always
// produce the same number of windows.
package epoch

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-absence/eeg/annotation"
)

// ErrInvalidOptions is returned for unusable segmentation settings.
var ErrInvalidOptions = errors.New("epoch: invalid options")

// Options controls segmentation and labelling.
type Options struct {
	// Duration of a window in seconds.
	Duration float64
	// Overlap between consecutive windows in percent, [0, 100).
	Overlap float64
	// Percentage of samples inside an event for a positive label, [0, 100].
	Percentage float64
}

// DefaultOptions returns 2 s windows with 50 % overlap and a 75 % label
// threshold.
func DefaultOptions() Options {
	return Options{Duration: 2, Overlap: 50, Percentage: 75}
}

func (o Options) validate(fs float64) error {
	switch {
	case !(fs > 0):
		return fmt.Errorf("%w: sample rate %v", ErrInvalidOptions, fs)
	case !(o.Duration > 0):
		return fmt.Errorf("%w: duration %v", ErrInvalidOptions, o.Duration)
	case !(o.Overlap >= 0 && o.Overlap < 100):
		return fmt.Errorf("%w: overlap %v%%", ErrInvalidOptions, o.Overlap)
	case !(o.Percentage >= 0 && o.Percentage <= 100):
		return fmt.Errorf("%w: percentage %v%%", ErrInvalidOptions, o.Percentage)
	}
	return nil
}

// Bounds returns the [start, end) sample ranges of the windows over a
// signal of n samples.
func Bounds(n int, fs float64, opts Options) ([][2]int, error) {
	if err := opts.validate(fs); err != nil {
		return nil, err
	}

	step := opts.Duration - opts.Overlap*opts.Duration/100
	var out [][2]int
	for t := 0.0; (t+opts.Duration)*fs <= float64(n); t += step {
		out = append(out, [2]int{int(t * fs), int((t + opts.Duration) * fs)})
	}
	return out, nil
}

// Split cuts x into windows. The windows share x's backing array.
func Split(x []float64, fs float64, opts Options) ([][]float64, error) {
	b, err := Bounds(len(x), fs, opts)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(b))
	for i, r := range b {
		out[i] = x[r[0]:r[1]:r[1]]
	}
	return out, nil
}

// Mask marks the samples covered by events in a signal of n samples.
func Mask(events []annotation.Event, n int, fs float64) []bool {
	mask := make([]bool, n)
	for _, e := range events {
		lo := max(int(e.Start*fs), 0)
		hi := min(int(e.End*fs), n)
		for i := lo; i < hi; i++ {
			mask[i] = true
		}
	}
	return mask
}

// Labels marks each window whose share of event samples reaches
// opts.Percentage of the window length.
func Labels(events []annotation.Event, n int, fs float64, opts Options) ([]bool, error) {
	b, err := Bounds(n, fs, opts)
	if err != nil {
		return nil, err
	}

	mask := Mask(events, n, fs)
	threshold := opts.Duration * fs * opts.Percentage / 100

	labels := make([]bool, len(b))
	for i, r := range b {
		var pos int
		for _, m := range mask[r[0]:r[1]] {
			if m {
				pos++
			}
		}
		labels[i] = float64(pos) >= threshold
	}
	return labels, nil
}

// Pair indexes a window and its successor.
type Pair struct {
	Current int
	Next    int
}

// Pairs returns (i, i+1) for i in [0, count-skip). skip must be at least 1
// so that every Next is a valid index.
func Pairs(count, skip int) []Pair {
	skip = max(skip, 1)
	if count-skip <= 0 {
		return nil
	}

	out := make([]Pair, count-skip)
	for i := range out {
		out[i] = Pair{Current: i, Next: i + 1}
	}
	return out
}
