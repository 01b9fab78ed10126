// Package montage selects channels by name and re-references them into
// bipolar derivations.
package montage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by channel lookup and re-referencing.
var (
	ErrChannelNotFound = errors.New("montage: channel not found")
	ErrLengthMismatch  = errors.New("montage: channel lengths differ")
)

// Pair is a bipolar derivation Positive - Negative.
type Pair struct {
	Positive string
	Negative string
}

func (p Pair) String() string { return p.Positive + " - " + p.Negative }

// EarChannels are the behind-the-ear electrodes, left then right.
var EarChannels = []string{"LiOorTop", "LiOorAchter", "ReOorTop", "ReOorAchter"}

// EarPairs is the behind-the-ear bipolar montage: left, right and the
// cross-head derivation.
var EarPairs = []Pair{
	{Positive: "LiOorTop", Negative: "LiOorAchter"},
	{Positive: "ReOorTop", Negative: "ReOorAchter"},
	{Positive: "LiOorAchter", Negative: "ReOorAchter"},
}

// Find returns, for each wanted name, the index of the first label that
// contains it, ignoring case.
func Find(labels, wanted []string) ([]int, error) {
	idx := make([]int, len(wanted))
	for w, name := range wanted {
		needle := strings.ToLower(name)
		idx[w] = -1
		for i, l := range labels {
			if strings.Contains(strings.ToLower(l), needle) {
				idx[w] = i
				break
			}
		}
		if idx[w] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, name)
		}
	}
	return idx, nil
}

// Bipolar computes one derivation per pair. labels name the rows of data
// and are matched exactly. It returns the derived signals and their labels.
func Bipolar(data [][]float64, labels []string, pairs []Pair) ([][]float64, []string, error) {
	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		if _, ok := pos[l]; !ok {
			pos[l] = i
		}
	}

	out := make([][]float64, 0, len(pairs))
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		a, ok := pos[p.Positive]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrChannelNotFound, p)
		}
		b, ok := pos[p.Negative]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrChannelNotFound, p)
		}
		if len(data[a]) != len(data[b]) {
			return nil, nil, fmt.Errorf("%w: %s (%d vs %d)", ErrLengthMismatch, p, len(data[a]), len(data[b]))
		}

		d := make([]float64, len(data[a]))
		neg := make([]float64, len(data[b]))
		vecmath.ScaleBlock(neg, data[b], -1)
		vecmath.AddBlock(d, data[a], neg)

		out = append(out, d)
		names = append(names, p.String())
	}

	return out, names, nil
}
