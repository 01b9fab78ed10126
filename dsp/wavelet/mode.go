package wavelet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned by [ParseMode] for unsupported names.
var ErrUnknownMode = errors.New("wavelet: unknown extension mode")

// Mode selects how a signal is extended past its boundaries.
type Mode int

const (
	// ModeSymmetric mirrors the signal including the edge sample.
	ModeSymmetric Mode = iota
	// ModeZero pads with zeros.
	ModeZero
	// ModePeriodic wraps the signal around.
	ModePeriodic
)

func (m Mode) String() string {
	switch m {
	case ModeSymmetric:
		return "symmetric"
	case ModeZero:
		return "zero"
	case ModePeriodic:
		return "periodic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode resolves a mode name.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "symmetric", "sym":
		return ModeSymmetric, nil
	case "zero", "zpd":
		return ModeZero, nil
	case "periodic", "ppd":
		return ModePeriodic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// extend returns x padded with pad samples on both sides.
func extend(x []float64, pad int, mode Mode) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	copy(out[pad:], x)

	for i := range pad {
		left := -pad + i
		right := n + i
		out[i] = sampleAt(x, left, mode)
		out[pad+n+i] = sampleAt(x, right, mode)
	}

	return out
}

func sampleAt(x []float64, idx int, mode Mode) float64 {
	n := len(x)
	switch mode {
	case ModeZero:
		if idx < 0 || idx >= n {
			return 0
		}
		return x[idx]
	case ModePeriodic:
		return x[mod(idx, n)]
	default:
		p := mod(idx, 2*n)
		if p >= n {
			p = 2*n - 1 - p
		}
		return x[p]
	}
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
