// Package testutil holds deterministic signal generators and tolerance
// assertions shared by the package tests.
package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates amplitude*sin(2*pi*f*n/fs + phase).
func DeterministicSine(freqHz, sampleRate, amplitude, phase float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i)+phase)
	}
	return out
}

// DeterministicCosine generates amplitude*cos(2*pi*f*n/fs).
func DeterministicCosine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	return DeterministicSine(freqHz, sampleRate, amplitude, math.Pi/2, length)
}

// DeterministicNoise generates uniform white noise in [-amplitude, amplitude)
// with a fixed seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// EEGLike mixes a spike-wave-like 3 Hz rhythm, 10 Hz alpha and noise, which
// keeps every wavelet detail band populated.
func EEGLike(seed int64, sampleRate float64, length int) []float64 {
	out := DeterministicNoise(seed, 5, length)
	delta := DeterministicSine(3, sampleRate, 40, 0.3, length)
	alpha := DeterministicSine(10, sampleRate, 15, 1.1, length)
	for i := range out {
		out[i] += delta[i] + alpha[i]
	}
	return out
}

// Scale returns a copy of x multiplied by k.
func Scale(x []float64, k float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * k
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}
