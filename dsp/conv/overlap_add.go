package conv

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// OverlapAdd implements FFT-based convolution using the overlap-add method.
// A convolver is bound to one kernel and may be reused across signals, but
// it owns scratch buffers and is not safe for concurrent use.
type OverlapAdd struct {
	kernelFFT []complex128

	kernelLen int
	blockSize int
	fftSize   int

	plan *algofft.Plan[complex128]

	scratch []complex128
}

// NewOverlapAdd creates an overlap-add convolver for kernel.
// If blockSize is <= 0 it is chosen from the kernel length.
func NewOverlapAdd(kernel []float64, blockSize int) (*OverlapAdd, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}

	if blockSize <= 0 {
		blockSize = max(nextPowerOf2(len(kernel)), 256)
	}

	fftSize := nextPowerOf2(blockSize + len(kernel) - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	oa := &OverlapAdd{
		kernelFFT: make([]complex128, fftSize),
		kernelLen: len(kernel),
		blockSize: blockSize,
		fftSize:   fftSize,
		plan:      plan,
		scratch:   make([]complex128, fftSize),
	}

	padded := make([]complex128, fftSize)
	for i, v := range kernel {
		padded[i] = complex(v, 0)
	}

	if err := plan.Forward(oa.kernelFFT, padded); err != nil {
		return nil, fmt.Errorf("conv: failed to compute kernel FFT: %w", err)
	}

	return oa, nil
}

// BlockSize returns the input block size.
func (oa *OverlapAdd) BlockSize() int { return oa.blockSize }

// FFTSize returns the FFT size used internally.
func (oa *OverlapAdd) FFTSize() int { return oa.fftSize }

// Process returns the full linear convolution of input with the kernel.
func (oa *OverlapAdd) Process(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, ErrEmptyInput
	}

	outputLen := len(input) + oa.kernelLen - 1
	output := make([]float64, outputLen)

	for start := 0; start < len(input); start += oa.blockSize {
		end := min(start+oa.blockSize, len(input))

		for i := range oa.scratch {
			oa.scratch[i] = 0
		}
		for i, v := range input[start:end] {
			oa.scratch[i] = complex(v, 0)
		}

		if err := oa.plan.Forward(oa.scratch, oa.scratch); err != nil {
			return nil, fmt.Errorf("conv: forward FFT failed: %w", err)
		}

		for i := range oa.scratch {
			oa.scratch[i] *= oa.kernelFFT[i]
		}

		if err := oa.plan.Inverse(oa.scratch, oa.scratch); err != nil {
			return nil, fmt.Errorf("conv: inverse FFT failed: %w", err)
		}

		n := end - start + oa.kernelLen - 1
		for i := 0; i < n && start+i < outputLen; i++ {
			output[start+i] += real(oa.scratch[i])
		}
	}

	return output, nil
}

// OverlapAddConvolve performs one-shot overlap-add convolution.
func OverlapAddConvolve(signal, kernel []float64) ([]float64, error) {
	oa, err := NewOverlapAdd(kernel, 0)
	if err != nil {
		return nil, err
	}
	return oa.Process(signal)
}
