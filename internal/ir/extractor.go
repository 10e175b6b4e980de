package ir

import (
	"errors"
	"fmt"
	"os"

	"github.com/polimi-ispl/POLIPHONE/internal/dsp"

	"github.com/mjibson/go-dsp/fft"
	"github.com/sbinet/npyio"
)

// ErrChannelMismatch reports a sweep whose channel count does not match
// the inverse-sweep spectrum. A mono sweep is broadcast across spectrum
// channels instead.
var ErrChannelMismatch = errors.New("ir: sweep and inverse sweep channel counts differ")

// SliceConfig names the fixed sample window that contains the genuine
// linear IR. The offsets are a calibration constant of the sweep and
// FFT-size design, not derived from the data.
type SliceConfig struct {
	Start int
	End   int
}

// DefaultSlice is the calibration window for the POLIPHONE sweep design
// (65536-point inverse sweep FFT).
var DefaultSlice = SliceConfig{Start: 3000, End: 6000}

// ImpulseResponse is the deconvolved, centred impulse response split at
// its midpoint. Linear holds the causal (second) half used downstream;
// NonLinear holds the harmonic-distortion (first) half.
type ImpulseResponse struct {
	Linear    [][]float64 // [channel][FFTSize/2]
	NonLinear [][]float64 // [channel][FFTSize/2]
}

// Extractor deconvolves recorded sweeps against an inverse-sweep
// spectrum. It is safe for concurrent use: the spectrum is read-only.
type Extractor struct {
	inv *InverseSweep
}

// NewExtractor returns an extractor for the given inverse sweep.
func NewExtractor(inv *InverseSweep) *Extractor {
	return &Extractor{inv: inv}
}

// Extract computes the per-channel impulse response of a recorded sweep
// by frequency-domain convolution with the inverse sweep: zero-pad (or
// truncate) each channel to the FFT size, multiply its FFT with the
// inverse spectrum, inverse-transform, take the real part, roll by half
// the FFT size to centre the peak and split at the midpoint.
func (e *Extractor) Extract(sweep [][]float64) (*ImpulseResponse, error) {
	if len(sweep) == 0 || len(sweep[0]) == 0 {
		return nil, fmt.Errorf("ir: empty sweep signal")
	}
	if len(sweep) != e.inv.Channels && len(sweep) != 1 {
		return nil, fmt.Errorf("%w: sweep has %d, inverse sweep has %d",
			ErrChannelMismatch, len(sweep), e.inv.Channels)
	}

	fftSize := e.inv.FFTSize
	half := fftSize / 2
	out := &ImpulseResponse{
		Linear:    make([][]float64, e.inv.Channels),
		NonLinear: make([][]float64, e.inv.Channels),
	}

	for c := 0; c < e.inv.Channels; c++ {
		src := sweep[0]
		if len(sweep) > 1 {
			src = sweep[c]
		}

		padded := make([]float64, fftSize)
		copy(padded, src) // truncates when the sweep is longer

		spectrum := fft.FFTReal(padded)
		for k := range spectrum {
			spectrum[k] *= e.inv.Spectrum[c][k]
		}

		raw := fft.IFFT(spectrum)
		impulse := make([]float64, fftSize)
		for i, v := range raw {
			impulse[i] = real(v)
		}

		centred := dsp.Roll(impulse, half)
		out.NonLinear[c] = centred[:half]
		out.Linear[c] = centred[half:]
	}
	return out, nil
}

// ExtractMono extracts the impulse response of a single-channel sweep.
func (e *Extractor) ExtractMono(sweep []float64) (*ImpulseResponse, error) {
	return e.Extract([][]float64{sweep})
}

// LinearSlice returns the calibration window of a channel's linear IR.
func (r *ImpulseResponse) LinearSlice(channel int, s SliceConfig) ([]float64, error) {
	if channel < 0 || channel >= len(r.Linear) {
		return nil, fmt.Errorf("ir: channel %d out of range (have %d)", channel, len(r.Linear))
	}
	lin := r.Linear[channel]
	if s.Start < 0 || s.End > len(lin) || s.Start >= s.End {
		return nil, fmt.Errorf("ir: slice [%d:%d] out of range for linear IR of %d samples",
			s.Start, s.End, len(lin))
	}
	return lin[s.Start:s.End], nil
}

// SaveIRSlice persists an extracted IR slice as a NumPy .npy array.
func SaveIRSlice(path string, slice []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create IR file: %w", err)
	}
	defer f.Close()

	if err := npyio.Write(f, slice); err != nil {
		return fmt.Errorf("write IR file %s: %w", path, err)
	}
	return nil
}
