package dsp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrDegenerateSignal reports an empty or zero-energy signal. RMS
// normalization divides by the signal energy, so silent audio must be
// rejected instead of producing NaN samples.
var ErrDegenerateSignal = errors.New("dsp: degenerate signal (empty or zero energy)")

// DefaultPreemphasis is the standard first-order pre-emphasis coefficient
// for speech analysis.
const DefaultPreemphasis = 0.97

// Normalize scales sig so that its RMS amplitude equals rmsLevel,
// expressed in dB. The linear target is r = 10^(level/10) and every
// sample is multiplied by a = sqrt(N*r^2 / sum(x^2)). The input is not
// modified.
func Normalize(sig []float64, rmsLevel float64) ([]float64, error) {
	if len(sig) == 0 {
		return nil, ErrDegenerateSignal
	}
	energy := floats.Dot(sig, sig)
	if energy == 0 {
		return nil, ErrDegenerateSignal
	}

	r := math.Pow(10, rmsLevel/10)
	a := math.Sqrt(float64(len(sig)) * r * r / energy)

	out := make([]float64, len(sig))
	copy(out, sig)
	floats.Scale(a, out)
	return out, nil
}

// Preemphasis applies the first-order high-pass y[n] = x[n] - coef*x[n-1]
// with y[0] = x[0], flattening the spectral tilt before spectral analysis.
func Preemphasis(sig []float64, coef float64) []float64 {
	out := make([]float64, len(sig))
	if len(sig) == 0 {
		return out
	}
	out[0] = sig[0]
	for i := 1; i < len(sig); i++ {
		out[i] = sig[i] - coef*sig[i-1]
	}
	return out
}

// RMS returns the root-mean-square amplitude of sig, or 0 for an empty
// signal.
func RMS(sig []float64) float64 {
	if len(sig) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(sig, sig) / float64(len(sig)))
}
