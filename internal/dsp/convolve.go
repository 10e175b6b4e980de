package dsp

import (
	"github.com/mjibson/go-dsp/fft"
)

// ConvolveSame convolves sig with kernel in the frequency domain and
// returns the centre len(sig) samples of the full convolution (numpy
// "same" mode). Linear (not circular) convolution: both inputs are
// zero-padded to the next power of two covering the full output.
func ConvolveSame(sig, kernel []float64) []float64 {
	if len(sig) == 0 || len(kernel) == 0 {
		return make([]float64, len(sig))
	}

	full := len(sig) + len(kernel) - 1
	size := nextPowerOfTwo(full)

	a := make([]float64, size)
	copy(a, sig)
	b := make([]float64, size)
	copy(b, kernel)

	fa := fft.FFTReal(a)
	fb := fft.FFTReal(b)
	for i := range fa {
		fa[i] *= fb[i]
	}
	y := fft.IFFT(fa)

	start := (len(kernel) - 1) / 2
	out := make([]float64, len(sig))
	for i := range out {
		out[i] = real(y[start+i])
	}
	return out
}

// Roll circularly shifts x to the right by k samples; negative k shifts
// left. The input is not modified.
func Roll(x []float64, k int) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	k = ((k % n) + n) % n
	copy(out[k:], x[:n-k])
	copy(out[:k], x[n-k:])
	return out
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
