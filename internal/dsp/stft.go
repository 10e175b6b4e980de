package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// STFTConfig holds the short-time Fourier transform parameters.
type STFTConfig struct {
	NFFT      int // FFT size, bins = NFFT/2 + 1
	HopLength int // samples between consecutive frames
	WinLength int // analysis window length, <= NFFT
}

// HammingWindow returns a periodic Hamming window of length n.
func HammingWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// STFT computes the magnitude spectrogram of sig, indexed [bin][frame]
// with NFFT/2+1 bins. Frames are centered: the signal is reflect-padded
// by NFFT/2 on both sides, so the frame count is 1 + len(sig)/HopLength.
// When WinLength < NFFT the Hamming window is zero-padded to the middle
// of the FFT frame.
func STFT(sig []float64, cfg STFTConfig) [][]float64 {
	bins := cfg.NFFT/2 + 1
	frames := 1 + len(sig)/cfg.HopLength
	padded := reflectPad(sig, cfg.NFFT/2)
	window := HammingWindow(cfg.WinLength)
	offset := (cfg.NFFT - cfg.WinLength) / 2

	mag := make([][]float64, bins)
	for b := range mag {
		mag[b] = make([]float64, frames)
	}

	frame := make([]float64, cfg.NFFT)
	for t := 0; t < frames; t++ {
		start := t * cfg.HopLength
		for i := range frame {
			frame[i] = 0
		}
		for i := 0; i < cfg.WinLength; i++ {
			if start+i < len(padded) {
				frame[offset+i] = padded[start+i] * window[i]
			}
		}
		spectrum := fft.FFTReal(frame)
		for b := 0; b < bins; b++ {
			mag[b][t] = cmplx.Abs(spectrum[b])
		}
	}
	return mag
}

// reflectPad mirrors pad samples of sig around each edge, numpy
// "reflect" style (the edge sample itself is not repeated).
func reflectPad(sig []float64, pad int) []float64 {
	n := len(sig)
	out := make([]float64, n+2*pad)
	copy(out[pad:], sig)
	for i := 0; i < pad; i++ {
		out[pad-1-i] = sig[reflectIndex(i+1, n)]
		out[pad+n+i] = sig[reflectIndex(n-2-i, n)]
	}
	return out
}

// reflectIndex folds an out-of-range index back into [0, n).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = ((i % period) + period) % period
	if i >= n {
		i = period - i
	}
	return i
}
