package channelresponse

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/polimi-ispl/POLIPHONE/internal/dsp"
)

// logFloor keeps log10 defined on empty bins.
const logFloor = 1e-9

// Config holds the channel-response extraction parameters. Zero-valued
// fields are filled with the POLIPHONE defaults by NewExtractor.
type Config struct {
	WindowDuration  float64       // sliding window duration in seconds (default 4.0)
	OverlapFraction float64       // overlap between windows, as a fraction of one second (default 0.2)
	Threshold       float64       // log-spectrogram values above this become missing (default 0)
	SampleRate      int           // analysis rate in Hz (default 16000)
	NFFT            int           // default 512
	HopLength       int           // default 256
	WinLength       int           // default 512
	RMSLevel        float64       // normalization target in dB (default 0)
	Preemphasis     float64       // pre-emphasis coefficient (default 0.97)
	Concurrency     int           // parallel files in a batch (default NumCPU)
	FileTimeout     time.Duration // per-file processing bound, 0 disables
	Quiet           bool          // suppress the progress bar
}

func (c Config) withDefaults() Config {
	if c.WindowDuration == 0 {
		c.WindowDuration = 4.0
	}
	if c.OverlapFraction == 0 {
		c.OverlapFraction = 0.2
	}
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.NFFT == 0 {
		c.NFFT = 512
	}
	if c.HopLength == 0 {
		c.HopLength = 256
	}
	if c.WinLength == 0 {
		c.WinLength = c.NFFT
	}
	if c.Preemphasis == 0 {
		c.Preemphasis = dsp.DefaultPreemphasis
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	return c
}

// Response is the time-average of one window's thresholded
// log-magnitude spectrogram, one value per frequency bin. A bin whose
// every frame exceeded the threshold has no average: Defined is false
// and the value must not be read. Persistence encodes such bins as NaN
// for NumPy consumers.
type Response struct {
	Values  []float64
	Defined []bool
}

// windowGrid is the sliding-window geometry of a signal: window length,
// step and the number of full windows (trailing partial dropped).
func windowGrid(sigLen int, cfg Config) (windowSamples, step, numWindows int, err error) {
	windowSamples = int(cfg.WindowDuration * float64(cfg.SampleRate))
	overlapSamples := int(cfg.OverlapFraction * float64(cfg.SampleRate))
	step = windowSamples - overlapSamples
	if step <= 0 {
		return 0, 0, 0, fmt.Errorf("channelresponse: overlap of %d samples swallows the %d-sample window",
			overlapSamples, windowSamples)
	}
	numWindows = (sigLen - overlapSamples) / step
	if numWindows < 0 {
		numWindows = 0
	}
	return windowSamples, step, numWindows, nil
}

// ComputeResponses normalizes and pre-emphasizes sig, then produces one
// Response per full sliding window. The context is checked between
// windows so a per-file deadline can stop a pathological input.
func ComputeResponses(ctx context.Context, sig []float64, cfg Config) ([]Response, error) {
	cfg = cfg.withDefaults()

	norm, err := dsp.Normalize(sig, cfg.RMSLevel)
	if err != nil {
		return nil, err
	}
	emph := dsp.Preemphasis(norm, cfg.Preemphasis)

	windowSamples, step, numWindows, err := windowGrid(len(emph), cfg)
	if err != nil {
		return nil, err
	}

	responses := make([]Response, 0, numWindows)
	for w := 0; w < numWindows; w++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := w * step
		responses = append(responses, computeWindow(emph[start:start+windowSamples], cfg))
	}
	return responses, nil
}

// computeWindow averages one window's log spectrogram over time,
// per frequency bin, ignoring every cell above the threshold.
func computeWindow(segment []float64, cfg Config) Response {
	mag := dsp.STFT(segment, dsp.STFTConfig{
		NFFT:      cfg.NFFT,
		HopLength: cfg.HopLength,
		WinLength: cfg.WinLength,
	})

	resp := Response{
		Values:  make([]float64, len(mag)),
		Defined: make([]bool, len(mag)),
	}
	for b := range mag {
		sum, count := 0.0, 0
		for _, m := range mag[b] {
			v := 20 * math.Log10(logFloor+m)
			if v > cfg.Threshold {
				continue
			}
			sum += v
			count++
		}
		if count > 0 {
			resp.Values[b] = sum / float64(count)
			resp.Defined[b] = true
		}
	}
	return resp
}
