package decoder

import (
	"fmt"
	"os"
	"time"

	"github.com/polimi-ispl/POLIPHONE/internal/types"

	"github.com/go-audio/wav"
)

// WAVDecoder decodes PCM WAV files.
type WAVDecoder struct{}

// WAVFile is a decoded WAV recording.
type WAVFile struct {
	decoder    *wav.Decoder
	file       *os.File
	sampleRate int
	bitDepth   int
	channels   int
	duration   time.Duration
	samples    []float64
}

// SupportedFormats lists the extensions handled by this decoder.
func (d *WAVDecoder) SupportedFormats() []string {
	return []string{"wav"}
}

// Decode opens and validates a WAV file.
func (d *WAVDecoder) Decode(filePath string) (types.AudioFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open WAV file: %w", err)
	}

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", filePath)
	}

	duration := time.Duration(float64(dec.PCMLen()) /
		float64(dec.SampleRate) * float64(time.Second))

	return &WAVFile{
		decoder:    dec,
		file:       file,
		sampleRate: int(dec.SampleRate),
		bitDepth:   int(dec.BitDepth),
		channels:   int(dec.NumChans),
		duration:   duration,
	}, nil
}

// Format returns the container format name.
func (w *WAVFile) Format() string { return "WAV" }

// SampleRate returns the sample rate in Hz.
func (w *WAVFile) SampleRate() int { return w.sampleRate }

// BitDepth returns the PCM bit depth.
func (w *WAVFile) BitDepth() int { return w.bitDepth }

// Channels returns the channel count.
func (w *WAVFile) Channels() int { return w.channels }

// Duration returns the recording length.
func (w *WAVFile) Duration() time.Duration { return w.duration }

// Samples reads the full PCM stream as interleaved floats in [-1, 1).
func (w *WAVFile) Samples() ([]float64, error) {
	if w.samples != nil {
		return w.samples, nil
	}

	buf, err := w.decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM buffer: %w", err)
	}

	maxVal := float64(int(1) << uint(w.bitDepth-1))
	samples := make([]float64, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float64(s) / maxVal
	}

	w.samples = samples
	return samples, nil
}

// MonoSamples returns the channel average of the interleaved samples.
func (w *WAVFile) MonoSamples() ([]float64, error) {
	samples, err := w.Samples()
	if err != nil {
		return nil, err
	}
	return mixdown(samples, w.channels), nil
}

// Close releases the underlying file.
func (w *WAVFile) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
