package decoder

import (
	"fmt"
	"os"
	"time"

	"github.com/polimi-ispl/POLIPHONE/internal/types"

	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC files.
type FLACDecoder struct{}

// FLACFile is a decoded FLAC recording.
type FLACFile struct {
	stream     *flac.Stream
	file       *os.File
	sampleRate int
	bitDepth   int
	channels   int
	duration   time.Duration
	samples    []float64
}

// SupportedFormats lists the extensions handled by this decoder.
func (d *FLACDecoder) SupportedFormats() []string {
	return []string{"flac"}
}

// Decode opens and validates a FLAC file.
func (d *FLACDecoder) Decode(filePath string) (types.AudioFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open FLAC file: %w", err)
	}

	stream, err := flac.New(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("parse FLAC file: %w", err)
	}

	info := stream.Info
	if info == nil {
		file.Close()
		return nil, fmt.Errorf("missing FLAC stream info: %s", filePath)
	}

	duration := time.Duration(float64(info.NSamples) /
		float64(info.SampleRate) * float64(time.Second))

	return &FLACFile{
		stream:     stream,
		file:       file,
		sampleRate: int(info.SampleRate),
		bitDepth:   int(info.BitsPerSample),
		channels:   int(info.NChannels),
		duration:   duration,
	}, nil
}

// Format returns the container format name.
func (f *FLACFile) Format() string { return "FLAC" }

// SampleRate returns the sample rate in Hz.
func (f *FLACFile) SampleRate() int { return f.sampleRate }

// BitDepth returns the bits per sample.
func (f *FLACFile) BitDepth() int { return f.bitDepth }

// Channels returns the channel count.
func (f *FLACFile) Channels() int { return f.channels }

// Duration returns the recording length.
func (f *FLACFile) Duration() time.Duration { return f.duration }

// Samples parses every frame and returns interleaved floats in [-1, 1).
func (f *FLACFile) Samples() ([]float64, error) {
	if f.samples != nil {
		return f.samples, nil
	}

	var all []float64
	maxVal := float64(int(1) << uint(f.bitDepth-1))

	for {
		frame, err := f.stream.ParseNext()
		if err != nil {
			break
		}
		for i := 0; i < len(frame.Subframes[0].Samples); i++ {
			for ch := 0; ch < f.channels; ch++ {
				all = append(all, float64(frame.Subframes[ch].Samples[i])/maxVal)
			}
		}
	}

	f.samples = all
	return all, nil
}

// MonoSamples returns the channel average of the interleaved samples.
func (f *FLACFile) MonoSamples() ([]float64, error) {
	samples, err := f.Samples()
	if err != nil {
		return nil, err
	}
	return mixdown(samples, f.channels), nil
}

// Close releases the underlying file.
func (f *FLACFile) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}
