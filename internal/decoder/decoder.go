package decoder

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/polimi-ispl/POLIPHONE/internal/types"

	resampler "github.com/tphakala/go-audio-resampler"
)

// AudioDecoder decodes one on-disk audio format.
type AudioDecoder interface {
	Decode(filePath string) (types.AudioFile, error)
	SupportedFormats() []string
}

// Registry maps file extensions to decoders.
type Registry struct {
	decoders map[string]AudioDecoder
}

// NewRegistry returns a registry with the supported decoders installed.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]AudioDecoder)}
	r.Register(&WAVDecoder{})
	r.Register(&FLACDecoder{})
	return r
}

// Register installs a decoder for each of its supported formats.
func (r *Registry) Register(d AudioDecoder) {
	for _, format := range d.SupportedFormats() {
		r.decoders[strings.ToLower(format)] = d
	}
}

// Get resolves the decoder for a file path by extension.
func (r *Registry) Get(filePath string) (AudioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == "" {
		return nil, fmt.Errorf("cannot determine audio format of %s", filePath)
	}
	d, ok := r.decoders[ext[1:]]
	if !ok {
		return nil, fmt.Errorf("unsupported audio format %q", ext[1:])
	}
	return d, nil
}

// DecodeFile decodes an audio file with the decoder matching its
// extension.
func (r *Registry) DecodeFile(filePath string) (types.AudioFile, error) {
	d, err := r.Get(filePath)
	if err != nil {
		return nil, err
	}
	return d.Decode(filePath)
}

// DecodeMono decodes a file, mixes it down to mono and resamples it to
// targetRate when the file rate differs.
func (r *Registry) DecodeMono(filePath string, targetRate int) ([]float64, error) {
	af, err := r.DecodeFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	defer af.Close()

	mono, err := af.MonoSamples()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	if af.SampleRate() == targetRate {
		return mono, nil
	}

	out, err := resampler.ResampleMono(mono, float64(af.SampleRate()), float64(targetRate), resampler.QualityHigh)
	if err != nil {
		return nil, fmt.Errorf("resample %s from %d to %d Hz: %w",
			filePath, af.SampleRate(), targetRate, err)
	}
	return out, nil
}

// mixdown averages interleaved samples into a single channel.
func mixdown(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
