package decoder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesByExtension(t *testing.T) {
	r := NewRegistry()

	d, err := r.Get("/data/device/sweep.wav")
	require.NoError(t, err)
	assert.IsType(t, &WAVDecoder{}, d)

	d, err = r.Get("/data/device/speech.FLAC")
	require.NoError(t, err)
	assert.IsType(t, &FLACDecoder{}, d)

	_, err = r.Get("/data/device/speech.mp3")
	assert.Error(t, err)

	_, err = r.Get("/data/device/noext")
	assert.Error(t, err)
}

func TestMixdown(t *testing.T) {
	interleaved := []float64{1, 0, 0.5, 0.5, -1, 1}
	mono := mixdown(interleaved, 2)
	assert.Equal(t, []float64{0.5, 0.5, 0}, mono)

	// Mono input passes through untouched.
	assert.Equal(t, []float64{0.1, 0.2}, mixdown([]float64{0.1, 0.2}, 1))
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, []int{0, 8192, 16384, -16384, -8192, 0})

	r := NewRegistry()
	af, err := r.DecodeFile(path)
	require.NoError(t, err)
	defer af.Close()

	assert.Equal(t, "WAV", af.Format())
	assert.Equal(t, 16000, af.SampleRate())
	assert.Equal(t, 16, af.BitDepth())
	assert.Equal(t, 1, af.Channels())

	samples, err := af.Samples()
	require.NoError(t, err)
	require.Len(t, samples, 6)
	assert.InDelta(t, 0.25, samples[1], 1e-9)
	assert.InDelta(t, 0.5, samples[2], 1e-9)
	assert.InDelta(t, -0.5, samples[3], 1e-9)
}

func TestDecodeMonoKeepsNativeRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, []int{100, 200, 300, 400})

	r := NewRegistry()
	mono, err := r.DecodeMono(path, 16000)
	require.NoError(t, err)
	assert.Len(t, mono, 4)
}

func TestDecodeMonoMissingFile(t *testing.T) {
	r := NewRegistry()
	_, err := r.DecodeMono("/no/such/file.wav", 16000)
	assert.Error(t, err)
}

func writeTestWAV(t *testing.T, path string, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}
