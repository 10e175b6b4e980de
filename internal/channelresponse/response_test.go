package channelresponse

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/polimi-ispl/POLIPHONE/internal/dsp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineSignal(freq float64, fs, n int) []float64 {
	sig := make([]float64, n)
	for i := range sig {
		sig[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(fs))
	}
	return sig
}

func TestWindowGridFormula(t *testing.T) {
	cfg := Config{}.withDefaults()

	// 10 s at 16 kHz, 4 s windows, 0.2 s overlap:
	// step = 64000-3200 = 60800, windows = (160000-3200)/60800 = 2.
	windowSamples, step, n, err := windowGrid(160000, cfg)
	require.NoError(t, err)
	assert.Equal(t, 64000, windowSamples)
	assert.Equal(t, 60800, step)
	assert.Equal(t, 2, n)

	// Shorter than one window: zero windows, no error.
	_, _, n, err = windowGrid(1000, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWindowGridRejectsSwallowedWindow(t *testing.T) {
	cfg := Config{WindowDuration: 0.1, OverlapFraction: 0.2}.withDefaults()
	_, _, _, err := windowGrid(160000, cfg)
	assert.Error(t, err)
}

func TestComputeResponsesSine(t *testing.T) {
	const fs = 16000
	sig := sineSignal(1000, fs, 10*fs)

	responses, err := ComputeResponses(context.Background(), sig, Config{})
	require.NoError(t, err)
	require.Len(t, responses, 2)

	peakBin := int(math.Round(1000.0 * 512 / fs)) // 32
	for _, resp := range responses {
		require.Len(t, resp.Values, 512/2+1)
		require.Len(t, resp.Defined, 512/2+1)

		// With threshold 0 the tone's main lobe exceeds the threshold
		// in every frame, so those bins carry no average at all.
		assert.False(t, resp.Defined[peakBin])

		// Bins far from the tone stay near the log floor and survive.
		assert.True(t, resp.Defined[10])
		assert.True(t, resp.Defined[200])
	}
}

func TestComputeResponsesHighThresholdPeak(t *testing.T) {
	const fs = 16000
	sig := sineSignal(1000, fs, 10*fs)

	responses, err := ComputeResponses(context.Background(), sig, Config{Threshold: 1000})
	require.NoError(t, err)
	require.NotEmpty(t, responses)

	resp := responses[0]
	best := 0
	for b := range resp.Values {
		require.True(t, resp.Defined[b])
		if resp.Values[b] > resp.Values[best] {
			best = b
		}
	}
	assert.Equal(t, int(math.Round(1000.0*512/fs)), best)
}

func TestComputeResponsesDegenerateSignal(t *testing.T) {
	_, err := ComputeResponses(context.Background(), make([]float64, 160000), Config{})
	assert.ErrorIs(t, err, dsp.ErrDegenerateSignal)
}

func TestComputeResponsesShortSignal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sig := make([]float64, 100)
	for i := range sig {
		sig[i] = rng.NormFloat64()
	}

	responses, err := ComputeResponses(context.Background(), sig, Config{})
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestComputeResponsesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sig := sineSignal(440, 16000, 160000)
	_, err := ComputeResponses(ctx, sig, Config{})
	assert.ErrorIs(t, err, context.Canceled)
}
