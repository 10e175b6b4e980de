package alignment

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		SampleRate:     1000,
		WindowDuration: 1,
		ShiftMin:       -50,
		ShiftMax:       50,
		GuardBand:      50,
	}
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	sig := make([]float64, n)
	for i := range sig {
		sig[i] = rng.NormFloat64()
	}
	return sig
}

func TestNMSE(t *testing.T) {
	sig := []float64{1, 2, 3, 4}
	ref := []float64{2, 2, 2, 2.5}

	got, err := NMSE(sig, ref)
	require.NoError(t, err)

	// mean((sig-ref)^2) / mean((ref-mean(ref))^2), computed by hand.
	num := (1.0 + 0 + 1 + 2.25) / 4
	den := (0.015625 + 0.015625 + 0.015625 + 0.140625)
	assert.InDelta(t, num/(den/4), got, 1e-12)
}

func TestNMSELengthMismatch(t *testing.T) {
	_, err := NMSE([]float64{1, 2}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = NMSE(nil, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestNMSEDegenerateReference(t *testing.T) {
	_, err := NMSE([]float64{1, 2, 3}, []float64{5, 5, 5})
	assert.ErrorIs(t, err, ErrDegenerateWindow)
}

func TestNMSEOffsetInvariance(t *testing.T) {
	sig := randomSignal(256, 1)
	ref := randomSignal(256, 2)

	base, err := NMSE(sig, ref)
	require.NoError(t, err)

	shiftedSig := make([]float64, len(sig))
	shiftedRef := make([]float64, len(ref))
	for i := range sig {
		shiftedSig[i] = sig[i] + 7.5
		shiftedRef[i] = ref[i] + 7.5
	}
	shifted, err := NMSE(shiftedSig, shiftedRef)
	require.NoError(t, err)

	assert.InDelta(t, base, shifted, 1e-9)
}

func TestErrorDB(t *testing.T) {
	db, clamped := ErrorDB(0.5, DefaultErrorFloorDB)
	assert.False(t, clamped)
	assert.InDelta(t, 10*math.Log10(0.5), db, 1e-12)

	db, clamped = ErrorDB(0, DefaultErrorFloorDB)
	assert.True(t, clamped)
	assert.Equal(t, DefaultErrorFloorDB, db)

	db, clamped = ErrorDB(-1, DefaultErrorFloorDB)
	assert.True(t, clamped)
	assert.Equal(t, DefaultErrorFloorDB, db)

	db, clamped = ErrorDB(1e-40, DefaultErrorFloorDB)
	assert.True(t, clamped)
	assert.Equal(t, DefaultErrorFloorDB, db)
}

func TestAnalyzeIdenticalSignals(t *testing.T) {
	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	sig := randomSignal(3000, 3)
	res, err := a.Analyze(sig, sig)
	require.NoError(t, err)

	require.Len(t, res.Windows, 3)
	for _, w := range res.Windows {
		assert.Equal(t, 0, w.BestShift)
		assert.True(t, w.Clamped)
		assert.Equal(t, DefaultErrorFloorDB, w.MinErrorDB)
	}
	assert.Equal(t, 0.0, res.Slope)
}

func TestAnalyzeRecoversInjectedDelay(t *testing.T) {
	const delay = 5
	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	ref := randomSignal(2000, 4)
	device := make([]float64, len(ref))
	for i := delay; i < len(ref); i++ {
		device[i] = ref[i-delay]
	}

	res, err := a.Analyze(ref, device)
	require.NoError(t, err)

	require.Len(t, res.Windows, 2)
	for _, w := range res.Windows {
		assert.Equal(t, -delay, w.BestShift)
	}
}

func TestAnalyzeDriftSlope(t *testing.T) {
	const windows = 5
	cfg := testConfig()
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	winLen := int(cfg.WindowDuration * float64(cfg.SampleRate))
	ref := randomSignal(windows*winLen, 5)

	// Device clock drifts one sample per window.
	device := make([]float64, len(ref))
	for w := 0; w < windows; w++ {
		for j := 0; j < winLen; j++ {
			src := w*winLen + j - w
			if src >= 0 && src < len(ref) {
				device[w*winLen+j] = ref[src]
			}
		}
	}

	res, err := a.Analyze(ref, device)
	require.NoError(t, err)
	require.Len(t, res.Windows, windows)

	assert.Equal(t, 0, res.Windows[0].BestShift)
	assert.Equal(t, -(windows - 1), res.Windows[windows-1].BestShift)
	assert.InDelta(t, -1.0, res.Slope, 1.0)
}

func TestAnalyzeMarginCrop(t *testing.T) {
	const margin = 3
	cfg := testConfig()
	cfg.Margin = margin
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	ref := randomSignal(2100, 6)
	res, err := a.Analyze(ref, ref)
	require.NoError(t, err)

	// Cropping device by a leading margin and reconstruction by a
	// trailing margin offsets identical signals by exactly margin.
	require.NotEmpty(t, res.Windows)
	for _, w := range res.Windows {
		assert.Equal(t, margin, w.BestShift)
	}
}

func TestAnalyzeMarginTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Margin = 100
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	_, err = a.Analyze(randomSignal(50, 7), randomSignal(50, 8))
	assert.Error(t, err)
}

func TestAnalyzeTooShort(t *testing.T) {
	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	_, err = a.Analyze(randomSignal(500, 9), randomSignal(500, 10))
	assert.Error(t, err)
}

func TestAnalyzeKeepCurves(t *testing.T) {
	cfg := testConfig()
	cfg.KeepCurves = true
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	recon := randomSignal(1000, 11)
	device := randomSignal(1000, 12)
	res, err := a.Analyze(recon, device)
	require.NoError(t, err)

	require.Len(t, res.Curves, 1)
	curve := res.Curves[0]
	require.Len(t, curve.Shifts, cfg.ShiftMax-cfg.ShiftMin)
	require.Len(t, curve.ValuesDB, cfg.ShiftMax-cfg.ShiftMin)

	// The curve minimum matches the recorded window result, and every
	// point is exactly 10*log10 of the raw NMSE of its slices.
	w := res.Windows[0]
	minDB := math.Inf(1)
	for i, db := range curve.ValuesDB {
		if db < minDB {
			minDB = db
			assert.GreaterOrEqual(t, db, DefaultErrorFloorDB)
		}
		shift := curve.Shifts[i]
		winLen := int(cfg.WindowDuration * float64(cfg.SampleRate))
		guard := cfg.GuardBand
		nmse, err := NMSE(
			recon[guard+shift:winLen-guard+shift],
			device[guard:winLen-guard],
		)
		require.NoError(t, err)
		assert.InDelta(t, 10*math.Log10(nmse), db, 1e-12)
	}
	assert.Equal(t, w.MinErrorDB, minDB)
}

func TestNewAnalyzerValidation(t *testing.T) {
	_, err := NewAnalyzer(Config{})
	assert.Error(t, err, "missing sample rate")

	cfg := testConfig()
	cfg.ShiftMin, cfg.ShiftMax = 10, 10
	_, err = NewAnalyzer(cfg)
	assert.Error(t, err, "empty shift range")

	cfg = testConfig()
	cfg.ShiftMax = cfg.GuardBand + 1
	_, err = NewAnalyzer(cfg)
	assert.Error(t, err, "shift range exceeds guard band")

	cfg = testConfig()
	cfg.WindowDuration = 0.05
	_, err = NewAnalyzer(cfg)
	assert.Error(t, err, "window shorter than guard bands")
}

func TestReconstructLength(t *testing.T) {
	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	ref := randomSignal(1234, 13)
	irSlice := randomSignal(64, 14)
	out := a.Reconstruct(ref, irSlice)
	assert.Len(t, out, len(ref))
}
