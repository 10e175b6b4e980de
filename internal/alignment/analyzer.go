package alignment

import (
	"errors"
	"fmt"
	"math"

	"github.com/polimi-ispl/POLIPHONE/internal/dsp"

	"gonum.org/v1/gonum/stat"
)

// Alignment errors.
var (
	// ErrLengthMismatch reports an NMSE comparison between slices of
	// different lengths. The original pipeline silently scored such a
	// pair as a perfect match; here it is a hard failure.
	ErrLengthMismatch = errors.New("alignment: compared signals have different lengths")

	// ErrDegenerateWindow reports a device window with zero variance,
	// for which NMSE is undefined.
	ErrDegenerateWindow = errors.New("alignment: reference window has zero variance")
)

// DefaultErrorFloorDB is the clamp applied where the NMSE is zero or
// negative before the log conversion, instead of letting -Inf or NaN
// propagate into results.
const DefaultErrorFloorDB = -300.0

// Config holds the alignment-error search parameters. ShiftMin is
// inclusive and ShiftMax exclusive, matching the original search over
// [-200, 200). GuardBand is the edge trim that keeps every shifted
// slice inside its window.
type Config struct {
	SampleRate     int
	WindowDuration float64 // seconds per analysis window (default 5)
	Margin         int     // leading device samples / trailing reconstructed samples to drop
	ShiftMin       int     // default -200
	ShiftMax       int     // default +200
	GuardBand      int     // default 200
	ErrorFloorDB   float64 // default DefaultErrorFloorDB
	KeepCurves     bool    // retain the full per-window error curves
}

// WindowResult is the best alignment found for one analysis window.
type WindowResult struct {
	Index      int
	MinErrorDB float64
	BestShift  int
	Clamped    bool // the minimum hit the error floor
}

// ErrorCurve maps every candidate shift of one window to its error in
// dB.
type ErrorCurve struct {
	Shifts   []int
	ValuesDB []float64
}

// Result is the ordered per-window alignment outcome plus the drift
// slope, the estimated clock divergence in samples per window.
type Result struct {
	Windows     []WindowResult
	Curves      []ErrorCurve // non-nil only with Config.KeepCurves
	Slope       float64
	MeanErrorDB float64
}

// Analyzer slides a shift search over windowed signal pairs.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer validates cfg, fills defaults and returns an analyzer.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("alignment: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.WindowDuration == 0 {
		cfg.WindowDuration = 5
	}
	if cfg.WindowDuration < 0 {
		return nil, fmt.Errorf("alignment: window duration must be positive, got %g", cfg.WindowDuration)
	}
	if cfg.Margin < 0 {
		return nil, fmt.Errorf("alignment: margin must be >= 0, got %d", cfg.Margin)
	}
	if cfg.ShiftMin == 0 && cfg.ShiftMax == 0 {
		cfg.ShiftMin, cfg.ShiftMax = -200, 200
	}
	if cfg.GuardBand == 0 {
		cfg.GuardBand = 200
	}
	if cfg.ErrorFloorDB == 0 {
		cfg.ErrorFloorDB = DefaultErrorFloorDB
	}
	if cfg.ShiftMin >= cfg.ShiftMax {
		return nil, fmt.Errorf("alignment: empty shift range [%d, %d)", cfg.ShiftMin, cfg.ShiftMax)
	}
	if cfg.ShiftMin < -cfg.GuardBand || cfg.ShiftMax > cfg.GuardBand {
		return nil, fmt.Errorf("alignment: shift range [%d, %d) exceeds guard band %d",
			cfg.ShiftMin, cfg.ShiftMax, cfg.GuardBand)
	}
	winLen := int(cfg.WindowDuration * float64(cfg.SampleRate))
	if winLen <= 2*cfg.GuardBand {
		return nil, fmt.Errorf("alignment: window of %d samples leaves nothing after a %d-sample guard band",
			winLen, cfg.GuardBand)
	}
	return &Analyzer{cfg: cfg}, nil
}

// Reconstruct convolves the reference speech with the linear IR slice
// ("same" mode: output length equals the reference length).
func (a *Analyzer) Reconstruct(reference, irSlice []float64) []float64 {
	return dsp.ConvolveSame(reference, irSlice)
}

// Analyze partitions the reconstructed and device-recorded signals into
// consecutive windows and, per window, searches the shift range for the
// minimum NMSE between the shift-adjusted reconstructed slice and the
// guard-trimmed device slice. Windows run in order because the drift
// slope depends on the first and last best shifts.
func (a *Analyzer) Analyze(reconstructed, device []float64) (*Result, error) {
	devMod, reconMod, err := a.crop(device, reconstructed)
	if err != nil {
		return nil, err
	}

	winLen := int(a.cfg.WindowDuration * float64(a.cfg.SampleRate))
	n := len(devMod)
	if len(reconMod) < n {
		n = len(reconMod)
	}
	numWindows := n / winLen
	if numWindows == 0 {
		return nil, fmt.Errorf("alignment: signals shorter than one %d-sample analysis window", winLen)
	}

	guard := a.cfg.GuardBand
	res := &Result{Windows: make([]WindowResult, 0, numWindows)}
	if a.cfg.KeepCurves {
		res.Curves = make([]ErrorCurve, 0, numWindows)
	}

	for w := 0; w < numWindows; w++ {
		devWin := devMod[w*winLen : (w+1)*winLen]
		reconWin := reconMod[w*winLen : (w+1)*winLen]
		devSlice := devWin[guard : winLen-guard]

		best := WindowResult{Index: w, MinErrorDB: math.Inf(1)}
		var curve ErrorCurve
		if a.cfg.KeepCurves {
			curve.Shifts = make([]int, 0, a.cfg.ShiftMax-a.cfg.ShiftMin)
			curve.ValuesDB = make([]float64, 0, a.cfg.ShiftMax-a.cfg.ShiftMin)
		}

		for shift := a.cfg.ShiftMin; shift < a.cfg.ShiftMax; shift++ {
			seg := reconWin[guard+shift : winLen-guard+shift]
			nmse, err := NMSE(seg, devSlice)
			if err != nil {
				return nil, fmt.Errorf("window %d, shift %d: %w", w, shift, err)
			}
			db, clamped := ErrorDB(nmse, a.cfg.ErrorFloorDB)
			if a.cfg.KeepCurves {
				curve.Shifts = append(curve.Shifts, shift)
				curve.ValuesDB = append(curve.ValuesDB, db)
			}
			if db < best.MinErrorDB {
				best.MinErrorDB = db
				best.BestShift = shift
				best.Clamped = clamped
			}
		}

		res.Windows = append(res.Windows, best)
		if a.cfg.KeepCurves {
			res.Curves = append(res.Curves, curve)
		}
	}

	first := res.Windows[0].BestShift
	last := res.Windows[numWindows-1].BestShift
	res.Slope = float64(last-first) / float64(numWindows)

	errs := make([]float64, numWindows)
	for i, wr := range res.Windows {
		errs[i] = wr.MinErrorDB
	}
	res.MeanErrorDB = stat.Mean(errs, nil)

	return res, nil
}

// crop aligns both signals to a common frame of reference: the device
// recording drops its first Margin samples, the reconstruction its last
// Margin. A margin of zero leaves both untouched.
func (a *Analyzer) crop(device, reconstructed []float64) (devMod, reconMod []float64, err error) {
	m := a.cfg.Margin
	if m == 0 {
		return device, reconstructed, nil
	}
	if m >= len(device) || m >= len(reconstructed) {
		return nil, nil, fmt.Errorf("alignment: margin %d consumes the whole signal (device %d, reconstructed %d samples)",
			m, len(device), len(reconstructed))
	}
	return device[m:], reconstructed[:len(reconstructed)-m], nil
}

// NMSE returns the normalized mean squared error between sig and ref:
// mean((sig-ref)^2) / mean((ref-mean(ref))^2).
func NMSE(sig, ref []float64) (float64, error) {
	if len(sig) != len(ref) {
		return 0, ErrLengthMismatch
	}
	if len(sig) == 0 {
		return 0, ErrLengthMismatch
	}

	refMean := stat.Mean(ref, nil)
	var num, den float64
	for i := range sig {
		d := sig[i] - ref[i]
		num += d * d
		e := ref[i] - refMean
		den += e * e
	}
	if den == 0 {
		return 0, ErrDegenerateWindow
	}
	return num / den, nil
}

// ErrorDB converts an NMSE value to decibels, 10*log10(nmse). Values
// at or below zero, and results under the floor, clamp to floorDB with
// the clamped flag set.
func ErrorDB(nmse, floorDB float64) (db float64, clamped bool) {
	if nmse <= 0 {
		return floorDB, true
	}
	db = 10 * math.Log10(nmse)
	if db < floorDB {
		return floorDB, true
	}
	return db, false
}
