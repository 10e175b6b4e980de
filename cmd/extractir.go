package cmd

import (
	"fmt"

	"github.com/polimi-ispl/POLIPHONE/internal/alignment"
	"github.com/polimi-ispl/POLIPHONE/internal/decoder"
	"github.com/polimi-ispl/POLIPHONE/internal/ir"

	"github.com/spf13/cobra"
)

var (
	irInvSweepPath   string
	irSweepPath      string
	irOriginalPath   string
	irDevicePath     string
	irSampleRate     int
	irMargin         int
	irWindowDuration float64
	irSliceStart     int
	irSliceEnd       int
	irShiftMin       int
	irShiftMax       int
	irGuardBand      int
	irOutPath        string
	irPlotPath       string
	irQuiet          bool
)

var extractIRCmd = &cobra.Command{
	Use:   "extract-ir",
	Short: "Extract a device impulse response and analyze speech alignment error",
	Long: `extract-ir deconvolves a recorded logarithmic sweep against a
precomputed inverse-sweep spectrum ("invsweepfft"), convolves the
reference speech with the calibrated linear IR slice and searches a
shift range per analysis window for the minimum NMSE against the
device-recorded speech, reporting the per-window error, best shift and
the clock-drift slope.`,
	RunE: runExtractIR,
}

func init() {
	f := extractIRCmd.Flags()
	f.StringVar(&irInvSweepPath, "invsweep", "", "inverse-sweep spectrum file (.npy or .npz with an invsweepfft array)")
	f.StringVar(&irSweepPath, "sweep", "", "device-recorded sweep audio file")
	f.StringVar(&irOriginalPath, "original", "", "reference (clean) speech audio file")
	f.StringVar(&irDevicePath, "device", "", "device-recorded speech audio file")
	f.IntVar(&irSampleRate, "sample-rate", 16000, "analysis sample rate in Hz")
	f.IntVar(&irMargin, "margin", 0, "crop margin in samples between device and reconstructed speech")
	f.Float64Var(&irWindowDuration, "window-duration", 5, "alignment analysis window duration in seconds")
	f.IntVar(&irSliceStart, "ir-slice-start", ir.DefaultSlice.Start, "first sample of the calibrated linear IR window")
	f.IntVar(&irSliceEnd, "ir-slice-end", ir.DefaultSlice.End, "one past the last sample of the calibrated linear IR window")
	f.IntVar(&irShiftMin, "shift-min", -200, "inclusive lower bound of the shift search range")
	f.IntVar(&irShiftMax, "shift-max", 200, "exclusive upper bound of the shift search range")
	f.IntVar(&irGuardBand, "guard-band", 200, "edge trim keeping shifted slices inside their window")
	f.StringVar(&irOutPath, "out-ir", "", "write the extracted linear IR slice to this .npy file")
	f.StringVar(&irPlotPath, "plot", "", "write the NMSE/shift diagnostic plot to this image file")
	f.BoolVarP(&irQuiet, "quiet", "q", false, "suppress per-window output")

	for _, name := range []string{"invsweep", "sweep", "original", "device"} {
		extractIRCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(extractIRCmd)
}

func runExtractIR(cmd *cobra.Command, args []string) error {
	inv, err := ir.LoadInverseSweep(irInvSweepPath)
	if err != nil {
		return err
	}

	registry := decoder.NewRegistry()
	sweep, err := registry.DecodeMono(irSweepPath, irSampleRate)
	if err != nil {
		return err
	}

	response, err := ir.NewExtractor(inv).ExtractMono(sweep)
	if err != nil {
		return err
	}
	irSlice, err := response.LinearSlice(0, ir.SliceConfig{Start: irSliceStart, End: irSliceEnd})
	if err != nil {
		return err
	}

	original, err := registry.DecodeMono(irOriginalPath, irSampleRate)
	if err != nil {
		return err
	}
	device, err := registry.DecodeMono(irDevicePath, irSampleRate)
	if err != nil {
		return err
	}

	analyzer, err := alignment.NewAnalyzer(alignment.Config{
		SampleRate:     irSampleRate,
		WindowDuration: irWindowDuration,
		Margin:         irMargin,
		ShiftMin:       irShiftMin,
		ShiftMax:       irShiftMax,
		GuardBand:      irGuardBand,
	})
	if err != nil {
		return err
	}

	reconstructed := analyzer.Reconstruct(original, irSlice)
	result, err := analyzer.Analyze(reconstructed, device)
	if err != nil {
		return err
	}

	if irOutPath != "" {
		if err := ir.SaveIRSlice(irOutPath, irSlice); err != nil {
			return err
		}
	}
	if irPlotPath != "" {
		if err := alignment.SavePlot(result, irPlotPath); err != nil {
			return err
		}
	}

	if !irQuiet {
		fmt.Printf("window   min error [dB]   best shift\n")
		for _, w := range result.Windows {
			flag := ""
			if w.Clamped {
				flag = " (clamped)"
			}
			fmt.Printf("%6d   %14.2f   %10d%s\n", w.Index, w.MinErrorDB, w.BestShift, flag)
		}
		fmt.Printf("\nmean error: %.2f dB\n", result.MeanErrorDB)
		fmt.Printf("drift slope: %.4f samples/window\n", result.Slope)
	}
	return nil
}
