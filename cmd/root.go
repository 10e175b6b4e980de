package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "poliphone",
	Short: "Acoustic fingerprints for smartphone model identification",
	Long: `POLIPHONE computes acoustic fingerprints from recorded audio for
smartphone-identification research.

channel-response averages thresholded log-magnitude spectra over sliding
windows of speech recordings, one fingerprint vector per window.
extract-ir deconvolves a recorded logarithmic sweep into an impulse
response and measures the time-alignment error between a reference
speech signal and its device recording.`,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("poliphone version {{.Version}}\n")
	rootCmd.Version = version
}
