package types

import "time"

// AudioFile is a decoded audio recording. Implementations keep the
// underlying file open until Close is called.
type AudioFile interface {
	Format() string
	SampleRate() int
	BitDepth() int
	Channels() int
	Duration() time.Duration
	// Samples returns the interleaved samples scaled to [-1, 1).
	Samples() ([]float64, error)
	// MonoSamples returns the channel average of the interleaved samples.
	MonoSamples() ([]float64, error)
	Close() error
}

// FileResult is the outcome of processing one input file in a batch.
// A non-nil Err marks that file as failed without affecting the rest
// of the batch.
type FileResult struct {
	Path    string
	Device  string
	Speaker string
	Windows int
	Err     error
}

// BatchSummary aggregates per-file results at the end of a batch run.
type BatchSummary struct {
	Total   int
	OK      int
	Failed  int
	Windows int
}

// Summarize counts the per-file outcomes of a batch.
func Summarize(results []FileResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.OK++
		s.Windows += r.Windows
	}
	return s
}
