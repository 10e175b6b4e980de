package channelresponse

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/polimi-ispl/POLIPHONE/internal/decoder"
	"github.com/polimi-ispl/POLIPHONE/internal/types"

	"github.com/sbinet/npyio"
	"github.com/schollz/progressbar/v3"
)

// Extractor runs the channel-response pipeline over batches of audio
// files.
type Extractor struct {
	cfg      Config
	registry *decoder.Registry
}

// NewExtractor returns an extractor with cfg's zero fields defaulted.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{
		cfg:      cfg.withDefaults(),
		registry: decoder.NewRegistry(),
	}
}

// ProcessFolder expands the glob pattern and processes every matching
// file through a worker pool, writing one .npy channel-response vector
// per (file, window) into outputDir. A failing file is reported in its
// FileResult and never aborts the batch.
func (e *Extractor) ProcessFolder(ctx context.Context, pattern, outputDir string) ([]types.FileResult, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad input pattern %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no audio files match %q", pattern)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}

	var bar *progressbar.ProgressBar
	if !e.cfg.Quiet {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("computing channel responses"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowIts(),
		)
	}

	jobs := make(chan string, len(paths))
	results := make(chan types.FileResult, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- e.processFile(ctx, path, outputDir)
				if bar != nil {
					bar.Add(1)
				}
			}
		}()
	}

	go func() {
		for _, path := range paths {
			jobs <- path
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	all := make([]types.FileResult, 0, len(paths))
	for r := range results {
		all = append(all, r)
	}

	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	return all, nil
}

// processFile runs one file end to end: decode, compute, persist.
func (e *Extractor) processFile(ctx context.Context, path, outputDir string) types.FileResult {
	device, speaker := DeviceSpeaker(path)
	result := types.FileResult{Path: path, Device: device, Speaker: speaker}

	if e.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.FileTimeout)
		defer cancel()
	}

	mono, err := e.registry.DecodeMono(path, e.cfg.SampleRate)
	if err != nil {
		result.Err = err
		return result
	}

	responses, err := ComputeResponses(ctx, mono, e.cfg)
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", path, err)
		return result
	}

	for i, resp := range responses {
		name := fmt.Sprintf("%s_%s_win_%d.npy", device, speaker, i)
		if err := writeResponse(filepath.Join(outputDir, name), resp); err != nil {
			result.Err = err
			return result
		}
	}
	result.Windows = len(responses)
	return result
}

// DeviceSpeaker derives the naming key of an input file: the device is
// the third-from-last path segment and the speaker is the file stem up
// to its first dot. Paths too shallow to carry a device segment get
// "unknown".
func DeviceSpeaker(path string) (device, speaker string) {
	segments := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	speaker = strings.SplitN(segments[len(segments)-1], ".", 2)[0]
	device = "unknown"
	if len(segments) >= 3 && segments[len(segments)-3] != "" {
		device = segments[len(segments)-3]
	}
	return device, speaker
}

// writeResponse persists a channel-response vector as a 1-D .npy array.
// Bins with no defined average are stored as NaN, the missing-value
// convention of the downstream NumPy tooling.
func writeResponse(path string, resp Response) error {
	values := make([]float64, len(resp.Values))
	for i, v := range resp.Values {
		if !resp.Defined[i] {
			values[i] = math.NaN()
			continue
		}
		values[i] = v
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create response file: %w", err)
	}
	defer f.Close()

	if err := npyio.Write(f, values); err != nil {
		return fmt.Errorf("write response file %s: %w", path, err)
	}
	return nil
}
