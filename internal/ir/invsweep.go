package ir

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
)

// InverseSweepArray is the array name the sweep design pipeline stores
// the inverse-sweep FFT under.
const InverseSweepArray = "invsweepfft"

// ErrMissingArray reports an archive without the invsweepfft member.
var ErrMissingArray = errors.New(`ir: archive has no "invsweepfft" array`)

// InverseSweep is the precomputed frequency-domain representation of an
// inverse logarithmic sweep. It is loaded once and shared read-only
// across all IR extractions for a configuration.
type InverseSweep struct {
	Channels int
	FFTSize  int
	Spectrum [][]complex128 // [channel][bin], len(Spectrum[c]) == FFTSize
}

// LoadInverseSweep reads the invsweepfft array from a NumPy data file.
// A .npy file holds the array directly; a .npz archive must contain an
// "invsweepfft" member. 1-D arrays become a single channel, 2-D arrays
// are channels x FFT bins.
func LoadInverseSweep(path string) (*InverseSweep, error) {
	if strings.EqualFold(filepath.Ext(path), ".npz") {
		return loadInverseSweepNPZ(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inverse sweep: %w", err)
	}
	defer f.Close()

	inv, err := readSpectrum(f)
	if err != nil {
		return nil, fmt.Errorf("read inverse sweep %s: %w", path, err)
	}
	return inv, nil
}

func loadInverseSweepNPZ(path string) (*InverseSweep, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open inverse sweep archive: %w", err)
	}
	defer zr.Close()

	for _, member := range zr.File {
		name := strings.TrimSuffix(member.Name, ".npy")
		if name != InverseSweepArray {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return nil, fmt.Errorf("open archive member %s: %w", member.Name, err)
		}
		defer rc.Close()

		inv, err := readSpectrum(rc)
		if err != nil {
			return nil, fmt.Errorf("read inverse sweep %s: %w", path, err)
		}
		return inv, nil
	}
	return nil, ErrMissingArray
}

func readSpectrum(r io.Reader) (*InverseSweep, error) {
	npr, err := npyio.NewReader(r)
	if err != nil {
		return nil, err
	}

	shape := npr.Header.Descr.Shape
	var channels, fftSize int
	switch len(shape) {
	case 1:
		channels, fftSize = 1, shape[0]
	case 2:
		channels, fftSize = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("unexpected inverse sweep shape %v", shape)
	}
	if channels <= 0 || fftSize <= 0 {
		return nil, fmt.Errorf("empty inverse sweep, shape %v", shape)
	}

	flat, err := readComplexData(npr, channels*fftSize)
	if err != nil {
		return nil, err
	}

	spectrum := make([][]complex128, channels)
	for c := range spectrum {
		spectrum[c] = flat[c*fftSize : (c+1)*fftSize]
	}
	return &InverseSweep{
		Channels: channels,
		FFTSize:  fftSize,
		Spectrum: spectrum,
	}, nil
}

// readComplexData reads the flattened array body, promoting real-valued
// arrays to complex.
func readComplexData(npr *npyio.Reader, n int) ([]complex128, error) {
	dtype := npr.Header.Descr.Type
	if strings.Contains(dtype, "c") {
		data := make([]complex128, 0, n)
		if err := npr.Read(&data); err != nil {
			return nil, err
		}
		if len(data) != n {
			return nil, fmt.Errorf("short inverse sweep: got %d values, want %d", len(data), n)
		}
		return data, nil
	}

	reals := make([]float64, 0, n)
	if err := npr.Read(&reals); err != nil {
		return nil, err
	}
	if len(reals) != n {
		return nil, fmt.Errorf("short inverse sweep: got %d values, want %d", len(reals), n)
	}
	data := make([]complex128, n)
	for i, v := range reals {
		data[i] = complex(v, 0)
	}
	return data, nil
}
