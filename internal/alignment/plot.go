package alignment

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePlot writes the NMSE/shift diagnostic for an analysis: the
// per-window minimum error and best shift, drawn over the window index,
// with the mean error and drift slope in the legend.
func SavePlot(res *Result, path string) error {
	if len(res.Windows) == 0 {
		return fmt.Errorf("alignment: nothing to plot")
	}

	errPts := make(plotter.XYs, len(res.Windows))
	shiftPts := make(plotter.XYs, len(res.Windows))
	for i, w := range res.Windows {
		errPts[i] = plotter.XY{X: float64(i), Y: w.MinErrorDB}
		shiftPts[i] = plotter.XY{X: float64(i), Y: float64(w.BestShift)}
	}

	errLine, err := plotter.NewLine(errPts)
	if err != nil {
		return fmt.Errorf("alignment: build error curve: %w", err)
	}
	shiftLine, err := plotter.NewLine(shiftPts)
	if err != nil {
		return fmt.Errorf("alignment: build shift curve: %w", err)
	}
	shiftLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p := plot.New()
	p.Title.Text = "Convolution Error Analysis"
	p.X.Label.Text = "Window Index"
	p.Y.Label.Text = "Error and Shifts"
	p.Add(errLine, shiftLine)
	p.Legend.Add(fmt.Sprintf("NMSE VALUE [dB] - Mean: %.2f", res.MeanErrorDB), errLine)
	p.Legend.Add(fmt.Sprintf("SHIFT VALUE - Slope: %.2f", res.Slope), shiftLine)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("alignment: save plot %s: %w", path, err)
	}
	return nil
}
