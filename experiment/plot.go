package experiment

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotAccuracy writes a line plot of per-step episode accuracy to path. The
// output format follows the file extension (png, svg, pdf, ...).
func plotAccuracy(path string, accs []float64, title string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "step"
	p.Y.Label.Text = "accuracy"
	p.Y.Min, p.Y.Max = 0, 1

	xys := make(plotter.XYs, len(accs))
	for i, a := range accs {
		xys[i] = plotter.XY{X: float64(i + 1), Y: a}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("building accuracy line: %w", err)
	}
	line.Width = vg.Points(0.8)

	p.Add(plotter.NewGrid(), line)
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("saving accuracy plot %s: %w", path, err)
	}
	return nil
}
