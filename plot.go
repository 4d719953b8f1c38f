package cnn_go

import (
	"fmt"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gorgonia.org/tensor"
)

// PlotXY Plot line chart for input y(x)
func PlotXY(x, y tensor.Tensor, title, xLabel, yLabel, fname string) error {
	if x.Dims() != 1 {
		return fmt.Errorf("X must have one dimension, but got %d", x.Dims())
	}
	if y.Dims() != 1 {
		return fmt.Errorf("Y(X) must have one dimension, but got %d", y.Dims())
	}
	if x.DataSize() != y.DataSize() {
		return fmt.Errorf("X and Y(X) must have same number of elements, but X has %d elements and Y(X) has %d elements", x.DataSize(), y.DataSize())
	}
	lineData := make(plotter.XYs, x.DataSize())
	for i := 0; i < x.DataSize(); i++ {
		xval, err := x.At(i)
		if err != nil {
			return errors.Wrap(err, "Can't select X-value")
		}
		yval, err := y.At(i)
		if err != nil {
			return errors.Wrap(err, "Can't select Y(x)-value")
		}
		// Do no cast interfaces{} to any type when you are not sure about types
		xf, ok := xval.(float64)
		if !ok {
			return fmt.Errorf("X-value has type %T, but float64 expected", xval)
		}
		yf, ok := yval.(float64)
		if !ok {
			return fmt.Errorf("Y(x)-value has type %T, but float64 expected", yval)
		}
		lineData[i].X = xf
		lineData[i].Y = yf
	}
	line, points, err := plotter.NewLinePoints(lineData)
	if err != nil {
		return errors.Wrap(err, "Can't init new line")
	}
	line.LineStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	points.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	p.Add(line, points)
	// Save the plot to a file. Format is picked by extension
	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// PlotLoss Plot training loss of progress records against number of seen samples (accumulated over epochs)
func PlotLoss(records []ProgressRecord, fname string) error {
	if len(records) == 0 {
		return errors.New("no progress records to plot")
	}
	xs := make([]float64, len(records))
	ys := make([]float64, len(records))
	for i, rec := range records {
		xs[i] = float64((rec.Epoch-1)*rec.Total + rec.Seen)
		ys[i] = rec.Loss
	}
	x := tensor.New(tensor.WithShape(len(xs)), tensor.WithBacking(xs))
	y := tensor.New(tensor.WithShape(len(ys)), tensor.WithBacking(ys))
	return PlotXY(x, y, "Training loss", "Samples", "Loss", fname)
}
