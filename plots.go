package main

import (
	"errors"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/bob-anderson-ok/fieldoptics/profile"
)

// SaveSpectrumPlot writes the relative spectral density against wavelength.
func SaveSpectrumPlot(spectrum, density []float64, filename string) error {
	if len(spectrum) == 0 || len(spectrum) != len(density) {
		return errors.New("spectrum and spectral density must be non-empty and of equal length")
	}

	p := plot.New()

	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"
	p.Title.TextStyle.Font.Size = vg.Points(12)

	p.X.Label.TextStyle.Font.Typeface = "Liberation"
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.Label.TextStyle.Font.Size = vg.Points(12)

	p.Y.Label.TextStyle.Font.Typeface = "Liberation"
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)

	p.X.Tick.Label.Font.Typeface = "Liberation"
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Tick.Label.Font.Size = vg.Points(10)

	p.Title.Text = "Spectral density vs wavelength"
	p.X.Label.Text = "Wavelength (um)"
	p.Y.Label.Text = "Relative density"

	p.Y.Tick.Marker = profile.StepTicks{Step: 0.1, Format: "%.2f"}
	p.Add(plotter.NewGrid())

	p.Y.Min = 0.0
	p.Y.Max = 1.1

	maxWeight := 0.0
	for _, d := range density {
		maxWeight = max(maxWeight, d)
	}
	if maxWeight == 0 {
		return errors.New("spectral density is zero everywhere")
	}

	pts := make(plotter.XYs, len(spectrum))
	for i := range spectrum {
		pts[i].X = spectrum[i]
		pts[i].Y = density[i] / maxWeight
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	linePoints, scatterPoints, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	linePoints.Color = color.RGBA{B: 255, A: 255}
	linePoints.Width = vg.Points(1)

	scatterPoints.Shape = draw.CircleGlyph{}
	scatterPoints.Radius = vg.Points(2)
	scatterPoints.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}

	p.Add(linePoints, scatterPoints)

	return p.Save(8*vg.Inch, 4*vg.Inch, filename)
}
