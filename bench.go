package main

import (
	"context"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/bob-anderson-ok/fieldoptics/microscope"
	"github.com/bob-anderson-ok/fieldoptics/optics"
)

// sourceSpacing returns the source-plane spacing that gives the requested
// PSF spacing after the Fourier lens at the first listed wavelength.
func sourceSpacing(p Params) float64 {
	return p.SpectrumUm[0] * p.FocalLengthUm / (p.RefractiveIndex * float64(p.ShapePixels) * p.SpacingUm)
}

// buildSystem assembles point source, flat phase mask, optional pupil and
// Fourier lens.
func buildSystem(p Params) *optics.System {
	n := p.ShapePixels
	src := &optics.ObjectivePointSource{
		Height:          n,
		Width:           n,
		Spacing:         []float64{sourceSpacing(p)},
		Spectrum:        p.SpectrumUm,
		SpectralDensity: p.SpectralDensity,
		F:               p.FocalLengthUm,
		N:               p.RefractiveIndex,
		NA:              p.NumericalAperture,
	}

	elements := []optics.Element{&optics.PhaseMask{Phase: optics.FlatPhase(n, n)}}
	switch p.Pupil {
	case "circular":
		elements = append(elements, &optics.CircularPupil{W: p.PupilWidthUm})
	case "square":
		elements = append(elements, &optics.SquarePupil{W: p.PupilWidthUm})
	}
	elements = append(elements, &optics.FFLens{F: p.FocalLengthUm, N: p.RefractiveIndex})

	return &optics.System{Source: src, Elements: elements}
}

// linspace returns n evenly spaced depths from lo to hi inclusive. A single
// plane sits at lo.
func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// unitVolume is a sample of ones, one size x size plane per depth.
func unitVolume(planes, size int) []*mat.Dense {
	data := make([]float64, size*size)
	for j := range data {
		data[j] = 1
	}
	return repeatPlane(mat.NewDense(size, size, data), planes)
}

// repeatPlane uses the same sample plane at every depth. Imaging only reads
// the planes, so they share storage.
func repeatPlane(plane *mat.Dense, planes int) []*mat.Dense {
	volume := make([]*mat.Dense, planes)
	for i := range volume {
		volume[i] = plane
	}
	return volume
}

// timeImaging images the volume repeats times and returns the last image
// and the wall time of every run in milliseconds.
func timeImaging(ctx context.Context, m *microscope.Microscope, volume []*mat.Dense, z []float64, repeats int) (*mat.Dense, []float64, error) {
	var img *mat.Dense
	times := make([]float64, 0, repeats)
	for range repeats {
		start := time.Now()
		var err error
		img, err = m.Image(ctx, volume, z)
		if err != nil {
			return nil, nil, err
		}
		times = append(times, float64(time.Since(start).Nanoseconds())/1e6)
	}
	return img, times, nil
}

// summarize returns the mean and population standard deviation.
func summarize(times []float64) (mean, std float64) {
	return stat.PopMeanStdDev(times, nil)
}

// imagesAgree reports whether a and b match to within tol relative to the
// brightest pixel of a.
func imagesAgree(a, b *mat.Dense, tol float64) bool {
	scale := mat.Max(a)
	if scale <= 0 {
		scale = 1
	}
	return mat.EqualApprox(a, b, tol*scale)
}
