// Package pupil applies hard-edged aperture stops to optical fields.
//
// Both pupils rescale the aperture per wavelength by spectrum[0]/lambda: the
// field grids are expressed relative to the first listed wavelength, so
// every other wavelength needs a compensating scale. The first entry is the
// reference whether or not the spectrum is sorted.
package pupil

import (
	"math"

	"github.com/bob-anderson-ok/fieldoptics/field"
)

// Circular returns a copy of f with every sample outside a disk of
// diameter w zeroed. A sample exactly on the rim is transmitted.
func Circular(f *field.Field, w float64) (*field.Field, error) {
	return apply(f, w, func(f *field.Field, c int) ([]float64, float64) {
		r := scaling(f, c) * w / 2
		return f.L2SqGrid(c), r * r
	})
}

// Square returns a copy of f with every sample outside a square of side w
// zeroed. A sample exactly on the edge is transmitted.
func Square(f *field.Field, w float64) (*field.Field, error) {
	return apply(f, w, func(f *field.Field, c int) ([]float64, float64) {
		return f.LinfGrid(c), scaling(f, c) * w / 2
	})
}

// apertureFunc returns the distance grid for wavelength c and the largest
// distance that is still transmitted.
type apertureFunc func(f *field.Field, c int) (grid []float64, limit float64)

func apply(f *field.Field, w float64, aperture apertureFunc) (*field.Field, error) {
	if !(w > 0) || math.IsInf(w, 0) {
		return nil, &field.InvalidParameterError{Name: "w", Value: w, Reason: "aperture size must be positive and finite"}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	s := f.Shape()
	keep := make([]bool, s.Pixels()*s.Wavelengths)
	for c := range s.Wavelengths {
		grid, limit := aperture(f, c)
		for i, d := range grid {
			keep[i*s.Wavelengths+c] = d <= limit
		}
	}
	return f.MulMask(keep)
}

func scaling(f *field.Field, c int) float64 {
	spectrum := f.Spectrum()
	return spectrum[0] / spectrum[c]
}
