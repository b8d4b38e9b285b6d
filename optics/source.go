package optics

import (
	"math"
	"math/cmplx"

	"github.com/bob-anderson-ok/fieldoptics/field"
	"github.com/bob-anderson-ok/fieldoptics/pupil"
)

// ObjectivePointSource is a point source at depth z in front of an
// objective of focal length F, seen in the objective's back focal plane.
// Each plane carries a defocus phase proportional to z and is cut by the
// objective pupil of diameter 2*F*NA/N.
type ObjectivePointSource struct {
	Height, Width   int
	Spacing         []float64 // per wavelength, or a single value
	Spectrum        []float64 // microns
	SpectralDensity []float64 // nil for unit density

	F  float64 // focal length
	N  float64 // refractive index of the immersion medium
	NA float64 // numerical aperture

	Power     float64 // power per plane after the pupil, 0 means 1
	Amplitude float64 // 0 means 1
}

func (s *ObjectivePointSource) validate() error {
	for _, p := range []struct {
		name string
		v    float64
	}{{"f", s.F}, {"n", s.N}, {"na", s.NA}} {
		if err := positive(p.name, p.v); err != nil {
			return err
		}
	}
	if s.NA > s.N {
		return &field.InvalidParameterError{Name: "na", Value: s.NA, Reason: "exceeds the refractive index"}
	}
	if s.Power < 0 || math.IsNaN(s.Power) {
		return &field.InvalidParameterError{Name: "power", Value: s.Power, Reason: "must be non-negative"}
	}
	return nil
}

// Field returns the pupil-plane field for every depth in z, normalised so
// that each plane carries Power.
func (s *ObjectivePointSource) Field(z []float64) (*field.Field, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	shape := field.Shape{Planes: len(z), Height: s.Height, Width: s.Width, Wavelengths: len(s.Spectrum)}
	empty, err := field.Empty(shape, s.Spacing, s.Spectrum, s.SpectralDensity)
	if err != nil {
		return nil, err
	}

	amplitude := s.Amplitude
	if amplitude == 0 {
		amplitude = 1
	}
	power := s.Power
	if power == 0 {
		power = 1
	}

	values := make([]complex128, shape.Size())
	spectrum := empty.Spectrum()
	for c, lambda := range spectrum {
		lSq := lambda * s.F / s.N
		scale := complex(0, -amplitude/lSq)
		grid := empty.L2SqGrid(c)
		for p, depth := range z {
			k := -math.Pi * (depth / s.F) / lSq
			for i, r2 := range grid {
				values[(p*shape.Pixels()+i)*shape.Wavelengths+c] = scale * cmplx.Exp(complex(0, k*r2))
			}
		}
	}

	f, err := empty.Replace(values, nil)
	if err != nil {
		return nil, err
	}
	f, err = pupil.Circular(f, 2*s.F*s.NA/s.N)
	if err != nil {
		return nil, err
	}

	planePower := f.Power()
	norm := make([]float64, len(planePower))
	for p, pw := range planePower {
		if pw == 0 {
			return nil, &field.InvalidParameterError{Name: "na", Value: s.NA, Reason: "pupil transmits no samples"}
		}
		norm[p] = math.Sqrt(power / pw)
	}
	return f.ScalePlanes(norm)
}
