package optics

import (
	"github.com/bob-anderson-ok/fieldoptics/field"
	"github.com/bob-anderson-ok/fieldoptics/pupil"
)

// FFLens propagates a field from the front focal plane of a thin lens to
// its back focal plane. With NA > 0 the field is first cut by a circular
// pupil of diameter 2*F*NA/N.
type FFLens struct {
	F  float64
	N  float64
	NA float64
}

func (l *FFLens) Apply(f *field.Field) (*field.Field, error) {
	if err := positive("f", l.F); err != nil {
		return nil, err
	}
	if err := positive("n", l.N); err != nil {
		return nil, err
	}
	var err error
	if l.NA > 0 {
		f, err = pupil.Circular(f, 2*l.F*l.NA/l.N)
		if err != nil {
			return nil, err
		}
	}
	return opticalFFT(f, l.F, l.N)
}

// opticalFFT is the Fraunhofer transform over a distance z in a medium of
// index n. The output spacing of wavelength c is lambda*z/(n*N*dx).
func opticalFFT(f *field.Field, z, n float64) (*field.Field, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s := f.Shape()
	if s.Height != s.Width {
		return nil, &field.ShapeMismatchError{What: "lens grid width", Have: s.Width, Want: s.Height}
	}
	size := float64(s.Width)

	spectrum := f.Spectrum()
	spacing := f.Spacing()
	outSpacing := make([]float64, len(spacing))
	values := make([]complex128, s.Size())
	fft := field.NewFFT2D(s.Height, s.Width)

	for c, lambda := range spectrum {
		lSq := lambda * z / n
		dx := spacing[c]
		norm := complex(0, -dx*dx/lSq)
		outSpacing[c] = lSq / (size * dx)

		for p := range s.Planes {
			u := field.IFFTShift(f.Slice(p, c), s.Height, s.Width)
			if err := fft.Forward(u); err != nil {
				return nil, err
			}
			u = field.FFTShift(u, s.Height, s.Width)
			for i := range u {
				u[i] *= norm
			}
			if err := field.SetSlice(values, s, p, c, u); err != nil {
				return nil, err
			}
		}
	}
	return f.Replace(values, outSpacing)
}
