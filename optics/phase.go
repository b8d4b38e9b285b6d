package optics

import (
	"math/cmplx"

	"github.com/bob-anderson-ok/fieldoptics/field"
)

// FlatPhase returns an h x w phase of zeros.
func FlatPhase(h, w int) [][]float64 {
	phase := make([][]float64, h)
	for y := range phase {
		phase[y] = make([]float64, w)
	}
	return phase
}

// PhaseMask multiplies a field by exp(i*Phase). The phase broadcasts over
// planes and wavelengths and must match the field's spatial shape.
type PhaseMask struct {
	Phase [][]float64
}

func (m *PhaseMask) Apply(f *field.Field) (*field.Field, error) {
	s := f.Shape()
	if len(m.Phase) != s.Height {
		return nil, &field.ShapeMismatchError{What: "phase rows", Have: len(m.Phase), Want: s.Height}
	}
	factors := make([]complex128, 0, s.Pixels())
	for _, row := range m.Phase {
		if len(row) != s.Width {
			return nil, &field.ShapeMismatchError{What: "phase columns", Have: len(row), Want: s.Width}
		}
		for _, phi := range row {
			factors = append(factors, cmplx.Exp(complex(0, phi)))
		}
	}
	return f.MulSpatial(factors)
}
