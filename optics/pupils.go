package optics

import (
	"github.com/bob-anderson-ok/fieldoptics/field"
	"github.com/bob-anderson-ok/fieldoptics/pupil"
)

// CircularPupil is pupil.Circular as a system element.
type CircularPupil struct {
	W float64 // diameter
}

func (p *CircularPupil) Apply(f *field.Field) (*field.Field, error) {
	return pupil.Circular(f, p.W)
}

// SquarePupil is pupil.Square as a system element.
type SquarePupil struct {
	W float64 // side length
}

func (p *SquarePupil) Apply(f *field.Field) (*field.Field, error) {
	return pupil.Square(f, p.W)
}
