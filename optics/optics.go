// Package optics holds the elements a light field passes through on its way
// to the sensor: sources that create a field for a set of depth planes and
// elements that transform one field into another.
//
// Parameters are plain struct fields. Optimising them is left to the caller.
package optics

import (
	"fmt"
	"math"

	"github.com/bob-anderson-ok/fieldoptics/field"
)

// Source creates a field with one plane per entry of z.
type Source interface {
	Field(z []float64) (*field.Field, error)
}

// Element transforms a field. Implementations must not modify their input.
type Element interface {
	Apply(f *field.Field) (*field.Field, error)
}

// System is a source followed by elements applied in order.
type System struct {
	Source   Source
	Elements []Element
}

// Run builds the source field for the given depths and passes it through
// every element.
func (s *System) Run(z []float64) (*field.Field, error) {
	if s.Source == nil {
		return nil, fmt.Errorf("optical system has no source")
	}
	f, err := s.Source.Field(z)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	for i, e := range s.Elements {
		f, err = e.Apply(f)
		if err != nil {
			return nil, fmt.Errorf("element %d (%T): %w", i, e, err)
		}
	}
	return f, nil
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return &field.InvalidParameterError{Name: name, Value: v, Reason: "must be positive and finite"}
	}
	return nil
}
