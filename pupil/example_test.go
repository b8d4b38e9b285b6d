package pupil_test

import (
	"fmt"
	"log"

	"github.com/bob-anderson-ok/fieldoptics/field"
	"github.com/bob-anderson-ok/fieldoptics/pupil"
)

func countNonZero(f *field.Field) int {
	n := 0
	for _, v := range f.Values() {
		if v != 0 {
			n++
		}
	}
	return n
}

// Example compares the two pupils on a 5x5 plane wave with unit spacing.
func Example() {
	shape := field.Shape{Planes: 1, Height: 5, Width: 5, Wavelengths: 1}
	values := make([]complex128, shape.Size())
	for i := range values {
		values[i] = 1
	}
	f, err := field.New(shape, []float64{1}, []float64{0.532}, nil, values)
	if err != nil {
		log.Fatal(err)
	}

	circ, err := pupil.Circular(f, 5)
	if err != nil {
		log.Fatal(err)
	}
	sq, err := pupil.Square(f, 5)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("circular:", countNonZero(circ))
	fmt.Println("square:", countNonZero(sq))

	// Output:
	// circular: 21
	// square: 25
}
