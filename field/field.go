// Package field provides the sampled representation of a multi-plane,
// multi-wavelength optical wavefront used by every element of the toolkit.
//
// A Field is immutable once built. Its distance grids are computed at
// construction and shared by all masking operations applied to it.
package field

import (
	"math"
	"math/cmplx"
)

// Shape gives the extent of each axis of a Field. Values are laid out
// row-major with the wavelength axis fastest: ((p*Height+y)*Width+x)*Wavelengths+c.
type Shape struct {
	Planes      int
	Height      int
	Width       int
	Wavelengths int
}

// Size is the total number of samples.
func (s Shape) Size() int {
	return s.Planes * s.Height * s.Width * s.Wavelengths
}

// Pixels is the number of spatial samples in one plane.
func (s Shape) Pixels() int {
	return s.Height * s.Width
}

// Index returns the flat offset of sample (p, y, x, c).
func (s Shape) Index(p, y, x, c int) int {
	return ((p*s.Height+y)*s.Width+x)*s.Wavelengths + c
}

func (s Shape) validate() error {
	dims := []struct {
		name string
		n    int
	}{
		{"planes", s.Planes},
		{"height", s.Height},
		{"width", s.Width},
		{"wavelengths", s.Wavelengths},
	}
	for _, d := range dims {
		if d.n <= 0 {
			return invalid(d.name, float64(d.n), "must be positive")
		}
	}
	return nil
}

// Field is a sampled complex wavefront over a 2D grid, one or more depth
// planes and one or more wavelengths.
type Field struct {
	shape    Shape
	values   []complex128
	spectrum []float64
	density  []float64
	spacing  []float64

	// l2Sq[c] and linf[c] hold one entry per pixel (y*Width+x).
	l2Sq [][]float64
	linf [][]float64
}

// New builds a Field from its parts. All slices are copied and every sample
// must be finite.
//
// spacing holds the sample spacing per wavelength; a single entry is applied
// to every wavelength. A nil density means unit density for every
// wavelength. The spectrum is kept in the order given.
func New(shape Shape, spacing, spectrum, density []float64, values []complex128) (*Field, error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	if len(values) != shape.Size() {
		return nil, mismatch("values", len(values), shape.Size())
	}
	for _, v := range values {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return nil, invalid("values", cmplx.Abs(v), "samples must be finite")
		}
	}
	f, err := build(shape, spacing, spectrum, density)
	if err != nil {
		return nil, err
	}
	copy(f.values, values)
	return f, nil
}

// Empty builds a Field whose samples are all zero.
func Empty(shape Shape, spacing, spectrum, density []float64) (*Field, error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	return build(shape, spacing, spectrum, density)
}

func build(shape Shape, spacing, spectrum, density []float64) (*Field, error) {
	nc := shape.Wavelengths
	if len(spectrum) != nc {
		return nil, mismatch("spectrum", len(spectrum), nc)
	}
	for _, lambda := range spectrum {
		if !(lambda > 0) || math.IsInf(lambda, 0) {
			return nil, invalid("wavelength", lambda, "must be positive and finite")
		}
	}

	dx, err := broadcastSpacing(spacing, nc)
	if err != nil {
		return nil, err
	}

	d := make([]float64, nc)
	switch {
	case density == nil:
		for c := range d {
			d[c] = 1
		}
	case len(density) != nc:
		return nil, mismatch("spectral density", len(density), nc)
	default:
		for c, v := range density {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, invalid("spectral density", v, "must be non-negative and finite")
			}
			d[c] = v
		}
	}

	f := &Field{
		shape:    shape,
		values:   make([]complex128, shape.Size()),
		spectrum: append([]float64(nil), spectrum...),
		density:  d,
		spacing:  dx,
	}
	f.l2Sq, f.linf = buildGrids(shape, dx)
	return f, nil
}

func broadcastSpacing(spacing []float64, nc int) ([]float64, error) {
	if len(spacing) != 1 && len(spacing) != nc {
		return nil, mismatch("spacing", len(spacing), nc)
	}
	for _, v := range spacing {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, invalid("spacing", v, "must be positive and finite")
		}
	}
	dx := make([]float64, nc)
	for c := range dx {
		if len(spacing) == 1 {
			dx[c] = spacing[0]
		} else {
			dx[c] = spacing[c]
		}
	}
	return dx, nil
}

// buildGrids returns the squared L2 and the L-infinity distance of every
// pixel from the optical axis, per wavelength. The axis sits halfway
// between the first and last sample of each spatial axis.
func buildGrids(shape Shape, spacing []float64) (l2Sq, linf [][]float64) {
	h, w := shape.Height, shape.Width
	cy := float64(h-1) / 2
	cx := float64(w-1) / 2

	l2Sq = make([][]float64, len(spacing))
	linf = make([][]float64, len(spacing))
	for c, dx := range spacing {
		l2Sq[c] = make([]float64, h*w)
		linf[c] = make([]float64, h*w)
		for y := range h {
			gy := (float64(y) - cy) * dx
			for x := range w {
				gx := (float64(x) - cx) * dx
				l2Sq[c][y*w+x] = gy*gy + gx*gx
				linf[c][y*w+x] = math.Max(math.Abs(gy), math.Abs(gx))
			}
		}
	}
	return l2Sq, linf
}

// Shape returns the extent of the field.
func (f *Field) Shape() Shape { return f.shape }

// Values returns a copy of the samples.
func (f *Field) Values() []complex128 {
	return append([]complex128(nil), f.values...)
}

// At returns sample (p, y, x, c).
func (f *Field) At(p, y, x, c int) complex128 {
	return f.values[f.shape.Index(p, y, x, c)]
}

// Spectrum returns a copy of the wavelengths.
func (f *Field) Spectrum() []float64 { return append([]float64(nil), f.spectrum...) }

// SpectralDensity returns a copy of the per-wavelength weights.
func (f *Field) SpectralDensity() []float64 { return append([]float64(nil), f.density...) }

// Spacing returns a copy of the per-wavelength sample spacing.
func (f *Field) Spacing() []float64 { return append([]float64(nil), f.spacing...) }

// L2SqGrid returns the squared distance of each pixel from the optical axis
// for wavelength c, indexed y*Width+x. The slice is shared and must not be
// modified.
func (f *Field) L2SqGrid(c int) []float64 { return f.l2Sq[c] }

// LinfGrid returns the Chebyshev distance of each pixel from the optical
// axis for wavelength c, indexed y*Width+x. The slice is shared and must not
// be modified.
func (f *Field) LinfGrid(c int) []float64 { return f.linf[c] }

// Validate checks that the samples and grids agree with the shape. A zero
// Field fails.
func (f *Field) Validate() error {
	if f == nil {
		return mismatch("field", 0, 1)
	}
	s := f.shape
	if err := s.validate(); err != nil {
		return mismatch("shape", 0, 1)
	}
	if len(f.values) != s.Size() {
		return mismatch("values", len(f.values), s.Size())
	}
	for name, n := range map[string]int{
		"spectrum":         len(f.spectrum),
		"spectral density": len(f.density),
		"spacing":          len(f.spacing),
		"l2 grid":          len(f.l2Sq),
		"linf grid":        len(f.linf),
	} {
		if n != s.Wavelengths {
			return mismatch(name, n, s.Wavelengths)
		}
	}
	for c := range s.Wavelengths {
		if len(f.l2Sq[c]) != s.Pixels() {
			return mismatch("l2 grid", len(f.l2Sq[c]), s.Pixels())
		}
		if len(f.linf[c]) != s.Pixels() {
			return mismatch("linf grid", len(f.linf[c]), s.Pixels())
		}
	}
	return nil
}

// clone copies f with fresh sample storage. Grids are immutable and shared.
func (f *Field) clone() *Field {
	g := *f
	g.values = make([]complex128, len(f.values))
	return &g
}

// MulMask returns a new Field with every sample multiplied by 1 where keep
// is true and by 0 otherwise. keep is indexed (y*Width+x)*Wavelengths+c and
// broadcasts over the plane axis.
func (f *Field) MulMask(keep []bool) (*Field, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	n := f.shape.Pixels() * f.shape.Wavelengths
	if len(keep) != n {
		return nil, mismatch("mask", len(keep), n)
	}
	g := f.clone()
	for p := range f.shape.Planes {
		base := p * n
		for i, k := range keep {
			if k {
				g.values[base+i] = f.values[base+i]
			}
		}
	}
	return g, nil
}

// MulSpatial returns a new Field with every sample multiplied by the factor
// of its pixel. factors is indexed y*Width+x and broadcasts over planes and
// wavelengths.
func (f *Field) MulSpatial(factors []complex128) (*Field, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if len(factors) != f.shape.Pixels() {
		return nil, mismatch("spatial factors", len(factors), f.shape.Pixels())
	}
	for _, v := range factors {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return nil, invalid("spatial factors", cmplx.Abs(v), "factors must be finite")
		}
	}
	g := f.clone()
	nc := f.shape.Wavelengths
	for i, v := range f.values {
		g.values[i] = v * factors[(i/nc)%len(factors)]
	}
	return g, nil
}

// Scale returns a new Field with every sample multiplied by s.
func (f *Field) Scale(s complex128) (*Field, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if cmplx.IsNaN(s) || cmplx.IsInf(s) {
		return nil, invalid("scale", cmplx.Abs(s), "must be finite")
	}
	g := f.clone()
	for i, v := range f.values {
		g.values[i] = v * s
	}
	return g, nil
}

// ScalePlanes returns a new Field with plane p multiplied by s[p].
func (f *Field) ScalePlanes(s []float64) (*Field, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if len(s) != f.shape.Planes {
		return nil, mismatch("plane scale", len(s), f.shape.Planes)
	}
	g := f.clone()
	n := len(f.values) / f.shape.Planes
	for i, v := range f.values {
		g.values[i] = v * complex(s[i/n], 0)
	}
	return g, nil
}

// Replace returns a new Field carrying the given samples and spacing. A nil
// argument keeps the current value. Grids are rebuilt when the spacing
// changes.
func (f *Field) Replace(values []complex128, spacing []float64) (*Field, error) {
	if values == nil {
		values = f.values
	}
	if spacing == nil {
		spacing = f.spacing
	}
	return New(f.shape, spacing, f.spectrum, f.density, values)
}

// Intensity returns, for each plane, the spectral-density weighted sum of
// |u|^2 over wavelengths, indexed y*Width+x. f must be a Field built by this
// package; Intensity, Power and Slice panic on a nil or zero Field.
func (f *Field) Intensity() [][]float64 {
	s := f.shape
	out := make([][]float64, s.Planes)
	for p := range s.Planes {
		out[p] = make([]float64, s.Pixels())
		for i := range s.Pixels() {
			base := (p*s.Pixels() + i) * s.Wavelengths
			sum := 0.0
			for c := range s.Wavelengths {
				a := cmplx.Abs(f.values[base+c])
				sum += f.density[c] * a * a
			}
			out[p][i] = sum
		}
	}
	return out
}

// Power returns, for each plane, the integrated intensity: the sum over
// pixels and wavelengths of density * |u|^2 * spacing^2.
func (f *Field) Power() []float64 {
	s := f.shape
	out := make([]float64, s.Planes)
	for p := range s.Planes {
		sum := 0.0
		for i := range s.Pixels() {
			base := (p*s.Pixels() + i) * s.Wavelengths
			for c := range s.Wavelengths {
				a := cmplx.Abs(f.values[base+c])
				sum += f.density[c] * a * a * f.spacing[c] * f.spacing[c]
			}
		}
		out[p] = sum
	}
	return out
}

// Slice copies the Height*Width samples of plane p at wavelength c. It
// panics if p or c is out of range.
func (f *Field) Slice(p, c int) []complex128 {
	s := f.shape
	out := make([]complex128, s.Pixels())
	for i := range out {
		out[i] = f.values[(p*s.Pixels()+i)*s.Wavelengths+c]
	}
	return out
}

// SetSlice writes a plane/wavelength slice into a flat values buffer laid
// out for shape s. It is the inverse of Field.Slice.
func SetSlice(values []complex128, s Shape, p, c int, slice []complex128) error {
	if len(values) != s.Size() {
		return mismatch("values", len(values), s.Size())
	}
	if len(slice) != s.Pixels() {
		return mismatch("slice", len(slice), s.Pixels())
	}
	for i, v := range slice {
		values[(p*s.Pixels()+i)*s.Wavelengths+c] = v
	}
	return nil
}
