// Package profile extracts intensity profiles along straight cuts through
// square images (PSFs, simulated widefield images) and plots them.
package profile

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrNoIntersection is returned when a cut misses the image.
var ErrNoIntersection = errors.New("line does not intersect square")

// Sample is a point on a cut in pixel coordinates (x = column, y = row).
type Sample struct {
	X, Y     float64
	Distance float64 // pixels from the start of the cut
}

// Point is one value of an extracted profile.
type Point struct {
	Distance  float64
	Intensity float64
}

// Cut is a straight line through a Size x Size image. Angle is measured
// counter-clockwise from the +x (column) axis as the image is displayed, so
// 0 runs left to right along a row and 90 runs bottom to top. Offset moves
// the line perpendicular to itself, away from the image centre.
type Cut struct {
	Size         int
	AngleDegrees float64
	Offset       float64

	StartX, StartY float64
	EndX, EndY     float64
	Samples        []Sample
}

// NewCut computes the end points of the cut and samples it at 1-pixel steps.
func NewCut(size int, angleDegrees, offset float64) (*Cut, error) {
	if size < 2 {
		return nil, fmt.Errorf("cut needs an image of at least 2x2 pixels, got %d", size)
	}
	c := &Cut{Size: size, AngleDegrees: angleDegrees, Offset: offset}

	theta := angleDegrees * math.Pi / 180.0
	dx, dy := math.Cos(theta), -math.Sin(theta)

	edge := float64(size - 1)
	centre := edge / 2
	x0 := centre + offset*math.Sin(theta)
	y0 := centre + offset*math.Cos(theta)

	tMin, tMax, ok := squareIntersections(x0, y0, dx, dy, edge)
	if !ok {
		return nil, ErrNoIntersection
	}
	c.StartX, c.StartY = x0+tMin*dx, y0+tMin*dy
	c.EndX, c.EndY = x0+tMax*dx, y0+tMax*dy

	for k := 0.0; k <= tMax-tMin+1e-9; k++ {
		c.Samples = append(c.Samples, Sample{
			X:        c.StartX + k*dx,
			Y:        c.StartY + k*dy,
			Distance: k,
		})
	}
	return c, nil
}

// squareIntersections returns the smallest and largest line parameter t at
// which (x0,y0)+t*(dx,dy) lies on the boundary of [0,edge]^2.
func squareIntersections(x0, y0, dx, dy, edge float64) (tMin, tMax float64, ok bool) {
	const tol = 1e-9
	tMin, tMax = math.Inf(1), math.Inf(-1)
	consider := func(t, other float64) {
		if other >= -tol && other <= edge+tol {
			tMin = math.Min(tMin, t)
			tMax = math.Max(tMax, t)
		}
	}

	if math.Abs(dx) > 1e-12 {
		for _, x := range []float64{0, edge} {
			t := (x - x0) / dx
			consider(t, y0+t*dy)
		}
	}
	if math.Abs(dy) > 1e-12 {
		for _, y := range []float64{0, edge} {
			t := (y - y0) / dy
			consider(t, x0+t*dx)
		}
	}
	return tMin, tMax, tMax-tMin > tol
}

// Extract samples m along the cut. Distances are multiplied by spacing, the
// physical size of one pixel.
func (c *Cut) Extract(m mat.Matrix, spacing float64) []Point {
	points := make([]Point, len(c.Samples))
	for i, s := range c.Samples {
		points[i] = Point{
			Distance:  s.Distance * spacing,
			Intensity: interpolate(m, s.X, s.Y),
		}
	}
	return points
}

// interpolate performs bilinear interpolation of m at column x, row y,
// clamping to the image edges.
func interpolate(m mat.Matrix, x, y float64) float64 {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return 0
	}
	if rows == 1 || cols == 1 {
		return m.At(int(math.Round(clampF(y, 0, float64(rows-1)))), int(math.Round(clampF(x, 0, float64(cols-1)))))
	}

	x = clampF(x, 0, float64(cols-1)-1e-9)
	y = clampF(y, 0, float64(rows-1)-1e-9)

	x0, y0 := int(x), int(y)
	xFrac, yFrac := x-float64(x0), y-float64(y0)

	v0 := m.At(y0, x0)*(1-xFrac) + m.At(y0, x0+1)*xFrac
	v1 := m.At(y0+1, x0)*(1-xFrac) + m.At(y0+1, x0+1)*xFrac
	return v0*(1-yFrac) + v1*yFrac
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// LoadPNG reads a grayscale PNG back into a matrix, intensity = Y16 / scale.
// 8-bit images are widened to 16 bits first, colour images are converted to
// gray.
func LoadPNG(filename string, scale float64) (m *mat.Dense, err error) {
	if !(scale > 0) {
		return nil, fmt.Errorf("scale must be > 0, got %g", scale)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}

	b := img.Bounds()
	m = mat.NewDense(b.Dy(), b.Dx(), nil)
	for y := range b.Dy() {
		for x := range b.Dx() {
			g := color.Gray16Model.Convert(img.At(x+b.Min.X, y+b.Min.Y)).(color.Gray16)
			m.Set(y, x, float64(g.Y)/scale)
		}
	}
	return m, nil
}

// maxTicks bounds the axis when Step is tiny compared with the range.
const maxTicks = 1000

// StepTicks places ticks at multiples of Step, at most maxTicks of them.
type StepTicks struct {
	Step   float64
	Format string
}

func (t StepTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	if !(t.Step > 0) {
		return ticks
	}
	first := math.Ceil(min / t.Step)
	for k := range maxTicks {
		v := (first + float64(k)) * t.Step
		if v > max {
			break
		}
		ticks = append(ticks, plot.Tick{
			Value: v,
			Label: fmt.Sprintf(t.Format, v),
		})
	}
	return ticks
}

func setFont(f *font.Font, size float64) {
	f.Typeface = "Liberation"
	f.Variant = "Sans"
	f.Size = vg.Points(size)
}

// Plot renders the profile as a line plot of wPx x hPx pixels.
func Plot(points []Point, title, xLabel string, wPx, hPx float64) (image.Image, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("profile needs at least 2 points, got %d", len(points))
	}

	p := plot.New()
	setFont(&p.Title.TextStyle.Font, 12)
	setFont(&p.X.Label.TextStyle.Font, 12)
	setFont(&p.Y.Label.TextStyle.Font, 12)
	setFont(&p.X.Tick.Label.Font, 10)
	setFont(&p.Y.Tick.Label.Font, 10)

	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "intensity"

	span := points[len(points)-1].Distance - points[0].Distance
	p.X.Tick.Marker = StepTicks{Step: span / 10, Format: "%.2f"}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(points))
	for i, pt := range points {
		pts[i].X = pt.Distance
		pts[i].Y = pt.Intensity
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{B: 255, A: 255}
	p.Add(line)

	// zero line
	hline, err := plotter.NewLine(plotter.XYs{
		{X: points[0].Distance, Y: 0},
		{X: points[len(points)-1].Distance, Y: 0},
	})
	if err != nil {
		return nil, err
	}
	hline.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	hline.Color = color.RGBA{A: 255}
	p.Add(hline)

	const dpi = 96
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(wPx)*vg.Inch/dpi, vg.Length(hPx)*vg.Inch/dpi),
		vgimg.UseDPI(dpi),
	)
	p.Draw(vgdraw.New(c))
	return c.Image(), nil
}

// SavePlot renders the profile and writes it as a PNG.
func SavePlot(filename string, points []Point, title, xLabel string, wPx, hPx float64) (err error) {
	img, err := Plot(points, title, xLabel, wPx, hPx)
	if err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return png.Encode(f, img)
}
