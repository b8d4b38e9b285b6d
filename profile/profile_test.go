package profile

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestHorizontalCut(t *testing.T) {
	c, err := NewCut(11, 0, 0)
	require.NoError(t, err)

	assert.InDelta(t, 0, c.StartX, 1e-12)
	assert.InDelta(t, 5, c.StartY, 1e-12)
	assert.InDelta(t, 10, c.EndX, 1e-12)
	assert.InDelta(t, 5, c.EndY, 1e-12)
	assert.Len(t, c.Samples, 11)
}

func TestVerticalCutRunsUpwards(t *testing.T) {
	c, err := NewCut(11, 90, 0)
	require.NoError(t, err)

	assert.InDelta(t, 5, c.StartX, 1e-9)
	assert.InDelta(t, 10, c.StartY, 1e-9)
	assert.InDelta(t, 5, c.EndX, 1e-9)
	assert.InDelta(t, 0, c.EndY, 1e-9)
	assert.Len(t, c.Samples, 11)
}

func TestCutMissingImage(t *testing.T) {
	_, err := NewCut(11, 0, 20)
	assert.ErrorIs(t, err, ErrNoIntersection)

	_, err = NewCut(1, 0, 0)
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	m := mat.NewDense(11, 11, nil)
	for y := range 11 {
		for x := range 11 {
			m.Set(y, x, float64(x))
		}
	}

	c, err := NewCut(11, 0, 2)
	require.NoError(t, err)
	points := c.Extract(m, 0.5)
	require.Len(t, points, 11)
	for k, p := range points {
		assert.InDelta(t, 0.5*float64(k), p.Distance, 1e-12)
		assert.InDelta(t, float64(k), p.Intensity, 1e-8)
	}
}

func TestInterpolateBetweenPixels(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0, 1, 2, 3})
	assert.InDelta(t, 1.5, interpolate(m, 0.5, 0.5), 1e-12)
	assert.InDelta(t, 3, interpolate(m, 5, 5), 1e-8)
	assert.InDelta(t, 0, interpolate(m, -1, -1), 1e-12)
}

func TestStepTicks(t *testing.T) {
	ticks := StepTicks{Step: 0.25, Format: "%.2f"}.Ticks(0, 1)
	require.Len(t, ticks, 5)
	assert.Equal(t, "0.50", ticks[2].Label)

	assert.Empty(t, StepTicks{}.Ticks(0, 1))
}

func TestStepTicksNoDrift(t *testing.T) {
	ticks := StepTicks{Step: 0.1, Format: "%.1f"}.Ticks(0, 10)
	require.Len(t, ticks, 101)
	for k, tick := range ticks {
		assert.Equal(t, float64(k)*0.1, tick.Value)
	}
	assert.Equal(t, "10.0", ticks[100].Label)

	ticks = StepTicks{Step: 0.25, Format: "%.2f"}.Ticks(-0.6, 0.6)
	require.Len(t, ticks, 5)
	assert.Equal(t, -0.5, ticks[0].Value)
	assert.Equal(t, 0.5, ticks[4].Value)
}

func TestStepTicksCapped(t *testing.T) {
	ticks := StepTicks{Step: 1e-12, Format: "%g"}.Ticks(0, 1)
	assert.Len(t, ticks, maxTicks)
}

func TestPlotSize(t *testing.T) {
	points := []Point{{0, 0}, {1, 1}, {2, 4}, {3, 1}, {4, 0}}
	img, err := Plot(points, "psf", "x (um)", 400, 300)
	require.NoError(t, err)
	assert.InDelta(t, 400, img.Bounds().Dx(), 1)
	assert.InDelta(t, 300, img.Bounds().Dy(), 1)

	_, err = Plot(points[:1], "psf", "x", 400, 300)
	assert.Error(t, err)
}

func TestSavePlot(t *testing.T) {
	name := filepath.Join(t.TempDir(), "profile.png")
	points := []Point{{0, 1}, {1, 2}, {2, 1}}
	require.NoError(t, SavePlot(name, points, "psf", "x", 200, 150))

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.InDelta(t, 200, img.Bounds().Dx(), 1)
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(name)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return name
}

func TestLoadPNG(t *testing.T) {
	img16 := image.NewGray16(image.Rect(0, 0, 3, 2))
	img16.SetGray16(2, 1, color.Gray16{Y: 1000})
	m, err := LoadPNG(writePNG(t, img16), 1000)
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.InDelta(t, 1.0, m.At(1, 2), 1e-12)
	assert.Zero(t, m.At(0, 0))

	img8 := image.NewGray(image.Rect(0, 0, 2, 2))
	img8.SetGray(0, 1, color.Gray{Y: 255})
	m, err = LoadPNG(writePNG(t, img8), 65535)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.At(1, 0), 1e-12)

	_, err = LoadPNG(filepath.Join(t.TempDir(), "missing.png"), 1)
	assert.Error(t, err)
	_, err = LoadPNG("unused.png", 0)
	assert.Error(t, err)
}
