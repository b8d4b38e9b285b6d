package microscope

import (
	"bytes"
	"context"
	"log"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/fieldoptics/field"
	"github.com/bob-anderson-ok/fieldoptics/optics"
)

func randomDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewDense(r, c, data)
}

// directConvolve is the O(n^4) reference for Convolve.
func directConvolve(img, psf mat.Matrix, mode ConvMode, pad PaddingMode) *mat.Dense {
	h, w := img.Dims()
	ph, pw := psf.Dims()
	full := func(y, x int) float64 {
		sum := 0.0
		for ky := range ph {
			for kx := range pw {
				sum += sample2D(img, y-ky, x-kx, pad) * psf.At(ky, kx)
			}
		}
		return sum
	}
	var outH, outW, offY, offX int
	switch mode {
	case ConvSame:
		outH, outW, offY, offX = h, w, ph/2, pw/2
	case ConvFull:
		outH, outW = h+ph-1, w+pw-1
	case ConvValid:
		outH, outW, offY, offX = h-ph+1, w-pw+1, ph-1, pw-1
	}
	out := mat.NewDense(outH, outW, nil)
	for y := range outH {
		for x := range outW {
			out.Set(y, x, full(y+offY, x+offX))
		}
	}
	return out
}

func TestConvolveMatchesDirect(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	img := randomDense(rng, 9, 7)
	psf := randomDense(rng, 3, 4)

	for _, mode := range []ConvMode{ConvSame, ConvFull, ConvValid} {
		for _, pad := range []PaddingMode{PadZeros, PadReflect, PadReplicate, PadCircular} {
			got, err := Convolve(img, psf, mode, pad)
			require.NoError(t, err)
			want := directConvolve(img, psf, mode, pad)
			assert.True(t, mat.EqualApprox(got, want, 1e-10), "mode %d pad %d", mode, pad)
		}
	}
}

func TestConvolveWithDeltaIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	img := randomDense(rng, 8, 8)
	delta := mat.NewDense(5, 5, nil)
	delta.Set(2, 2, 1)

	got, err := Convolve(img, delta, ConvSame, PadZeros)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(got, img, 1e-12))
}

func TestConvolveErrors(t *testing.T) {
	img := mat.NewDense(3, 3, nil)
	psf := mat.NewDense(4, 4, nil)

	_, err := Convolve(img, psf, ConvValid, PadZeros)
	assert.Error(t, err)
	_, err = Convolve(img, psf, ConvMode(9), PadZeros)
	assert.Error(t, err)
	_, err = Convolve(&mat.Dense{}, psf, ConvSame, PadZeros)
	assert.ErrorIs(t, err, ErrEmptyOperand)
}

func TestPartition(t *testing.T) {
	assert.Equal(t, []Chunk{{0, 32}, {32, 64}, {64, 96}, {96, 128}}, Partition(128, 4))
	assert.Equal(t, []Chunk{{0, 4}, {4, 8}, {8, 10}}, Partition(10, 3))
	assert.Equal(t, []Chunk{{0, 1}, {1, 2}}, Partition(2, 8))
	assert.Equal(t, []Chunk{{0, 5}}, Partition(5, 0))
	assert.Nil(t, Partition(0, 4))
}

func testMicroscope(workers int) *Microscope {
	src := &optics.ObjectivePointSource{
		Height:   16,
		Width:    16,
		Spacing:  []float64{0.3},
		Spectrum: []float64{0.532},
		F:        100,
		N:        1.33,
		NA:       0.8,
	}
	n := 16
	return &Microscope{
		System: &optics.System{
			Source: src,
			Elements: []optics.Element{
				&optics.PhaseMask{Phase: optics.FlatPhase(n, n)},
				&optics.FFLens{F: src.F, N: src.N},
			},
		},
		Workers: workers,
	}
}

func testVolume(planes int) ([]*mat.Dense, []float64) {
	rng := rand.New(rand.NewSource(6022))
	volume := make([]*mat.Dense, planes)
	z := make([]float64, planes)
	for i := range volume {
		volume[i] = randomDense(rng, 16, 16)
		z[i] = -4 + 8*float64(i)/float64(planes-1)
	}
	return volume, z
}

func TestPSFPowerPerPlane(t *testing.T) {
	m := testMicroscope(1)
	psf, err := m.PSF([]float64{-1, 0, 1})
	require.NoError(t, err)
	require.Len(t, psf, 3)

	// The lens conserves power; the output grid spacing scales the sum.
	for _, p := range psf {
		r, c := p.Dims()
		assert.Equal(t, 16, r)
		assert.Equal(t, 16, c)
		assert.Greater(t, mat.Sum(p), 0.0)
	}
	assert.InDelta(t, mat.Sum(psf[0]), mat.Sum(psf[2]), 1e-9*mat.Sum(psf[0]))
}

func TestParallelImageMatchesSerial(t *testing.T) {
	volume, z := testVolume(12)

	serial, err := testMicroscope(1).Image(context.Background(), volume, z)
	require.NoError(t, err)

	var buf bytes.Buffer
	m := testMicroscope(4)
	m.Logger = log.New(&buf, "", 0)
	parallel, err := m.Image(context.Background(), volume, z)
	require.NoError(t, err)

	scale := mat.Max(serial)
	assert.True(t, floats.EqualApprox(serial.RawMatrix().Data, parallel.RawMatrix().Data, 1e-9*scale))
	assert.Contains(t, buf.String(), "chunk 3: planes [9,12)")
}

func TestImageIsSumOfPlanes(t *testing.T) {
	volume, z := testVolume(3)
	m := testMicroscope(2)

	whole, err := m.Image(context.Background(), volume, z)
	require.NoError(t, err)

	sum := mat.NewDense(16, 16, nil)
	for i := range volume {
		img, err := m.Image(context.Background(), volume[i:i+1], z[i:i+1])
		require.NoError(t, err)
		sum.Add(sum, img)
	}
	assert.True(t, mat.EqualApprox(whole, sum, 1e-9*mat.Max(whole)))
}

func TestImageErrors(t *testing.T) {
	volume, z := testVolume(4)
	m := testMicroscope(2)

	_, err := m.Image(context.Background(), volume[:3], z)
	assert.ErrorIs(t, err, field.ErrShapeMismatch)

	_, err = m.Image(context.Background(), nil, nil)
	assert.ErrorIs(t, err, field.ErrInvalidParameter)

	odd := append([]*mat.Dense{mat.NewDense(8, 8, nil)}, volume[1:]...)
	_, err = m.Image(context.Background(), odd, z)
	assert.ErrorIs(t, err, field.ErrShapeMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Image(ctx, volume, z)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = (&Microscope{}).PSF(z)
	assert.Error(t, err)
}

// cancellingSource counts the planes it builds and cancels the imaging
// context after the first one.
type cancellingSource struct {
	optics.Source
	cancel context.CancelFunc
	calls  int
}

func (s *cancellingSource) Field(z []float64) (*field.Field, error) {
	s.calls++
	s.cancel()
	return s.Source.Field(z)
}

func TestImageStopsBetweenPlanes(t *testing.T) {
	volume, z := testVolume(6)
	m := testMicroscope(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &cancellingSource{Source: m.System.Source, cancel: cancel}
	m.System.Source = src

	_, err := m.Image(ctx, volume, z)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, src.calls)
}
