// Package microscope images a sample volume through an optical system.
//
// Every depth plane of the sample is convolved with the system's point
// spread function at that depth and the planes are summed. The planes are
// split into contiguous chunks, one per worker; each worker builds the PSF
// of each plane in its chunk as it reaches it and returns a partial sum, and the partial sums are
// added in chunk order.
package microscope

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/fieldoptics/field"
	"github.com/bob-anderson-ok/fieldoptics/optics"
)

// Microscope couples an optical system to a widefield imaging model.
type Microscope struct {
	System  *optics.System
	Workers int         // <= 0 means GOMAXPROCS
	Logger  *log.Logger // nil is silent
}

// Chunk is the half-open plane range [Start, End) handled by one worker.
type Chunk struct {
	Start, End int
}

// Partition splits n planes into at most parts contiguous chunks of equal
// size, the last one possibly shorter.
func Partition(n, parts int) []Chunk {
	if n <= 0 {
		return nil
	}
	parts = max(1, min(parts, n))
	size := (n + parts - 1) / parts

	var chunks []Chunk
	for start := 0; start < n; start += size {
		chunks = append(chunks, Chunk{Start: start, End: min(start+size, n)})
	}
	return chunks
}

func (m *Microscope) workers() int {
	if m.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return m.Workers
}

func (m *Microscope) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
	}
}

// PSF returns the intensity point spread function for every depth in z.
func (m *Microscope) PSF(z []float64) ([]*mat.Dense, error) {
	if m.System == nil {
		return nil, fmt.Errorf("microscope has no optical system")
	}
	f, err := m.System.Run(z)
	if err != nil {
		return nil, err
	}
	s := f.Shape()
	psf := make([]*mat.Dense, s.Planes)
	for p, plane := range f.Intensity() {
		psf[p] = mat.NewDense(s.Height, s.Width, plane)
	}
	return psf, nil
}

// Image returns the sum over planes of volume[i] convolved with the PSF at
// depth z[i]. All volume planes must have the same shape.
func (m *Microscope) Image(ctx context.Context, volume []*mat.Dense, z []float64) (*mat.Dense, error) {
	if len(volume) != len(z) {
		return nil, &field.ShapeMismatchError{What: "volume planes", Have: len(volume), Want: len(z)}
	}
	if len(z) == 0 {
		return nil, &field.InvalidParameterError{Name: "planes", Value: 0, Reason: "at least one plane is required"}
	}
	h, w := volume[0].Dims()
	for _, v := range volume[1:] {
		if r, c := v.Dims(); r != h || c != w {
			return nil, &field.ShapeMismatchError{What: "volume plane size", Have: r * c, Want: h * w}
		}
	}

	chunks := Partition(len(z), m.workers())
	partial := make([]*mat.Dense, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	for i, ch := range chunks {
		g.Go(func() error {
			start := time.Now()
			img, err := m.imageChunk(ctx, volume[ch.Start:ch.End], z[ch.Start:ch.End])
			if err != nil {
				return fmt.Errorf("planes [%d,%d): %w", ch.Start, ch.End, err)
			}
			partial[i] = img
			m.logf("chunk %d: planes [%d,%d) took %s", i, ch.Start, ch.End, time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	image := mat.NewDense(h, w, nil)
	for _, p := range partial {
		image.Add(image, p)
	}
	return image, nil
}

// imageChunk builds the PSF one plane at a time so a cancelled ctx stops the
// chunk before the next plane's optics run.
func (m *Microscope) imageChunk(ctx context.Context, volume []*mat.Dense, z []float64) (*mat.Dense, error) {
	h, w := volume[0].Dims()
	sum := mat.NewDense(h, w, nil)
	for i := range volume {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		psf, err := m.PSF(z[i : i+1])
		if err != nil {
			return nil, err
		}
		img, err := Convolve(volume[i], psf[0], ConvSame, PadZeros)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, img)
	}
	return sum, nil
}
