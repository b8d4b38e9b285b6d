package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"sort"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// finiteSamples returns the finite pixels of an intensity image in row
// order. NaN and Inf pixels are skipped.
func finiteSamples(m mat.Matrix) ([]float64, error) {
	h, w := m.Dims()
	if h == 0 || w == 0 {
		return nil, errors.New("empty image")
	}
	vals := make([]float64, 0, h*w)
	for y := range h {
		for x := range w {
			if v := m.At(y, x); !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return nil, errors.New("image has no finite pixels")
	}
	return vals, nil
}

// scientificImage maps the widefield intensity to 16 bits so the brightest
// finite pixel is 65535. It returns the image and the counts per unit
// intensity used. Negative and non-finite pixels become 0.
func scientificImage(m mat.Matrix) (*image.Gray16, float64, error) {
	vals, err := finiteSamples(m)
	if err != nil {
		return nil, 0, err
	}
	peak := floats.Max(vals)
	if !(peak > 0) {
		return nil, 0, fmt.Errorf("image has no positive pixels")
	}
	scale := 65535 / peak

	h, w := m.Dims()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := m.At(y, x) * scale
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(math.Max(0, math.Min(v, 65535))))})
		}
	}
	return img, scale, nil
}

// displayImage stretches the widefield intensity between the pLow and pHigh
// percentiles of its finite pixels onto 0..255. Pixels outside the range are
// clamped. A flat image is black.
func displayImage(m mat.Matrix, pLow, pHigh float64) (*image.Gray, error) {
	if !(0 <= pLow && pLow < pHigh && pHigh <= 100) {
		return nil, fmt.Errorf("display percentiles %g, %g must satisfy 0 <= low < high <= 100", pLow, pHigh)
	}
	vals, err := finiteSamples(m)
	if err != nil {
		return nil, err
	}
	sort.Float64s(vals)
	lo, hi := percentile(vals, pLow), percentile(vals, pHigh)
	if hi == lo {
		hi = lo + 1
	}

	h, w := m.Dims()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := m.At(y, x)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			t := math.Max(0, math.Min((v-lo)/(hi-lo), 1))
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(t * 255))})
		}
	}
	return img, nil
}

// percentile of sorted values; 0 and 100 are the extremes.
func percentile(sorted []float64, p float64) float64 {
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return stat.Quantile(p/100, stat.Empirical, sorted, nil)
}

// resizeForDisplay scales img to size x size pixels. A size of 0 or the
// native size returns img unchanged.
func resizeForDisplay(img *image.Gray, size int) *image.Gray {
	b := img.Bounds()
	if size <= 0 || (b.Dx() == size && b.Dy() == size) {
		return img
	}
	dst := image.NewGray(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func SavePNG(filename string, img image.Image) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}
