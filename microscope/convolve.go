package microscope

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/fieldoptics/field"
)

type ConvMode int

const (
	ConvSame ConvMode = iota
	ConvFull
	ConvValid
)

type PaddingMode int

const (
	PadZeros PaddingMode = iota
	PadReflect
	PadReplicate
	PadCircular
)

var ErrEmptyOperand = errors.New("empty image or psf")

// Convolve convolves img with psf using a 2D FFT.
//
// For ConvSame the psf is taken as centred on sample (Ph/2, Pw/2) and the
// output has the shape of img. Padding decides what lies beyond the edges
// of img.
func Convolve(img, psf mat.Matrix, mode ConvMode, pad PaddingMode) (*mat.Dense, error) {
	h, w := img.Dims()
	ph, pw := psf.Dims()
	if h == 0 || w == 0 || ph == 0 || pw == 0 {
		return nil, ErrEmptyOperand
	}

	var outH, outW, offY, offX int
	switch mode {
	case ConvSame:
		outH, outW = h, w
		offY, offX = ph/2, pw/2
	case ConvFull:
		outH, outW = h+ph-1, w+pw-1
	case ConvValid:
		outH, outW = h-ph+1, w-pw+1
		offY, offX = ph-1, pw-1
		if outH <= 0 || outW <= 0 {
			return nil, errors.New("valid convolution requested but psf larger than image")
		}
	default:
		return nil, errors.New("unknown ConvMode")
	}

	// Non-zero padding is materialised as a border wide enough for any mode.
	padY, padX := 0, 0
	if pad != PadZeros {
		padY, padX = ph-1, pw-1
	}
	eh, ew := h+2*padY, w+2*padX

	fh := nextPow2(eh + ph - 1)
	fw := nextPow2(ew + pw - 1)

	a := make([]complex128, fh*fw)
	b := make([]complex128, fh*fw)
	for y := range eh {
		for x := range ew {
			a[y*fw+x] = complex(sample2D(img, y-padY, x-padX, pad), 0)
		}
	}
	for y := range ph {
		for x := range pw {
			b[y*fw+x] = complex(psf.At(y, x), 0)
		}
	}

	fft := field.NewFFT2D(fh, fw)
	if err := fft.Forward(a); err != nil {
		return nil, err
	}
	if err := fft.Forward(b); err != nil {
		return nil, err
	}
	for i := range a {
		a[i] *= b[i]
	}
	if err := fft.Inverse(a); err != nil {
		return nil, err
	}

	out := mat.NewDense(outH, outW, nil)
	for y := range outH {
		for x := range outW {
			out.Set(y, x, real(a[(y+offY+padY)*fw+x+offX+padX]))
		}
	}
	return out, nil
}

func sample2D(img mat.Matrix, y, x int, mode PaddingMode) float64 {
	h, w := img.Dims()
	if 0 <= y && y < h && 0 <= x && x < w {
		return img.At(y, x)
	}

	switch mode {
	case PadReplicate:
		return img.At(clamp(y, 0, h-1), clamp(x, 0, w-1))
	case PadReflect:
		return img.At(reflectIndex(y, h), reflectIndex(x, w))
	case PadCircular:
		return img.At(mod(y, h), mod(x, w))
	}
	return 0
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}

// reflectIndex mirrors i into [0, n) without repeating the edge sample:
// for n=5 ... 2 1 0 1 2 3 4 3 2 1 0 1 ...
func reflectIndex(i, n int) int {
	if n <= 1 {
		return 0
	}
	period := 2*n - 2
	i = mod(i, period)
	if i >= n {
		i = period - i
	}
	return i
}
