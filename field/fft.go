package field

import "gonum.org/v1/gonum/dsp/fourier"

// FFT2D transforms row-major Height x Width complex grids. It keeps its
// gonum plans and column scratch between calls and is not safe for
// concurrent use.
type FFT2D struct {
	h, w    int
	rowFFT  *fourier.CmplxFFT
	colFFT  *fourier.CmplxFFT
	column  []complex128
	scratch []complex128
}

// NewFFT2D returns a transformer for h x w grids.
func NewFFT2D(h, w int) *FFT2D {
	return &FFT2D{
		h:       h,
		w:       w,
		rowFFT:  fourier.NewCmplxFFT(w),
		colFFT:  fourier.NewCmplxFFT(h),
		column:  make([]complex128, h),
		scratch: make([]complex128, w),
	}
}

// Forward replaces data with its unnormalised 2D DFT.
func (t *FFT2D) Forward(data []complex128) error {
	return t.transform(data, true)
}

// Inverse replaces data with its inverse 2D DFT, normalised so that
// Inverse(Forward(x)) == x.
func (t *FFT2D) Inverse(data []complex128) error {
	if err := t.transform(data, false); err != nil {
		return err
	}
	scale := complex(1/float64(t.h*t.w), 0)
	for i := range data {
		data[i] *= scale
	}
	return nil
}

func (t *FFT2D) transform(data []complex128, forward bool) error {
	if len(data) != t.h*t.w {
		return mismatch("fft grid", len(data), t.h*t.w)
	}

	for y := range t.h {
		row := data[y*t.w : (y+1)*t.w]
		copy(t.scratch, row)
		if forward {
			t.rowFFT.Coefficients(row, t.scratch)
		} else {
			t.rowFFT.Sequence(row, t.scratch)
		}
	}

	for x := range t.w {
		for y := range t.h {
			t.column[y] = data[y*t.w+x]
		}
		if forward {
			t.colFFT.Coefficients(t.column, t.column)
		} else {
			t.colFFT.Sequence(t.column, t.column)
		}
		for y := range t.h {
			data[y*t.w+x] = t.column[y]
		}
	}
	return nil
}

// FFTShift moves the zero-frequency sample of an h x w grid to index
// (h/2, w/2).
func FFTShift(data []complex128, h, w int) []complex128 {
	return roll(data, h, w, h/2, w/2)
}

// IFFTShift undoes FFTShift for grids of either parity.
func IFFTShift(data []complex128, h, w int) []complex128 {
	return roll(data, h, w, -(h / 2), -(w / 2))
}

func roll(data []complex128, h, w, dy, dx int) []complex128 {
	out := make([]complex128, len(data))
	for y := range h {
		yy := mod(y+dy, h)
		for x := range w {
			out[yy*w+mod(x+dx, w)] = data[y*w+x]
		}
	}
	return out
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
