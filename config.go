package main

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	json "github.com/KevinWang15/go-json5"
)

// Params holds everything read from the parameter file. Lengths are in
// microns.
type Params struct {
	ShapePixels       int
	SpacingUm         float64 // spacing of the final PSF
	SpectrumUm        []float64
	SpectralDensity   []float64
	FocalLengthUm     float64
	RefractiveIndex   float64
	NumericalAperture float64
	NumPlanes         int
	ZMinUm            float64
	ZMaxUm            float64
	NumWorkers        int
	Repeats           int
	Pupil             string
	PupilWidthUm      float64
	OutputFolder      string
	SamplePNG         string // optional sample plane, ones if empty
	DisplaySizePixels int
	DisplayLowHigh    []float64 // percentile stretch of the 8 bit image
	ShowInput         bool
}

// parseParamTable decodes the parameter file into a generic table. Files
// ending in .toml are read as TOML, everything else as json5.
func parseParamTable(path string, data []byte) (map[string]interface{}, error) {
	var table map[string]interface{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, err
		}
		return table, nil
	}
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	return table, nil
}

func getLeafValue(table map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = table
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// asFloat accepts json5 numbers (float64) and TOML integers (int64).
func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func getFloat(table map[string]interface{}, key string, required bool, dst *float64) (string, bool) {
	v, ok := getLeafValue(table, key)
	if !ok {
		if required {
			return key + ": not found", false
		}
		return "", true
	}
	f, ok := asFloat(v)
	if !ok {
		return key + ": is not a float64", false
	}
	*dst = f
	return "", true
}

func getInt(table map[string]interface{}, key string, required bool, dst *int) (string, bool) {
	f := float64(*dst)
	msg, ok := getFloat(table, key, required, &f)
	if !ok {
		return msg, false
	}
	if f != float64(int(f)) {
		return key + ": is not an integer", false
	}
	*dst = int(f)
	return "", true
}

// getFloatList reads either a single number or an array of numbers.
func getFloatList(table map[string]interface{}, key string, required bool, dst *[]float64) (string, bool) {
	v, ok := getLeafValue(table, key)
	if !ok {
		if required {
			return key + ": not found", false
		}
		return "", true
	}
	if f, ok := asFloat(v); ok {
		*dst = []float64{f}
		return "", true
	}
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return key + ": is not a number or a non-empty array of numbers", false
	}
	out := make([]float64, len(list))
	for i, item := range list {
		f, ok := asFloat(item)
		if !ok {
			return fmt.Sprintf("%s[%d]: is not a float64", key, i), false
		}
		out[i] = f
	}
	*dst = out
	return "", true
}

func getString(table map[string]interface{}, key string, dst *string) (string, bool) {
	v, ok := getLeafValue(table, key)
	if !ok {
		return "", true
	}
	s, ok := v.(string)
	if !ok {
		return key + ": is not a string", false
	}
	*dst = s
	return "", true
}

func validateTableAndFillParams(table map[string]interface{}, p *Params) (string, bool) {
	msg := "No problem found in parameter file" // presumed success

	// defaults
	*p = Params{
		NumPlanes:    128,
		ZMinUm:       -4,
		ZMaxUm:       4,
		NumWorkers:   runtime.GOMAXPROCS(0),
		Repeats:      10,
		Pupil:          "none",
		OutputFolder:   ".",
		DisplayLowHigh: []float64{0, 100},
	}

	showInput, ok := getLeafValue(table, "show_input_bool")
	if ok {
		p.ShowInput, ok = showInput.(bool)
		if !ok {
			return "show_input_bool: is not a bool", false
		}
	}

	steps := []func() (string, bool){
		func() (string, bool) { return getInt(table, "shape_pixels", true, &p.ShapePixels) },
		func() (string, bool) { return getFloat(table, "spacing_um", true, &p.SpacingUm) },
		func() (string, bool) { return getFloatList(table, "spectrum_um", true, &p.SpectrumUm) },
		func() (string, bool) { return getFloatList(table, "spectral_density", false, &p.SpectralDensity) },
		func() (string, bool) { return getFloat(table, "focal_length_um", true, &p.FocalLengthUm) },
		func() (string, bool) { return getFloat(table, "refractive_index", true, &p.RefractiveIndex) },
		func() (string, bool) { return getFloat(table, "numerical_aperture", true, &p.NumericalAperture) },
		func() (string, bool) { return getInt(table, "num_planes", false, &p.NumPlanes) },
		func() (string, bool) { return getFloat(table, "z_min_um", false, &p.ZMinUm) },
		func() (string, bool) { return getFloat(table, "z_max_um", false, &p.ZMaxUm) },
		func() (string, bool) { return getInt(table, "num_workers", false, &p.NumWorkers) },
		func() (string, bool) { return getInt(table, "repeats", false, &p.Repeats) },
		func() (string, bool) { return getString(table, "pupil", &p.Pupil) },
		func() (string, bool) { return getFloat(table, "pupil_width_um", false, &p.PupilWidthUm) },
		func() (string, bool) { return getString(table, "output_folder", &p.OutputFolder) },
		func() (string, bool) { return getString(table, "sample_png", &p.SamplePNG) },
		func() (string, bool) { return getInt(table, "display_size_pixels", false, &p.DisplaySizePixels) },
		func() (string, bool) { return getFloatList(table, "display_percentiles", false, &p.DisplayLowHigh) },
	}
	for _, step := range steps {
		if msg, ok := step(); !ok {
			return msg, false
		}
	}

	if p.SpectralDensity == nil {
		p.SpectralDensity = make([]float64, len(p.SpectrumUm))
		for i := range p.SpectralDensity {
			p.SpectralDensity[i] = 1
		}
	}

	// Sanity checks on the values themselves
	switch {
	case p.ShapePixels < 2:
		return "shape_pixels: must be at least 2", false
	case p.SpacingUm <= 0:
		return "spacing_um: must be positive", false
	case len(p.SpectralDensity) != len(p.SpectrumUm):
		return fmt.Sprintf("spectral_density: has %d entries but spectrum_um has %d",
			len(p.SpectralDensity), len(p.SpectrumUm)), false
	case p.FocalLengthUm <= 0:
		return "focal_length_um: must be positive", false
	case p.RefractiveIndex <= 0:
		return "refractive_index: must be positive", false
	case p.NumericalAperture <= 0 || p.NumericalAperture > p.RefractiveIndex:
		return "numerical_aperture: must be positive and not exceed refractive_index", false
	case p.NumPlanes < 1:
		return "num_planes: must be at least 1", false
	case p.ZMaxUm < p.ZMinUm:
		return "z_max_um: must not be less than z_min_um", false
	case p.Repeats < 1:
		return "repeats: must be at least 1", false
	case p.DisplaySizePixels < 0:
		return "display_size_pixels: must not be negative", false
	case len(p.DisplayLowHigh) != 2:
		return "display_percentiles: must be [low, high]", false
	case !(0 <= p.DisplayLowHigh[0] && p.DisplayLowHigh[0] < p.DisplayLowHigh[1] && p.DisplayLowHigh[1] <= 100):
		return "display_percentiles: must satisfy 0 <= low < high <= 100", false
	}
	for i, lambda := range p.SpectrumUm {
		if lambda <= 0 {
			return fmt.Sprintf("spectrum_um[%d]: must be positive", i), false
		}
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = runtime.GOMAXPROCS(0)
	}

	p.Pupil = strings.ToLower(p.Pupil)
	switch p.Pupil {
	case "none":
	case "circular", "square":
		if p.PupilWidthUm <= 0 {
			return "pupil_width_um: must be positive when a pupil is requested", false
		}
	default:
		return fmt.Sprintf("pupil: %q is not one of circular, square, none", p.Pupil), false
	}

	return msg, true
}
