package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bob-anderson-ok/fieldoptics/microscope"
	"github.com/bob-anderson-ok/fieldoptics/profile"
)

const version = "1_0_0"

func main() {

	programStart := time.Now()

	args := os.Args
	if len(args) != 2 {
		fmt.Println("\n\tWrong number of arguments.\n\tUsage: fieldoptics <parameter-file>")
		os.Exit(1)
	}
	path := args[1]

	// Read the json5 (or TOML) parameter file
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tAttempt to read input file %q failed: %w\n", path, err))
		os.Exit(2)
	}

	table, err := parseParamTable(path, data)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tFormat error in file %q: %w\n", path, err))
		os.Exit(3)
	}

	var params Params
	msg, ok := validateTableAndFillParams(table, &params)
	if !ok {
		fmt.Println(msg)
		os.Exit(4)
	}

	if params.ShowInput {
		fmt.Printf("%s", "\nPrintout of complete parameter file contents...\n")
		fmt.Println(string(data))
	}

	fmt.Printf("\nVersion %s\n\n", version)

	if err := os.MkdirAll(params.OutputFolder, 0o755); err != nil {
		fmt.Println(fmt.Errorf("\n\tCould not create output folder %q: %w", params.OutputFolder, err))
		os.Exit(5)
	}
	out := func(name string) string { return filepath.Join(params.OutputFolder, name) }

	n := params.ShapePixels
	fmt.Printf("Grid is %d x %d pixels, PSF spacing %0.4f um, source spacing %0.4f um\n",
		n, n, params.SpacingUm, sourceSpacing(params))
	fmt.Printf("Imaging %d planes from z = %0.2f to %0.2f um\n\n", params.NumPlanes, params.ZMinUm, params.ZMaxUm)

	system := buildSystem(params)
	volume := unitVolume(params.NumPlanes, n)
	if params.SamplePNG != "" {
		// Full scale of a 16 bit image is intensity 1
		plane, err := profile.LoadPNG(params.SamplePNG, 65535)
		if err != nil {
			fmt.Println(fmt.Errorf("\n\tAttempt to read sample image %q failed: %w\n", params.SamplePNG, err))
			os.Exit(11)
		}
		if r, c := plane.Dims(); r != n || c != n {
			fmt.Println(fmt.Errorf("\n\tThe sample image %q is %d x %d but shape_pixels is %d.", params.SamplePNG, c, r, n))
			os.Exit(11)
		}
		volume = repeatPlane(plane, params.NumPlanes)
	}
	z := linspace(params.ZMinUm, params.ZMaxUm, params.NumPlanes)
	ctx := context.Background()

	// First run of each configuration is a warm-up and is not timed.
	single := &microscope.Microscope{System: system, Workers: 1}
	start := time.Now()
	singleImage, err := single.Image(ctx, volume, z)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tSingle worker imaging failed: %w", err))
		os.Exit(6)
	}
	fmt.Printf("Single worker warm-up took %s\n", time.Since(start))

	_, singleTimes, err := timeImaging(ctx, single, volume, z, params.Repeats)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tSingle worker imaging failed: %w", err))
		os.Exit(6)
	}

	multi := &microscope.Microscope{
		System:  system,
		Workers: params.NumWorkers,
		Logger:  log.New(os.Stdout, "  ", 0),
	}
	start = time.Now()
	multiImage, err := multi.Image(ctx, volume, z)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tMulti worker imaging failed: %w", err))
		os.Exit(6)
	}
	fmt.Printf("Multi worker (%d) warm-up took %s\n\n", params.NumWorkers, time.Since(start))
	multi.Logger = nil

	_, multiTimes, err := timeImaging(ctx, multi, volume, z, params.Repeats)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tMulti worker imaging failed: %w", err))
		os.Exit(6)
	}

	if !imagesAgree(singleImage, multiImage, 1e-9) {
		fmt.Println(fmt.Errorf("\n\tSingle and multi worker images differ."))
		os.Exit(7)
	}

	r, c := multiImage.Dims()
	fmt.Printf("image has shape: (%d, %d)\n", r, c)
	mean, std := summarize(singleTimes)
	fmt.Printf("single worker: %0.3f +/- %0.3f ms\n", mean, std)
	mean, std = summarize(multiTimes)
	fmt.Printf("%d workers: %0.3f +/- %0.3f ms\n\n", params.NumWorkers, mean, std)

	// User-friendly display version of the widefield image
	lowHigh := params.DisplayLowHigh
	imgForDisplay, err := displayImage(multiImage, lowHigh[0], lowHigh[1])
	if err != nil {
		fmt.Println(fmt.Errorf("creation of the display image failed: %w", err))
		os.Exit(8)
	}
	imgForDisplay = resizeForDisplay(imgForDisplay, params.DisplaySizePixels)
	if err := SavePNG(out("widefieldImage8bit.png"), imgForDisplay); err != nil {
		fmt.Println(fmt.Errorf("writing of %q failed: %w", "widefieldImage8bit.png", err))
		os.Exit(9)
	}

	// Scientific version: the brightest pixel maps to 65535
	widefield16, scale, err := scientificImage(multiImage)
	if err != nil {
		fmt.Println(fmt.Errorf("creation of the 16 bit image failed: %w", err))
		os.Exit(8)
	}
	fmt.Printf("16 bit image scale is %g counts per unit intensity\n", scale)
	if err := SavePNG(out("widefieldImage16bit.png"), widefield16); err != nil {
		fmt.Println(fmt.Errorf("writing of %q failed: %w", "widefieldImage16bit.png", err))
		os.Exit(9)
	}

	// In-focus PSF profile through the optical axis
	psf, err := single.PSF([]float64{0})
	if err != nil {
		fmt.Println(fmt.Errorf("computation of the in-focus PSF failed: %w", err))
		os.Exit(10)
	}
	// The lens puts the optical axis on row n/2, half a pixel below the
	// grid centre for even n.
	cut, err := profile.NewCut(n, 0, float64(n/2)-float64(n-1)/2)
	if err != nil {
		fmt.Println(fmt.Errorf("profile cut failed: %w", err))
		os.Exit(10)
	}
	points := cut.Extract(psf[0], params.SpacingUm)
	err = profile.SavePlot(out("psfProfile.png"), points, "In-focus PSF through the optical axis", "um", 1200, 500)
	if err != nil {
		fmt.Println(fmt.Errorf("writing of %q failed: %w", "psfProfile.png", err))
		os.Exit(10)
	}

	if len(params.SpectrumUm) > 1 {
		err = SaveSpectrumPlot(params.SpectrumUm, params.SpectralDensity, out("spectrum.png"))
		if err != nil {
			fmt.Println(fmt.Errorf("writing of %q failed: %w", "spectrum.png", err))
			os.Exit(10)
		}
	}

	fmt.Printf("\nTotal program run time is %s\n", time.Since(programStart))
}
