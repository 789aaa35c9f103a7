// Command printprep runs the print-preparation pipeline on a local image.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/BuragaIonut/daisler/extend"
	"github.com/BuragaIonut/daisler/observability"
	"github.com/BuragaIonut/daisler/pipeline"
	"github.com/BuragaIonut/daisler/raster"
	"github.com/BuragaIonut/daisler/units"
)

type options struct {
	inPath    string
	outPath   string
	width     float64
	height    float64
	unit      string
	dpi       float64
	bleedMM   float64
	overlap   int
	cmyk      bool
	extendURL string
	verbose   bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "printprep: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "printprep: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: printprep [flags] <image>\n")
		flag.PrintDefaults()
	}
	flag.Float64Var(&opts.width, "width", 0, "Physical trim width (required)")
	flag.Float64Var(&opts.height, "height", 0, "Physical trim height (required)")
	flag.StringVar(&opts.unit, "unit", "mm", "Physical unit: mm or inch")
	flag.Float64Var(&opts.dpi, "dpi", 300, "Target print resolution")
	flag.Float64Var(&opts.bleedMM, "bleed", 0, "Bleed in mm; 0 uses the default, negative disables")
	flag.IntVar(&opts.overlap, "overlap", 0, "Extension overlap percent; 0 uses the service default")
	flag.BoolVar(&opts.cmyk, "cmyk", false, "Embed the raster as DeviceCMYK")
	flag.StringVar(&opts.extendURL, "extend-url", os.Getenv("EXTEND_BASE_URL"), "Canvas-extension service base URL")
	flag.StringVar(&opts.outPath, "out", "print_ready.pdf", "Output PDF path")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.Parse()

	if flag.NArg() != 1 {
		return opts, fmt.Errorf("expected exactly one input image, got %d", flag.NArg())
	}
	opts.inPath = flag.Arg(0)
	if opts.width <= 0 || opts.height <= 0 {
		return opts, fmt.Errorf("-width and -height are required")
	}
	return opts, nil
}

func run(opts options) error {
	unit, err := units.ParseUnit(opts.unit)
	if err != nil {
		return err
	}

	base := logrus.New()
	base.SetLevel(logrus.WarnLevel)
	if opts.verbose {
		base.SetLevel(logrus.DebugLevel)
	}
	log := observability.NewLogrus(base)

	data, err := os.ReadFile(opts.inPath)
	if err != nil {
		return err
	}
	img, err := raster.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", opts.inPath, err)
	}

	var extender extend.Extender
	if opts.extendURL != "" {
		extender = extend.NewClient(opts.extendURL, extend.WithLogger(log))
	}

	pipe := pipeline.New(extender, log)
	res, err := pipe.Run(context.Background(), img, pipeline.Params{
		Width:          opts.width,
		Height:         opts.height,
		Unit:           unit,
		DPI:            opts.dpi,
		BleedMM:        opts.bleedMM,
		OverlapPercent: opts.overlap,
		ConvertCMYK:    opts.cmyk,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.outPath, res.PDF, 0o644); err != nil {
		return err
	}

	fmt.Printf("strategy:  %s\n", res.Strategy)
	fmt.Printf("desired:   %dx%d px\n", res.DesiredWidthPx, res.DesiredHeightPx)
	fmt.Printf("final:     %dx%d px\n", res.FinalWidthPx, res.FinalHeightPx)
	fmt.Printf("trim box:  %s\n", res.TrimBox)
	fmt.Printf("cut rect:  %.2f x %.2f pt\n", res.CutRect.Width(), res.CutRect.Height())
	fmt.Printf("wrote %s (%d bytes)\n", opts.outPath, len(res.PDF))
	return nil
}
