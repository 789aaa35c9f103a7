// Package pipeline sequences the print-preparation stages: physical target
// to pixel target, extension-strategy classification, the optional AI canvas
// extension, mirror bleed, Lanczos upscale, PDF wrapping and the spot-color
// cutline. A request either completes every stage or fails with the stage
// name wrapped around a typed error; partial output is never returned.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/BuragaIonut/daisler/cutline"
	"github.com/BuragaIonut/daisler/extend"
	"github.com/BuragaIonut/daisler/observability"
	"github.com/BuragaIonut/daisler/pagebuild"
	"github.com/BuragaIonut/daisler/pdfwrite"
	"github.com/BuragaIonut/daisler/raster"
	"github.com/BuragaIonut/daisler/ratio"
	"github.com/BuragaIonut/daisler/trimbox"
	"github.com/BuragaIonut/daisler/units"
)

// DefaultBleedMM is the standard print bleed.
const DefaultBleedMM = 3.0

// InputValidationError reports a request that fails preflight checks. All
// validation happens before any expensive transform or external call.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// Params describe the physical print target.
type Params struct {
	// Width and Height are the physical trim size in Unit.
	Width  float64
	Height float64
	Unit   units.Unit
	DPI    float64

	// BleedMM is the bleed margin; zero means DefaultBleedMM, negative
	// disables bleed.
	BleedMM float64

	// OverlapPercent is passed to the extension service; zero selects the
	// service default.
	OverlapPercent int

	// ConvertCMYK embeds the final raster as DeviceCMYK instead of RGB.
	ConvertCMYK bool

	Spot        cutline.SpotColorSpec
	CutlineOpts cutline.Options
}

// Result is the completed print job.
type Result struct {
	PDF      []byte
	Strategy ratio.Strategy

	// DesiredWidthPx and DesiredHeightPx are the pixel target derived from
	// the physical size.
	DesiredWidthPx  int
	DesiredHeightPx int

	// FinalWidthPx and FinalHeightPx are the dimensions of the raster that
	// was embedded, bleed included.
	FinalWidthPx  int
	FinalHeightPx int

	// TrimBox is the original content rectangle inside the final raster.
	TrimBox trimbox.Box

	// CutRect is the stamped cutline in PDF points.
	CutRect trimbox.PointRect
}

// Pipeline runs print preparation. Extender may be nil when callers
// guarantee no request needs extension.
type Pipeline struct {
	Extender extend.Extender
	Log      observability.Logger
}

// New returns a pipeline using ext for canvas extension.
func New(ext extend.Extender, log observability.Logger) *Pipeline {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Pipeline{Extender: ext, Log: log}
}

// Stage names used to wrap errors; the geometry stages between classify and
// build cannot fail and carry no name.
const (
	stageValidate = "validate"
	stageClassify = "classify strategy"
	stageExtend   = "extend canvas"
	stagePDF      = "build pdf"
	stageCutline  = "stamp cutline"
)

func stageErr(stage string, err error) error {
	return fmt.Errorf("%s: %w", stage, err)
}

// Run executes every stage on img.
func (p *Pipeline) Run(ctx context.Context, img image.Image, params Params) (*Result, error) {
	log := p.Log
	if log == nil {
		log = observability.NopLogger{}
	}

	if err := validate(img, params); err != nil {
		return nil, stageErr(stageValidate, err)
	}

	// Pixel targets from the physical size.
	desiredW, desiredH, desiredRatio := units.PhysicalToPixels(
		params.Width, params.Height, params.Unit, params.DPI)

	bleedMM := params.BleedMM
	if bleedMM == 0 {
		bleedMM = DefaultBleedMM
	}
	bleedPx := 0
	if bleedMM > 0 {
		bleedPx = units.BleedToPixels(bleedMM, params.DPI)
	}

	actualW, actualH, actualRatio := raster.Dimensions(img)
	strategy, err := ratio.Classify(actualRatio, desiredRatio)
	if err != nil {
		return nil, stageErr(stageClassify, err)
	}
	log.Info("strategy classified",
		observability.String("strategy", strategy.String()),
		observability.Int("actual_width", actualW),
		observability.Int("actual_height", actualH),
		observability.Int("desired_width", desiredW),
		observability.Int("desired_height", desiredH))

	working := img
	if strategy.NeedsExtension() {
		if p.Extender == nil {
			return nil, stageErr(stageExtend, fmt.Errorf("no extension service configured"))
		}
		working, err = extend.Run(ctx, p.Extender, working, strategy, desiredRatio, params.OverlapPercent)
		if err != nil {
			return nil, stageErr(stageExtend, err)
		}
	}

	expanded, box := raster.AddMirrorBleed(working, bleedPx)

	expW, expH, _ := raster.Dimensions(expanded)
	factor := raster.ScaleFactor(desiredW, desiredH, expW, expH)
	upscaled := raster.Upscale(expanded, factor)
	box = box.AfterScale(factor)

	finalW, finalH, _ := raster.Dimensions(upscaled)

	var embedded image.Image = upscaled
	if params.ConvertCMYK {
		embedded = raster.ToCMYK(upscaled)
	}
	doc, err := pagebuild.Build(embedded, params.DPI)
	if err != nil {
		return nil, stageErr(stagePDF, err)
	}

	pageHeightPts := units.PixelsToPoints(finalH, params.DPI)
	cutRect := box.ToPDFPoints(params.DPI, pageHeightPts)

	spot := params.Spot
	if spot.Name == "" {
		spot = cutline.DefaultSpot()
	}
	opts := params.CutlineOpts
	if opts == (cutline.Options{}) {
		opts = cutline.DefaultOptions()
	}
	if err := cutline.Add(doc, cutRect, spot, opts); err != nil {
		return nil, stageErr(stageCutline, err)
	}

	pdf, err := pdfwrite.Marshal(doc)
	if err != nil {
		return nil, stageErr(stagePDF, err)
	}

	log.Info("print job complete",
		observability.Int("final_width", finalW),
		observability.Int("final_height", finalH),
		observability.Int("pdf_bytes", len(pdf)))

	return &Result{
		PDF:             pdf,
		Strategy:        strategy,
		DesiredWidthPx:  desiredW,
		DesiredHeightPx: desiredH,
		FinalWidthPx:    finalW,
		FinalHeightPx:   finalH,
		TrimBox:         box,
		CutRect:         cutRect,
	}, nil
}

// ErrNoExtensionNeeded reports that the source already matches the desired
// ratio, so there are no overlap variants to generate.
var ErrNoExtensionNeeded = errors.New("image already matches the desired ratio")

// RunVariants executes only the extension stage, fanned out over several
// overlap percentages so a reviewer can pick the best-looking blend. A nil
// or empty percents slice uses extend.DefaultOverlapPercents. Variants that
// fail are dropped; the survivors come back sorted by overlap percentage.
func (p *Pipeline) RunVariants(ctx context.Context, img image.Image, params Params, percents []int) (ratio.Strategy, []extend.Variant, error) {
	log := p.Log
	if log == nil {
		log = observability.NopLogger{}
	}

	if err := validate(img, params); err != nil {
		return ratio.NoExtension, nil, stageErr(stageValidate, err)
	}

	_, _, desiredRatio := units.PhysicalToPixels(
		params.Width, params.Height, params.Unit, params.DPI)
	_, _, actualRatio := raster.Dimensions(img)

	strategy, err := ratio.Classify(actualRatio, desiredRatio)
	if err != nil {
		return ratio.NoExtension, nil, stageErr(stageClassify, err)
	}
	if !strategy.NeedsExtension() {
		return strategy, nil, ErrNoExtensionNeeded
	}
	if p.Extender == nil {
		return strategy, nil, stageErr(stageExtend, fmt.Errorf("no extension service configured"))
	}

	runner := extend.VariantRunner{Extender: p.Extender, Log: log}
	variants := runner.Run(ctx, img, strategy, desiredRatio, percents)
	log.Info("overlap variants generated",
		observability.String("strategy", strategy.String()),
		observability.Int("variants", len(variants)))
	return strategy, variants, nil
}

func validate(img image.Image, params Params) error {
	if img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return &InputValidationError{Field: "image", Reason: "empty image"}
	}
	if params.Width <= 0 {
		return &InputValidationError{Field: "width", Reason: "must be positive"}
	}
	if params.Height <= 0 {
		return &InputValidationError{Field: "height", Reason: "must be positive"}
	}
	if params.DPI <= 0 {
		return &InputValidationError{Field: "dpi", Reason: "must be positive"}
	}
	if params.OverlapPercent < 0 || params.OverlapPercent > 100 {
		return &InputValidationError{Field: "overlap_percent", Reason: "must be within [0, 100]"}
	}
	return nil
}
