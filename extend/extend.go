// Package extend drives the external AI outpainting service that grows an
// image canvas toward a desired aspect ratio. The service accepts a target
// size plus flags naming the edges where new content may blend into the
// original; everything else about the model is opaque to the pipeline.
package extend

import (
	"context"
	"fmt"
	"image"

	"github.com/BuragaIonut/daisler/ratio"
)

// Service call defaults. These mirror the parameters the outpainting
// deployment was tuned with.
const (
	DefaultInferenceSteps = 12
	DefaultAlignment      = "Middle"
	DefaultResizeOption   = "Full"
	DefaultOverlapPercent = 10

	// SquareSide is the intermediate canvas used by the two-step
	// portrait<->landscape conversions.
	SquareSide = 1024
)

// OverlapSides names the edges where the service blends generated content
// into the source image.
type OverlapSides struct {
	Left, Right, Top, Bottom bool
}

// HorizontalOverlap blends along the left and right edges.
func HorizontalOverlap() OverlapSides { return OverlapSides{Left: true, Right: true} }

// VerticalOverlap blends along the top and bottom edges.
func VerticalOverlap() OverlapSides { return OverlapSides{Top: true, Bottom: true} }

// Request is one outpainting call.
type Request struct {
	Image          image.Image
	TargetWidth    int
	TargetHeight   int
	Overlap        OverlapSides
	OverlapPercent int
	InferenceSteps int
	Prompt         string
	Alignment      string
	ResizeOption   string
}

// Result pairs the extended image with the generation mask the service
// returns alongside it.
type Result struct {
	Image image.Image
	Mask  image.Image
}

// Extender is the outpainting collaborator. Implementations are expected to
// be slow (seconds per call) and fallible; callers own timeouts via ctx.
type Extender interface {
	Extend(ctx context.Context, req Request) (Result, error)
}

// ExternalServiceError wraps a failure of the remote collaborator so the
// pipeline can tell it apart from local geometry errors.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Step is one planned service call.
type Step struct {
	Width, Height int
	Overlap       OverlapSides
}

// Plan maps a classification to the service calls that realise it. The
// single-step strategies make one call at the solved dimensions (or the
// intermediate square for the to-square cases); the two-step strategies go
// through the square first. NoExtension plans no calls.
func Plan(strategy ratio.Strategy, desiredRatio float64) ([]Step, error) {
	solved := func() (Step, error) {
		w, h, err := ratio.SolveDimensions(desiredRatio)
		if err != nil {
			return Step{}, err
		}
		return Step{Width: w, Height: h}, nil
	}

	switch strategy {
	case ratio.NoExtension:
		return nil, nil

	case ratio.LandscapeExtendWidth, ratio.LandscapeExtendHeight,
		ratio.PortraitExtendWidth, ratio.PortraitExtendHeight,
		ratio.SquareToLandscape:
		s, err := solved()
		if err != nil {
			return nil, err
		}
		s.Overlap = HorizontalOverlap()
		return []Step{s}, nil

	case ratio.SquareToPortrait:
		s, err := solved()
		if err != nil {
			return nil, err
		}
		s.Overlap = VerticalOverlap()
		return []Step{s}, nil

	case ratio.LandscapeToSquare:
		return []Step{{Width: SquareSide, Height: SquareSide, Overlap: VerticalOverlap()}}, nil

	case ratio.PortraitToSquare:
		return []Step{{Width: SquareSide, Height: SquareSide, Overlap: HorizontalOverlap()}}, nil

	case ratio.PortraitToSquareToLandscape:
		s, err := solved()
		if err != nil {
			return nil, err
		}
		s.Overlap = HorizontalOverlap()
		return []Step{
			{Width: SquareSide, Height: SquareSide, Overlap: VerticalOverlap()},
			s,
		}, nil

	case ratio.LandscapeToSquareToPortrait:
		s, err := solved()
		if err != nil {
			return nil, err
		}
		s.Overlap = VerticalOverlap()
		return []Step{
			{Width: SquareSide, Height: SquareSide, Overlap: HorizontalOverlap()},
			s,
		}, nil
	}
	return nil, fmt.Errorf("extend: unhandled strategy %v", strategy)
}

// Run executes the plan for strategy sequentially, feeding each step's
// output into the next. The input image is returned unchanged when no
// extension is needed.
func Run(ctx context.Context, ext Extender, img image.Image, strategy ratio.Strategy, desiredRatio float64, overlapPercent int) (image.Image, error) {
	steps, err := Plan(strategy, desiredRatio)
	if err != nil {
		return nil, err
	}
	if overlapPercent <= 0 {
		overlapPercent = DefaultOverlapPercent
	}
	current := img
	for _, step := range steps {
		res, err := ext.Extend(ctx, Request{
			Image:          current,
			TargetWidth:    step.Width,
			TargetHeight:   step.Height,
			Overlap:        step.Overlap,
			OverlapPercent: overlapPercent,
			InferenceSteps: DefaultInferenceSteps,
			Alignment:      DefaultAlignment,
			ResizeOption:   DefaultResizeOption,
		})
		if err != nil {
			return nil, err
		}
		current = res.Image
	}
	return current, nil
}
