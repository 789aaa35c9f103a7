// Package ratio classifies aspect-ratio transformations and solves for
// AI-service-compatible pixel dimensions.
//
// The extension service only supports target ratios in [0.4687, 2.133] and
// dimensions in [720, 1536]; both constants live here because every decision
// in this package is made against them.
package ratio

import "fmt"

// Service envelope: supported aspect ratios and per-axis pixel dimensions.
const (
	MinRatio = 0.4687
	MaxRatio = 2.133

	MinDimension = 720
	MaxDimension = 1536
)

// squareEps guards the "ratio is exactly square" comparison against float
// noise from width/height division.
const squareEps = 1e-9

// Strategy is the canvas-extension transformation required to move an image
// from its current aspect ratio to the desired one.
type Strategy int

const (
	NoExtension Strategy = iota
	LandscapeExtendWidth
	LandscapeExtendHeight
	PortraitExtendWidth
	PortraitExtendHeight
	LandscapeToSquare
	PortraitToSquare
	SquareToLandscape
	SquareToPortrait
	PortraitToSquareToLandscape
	LandscapeToSquareToPortrait
)

var strategyNames = map[Strategy]string{
	NoExtension:                 "no_extension_needed",
	LandscapeExtendWidth:        "landscape_extend_width",
	LandscapeExtendHeight:       "landscape_extend_height",
	PortraitExtendWidth:         "portrait_extend_width",
	PortraitExtendHeight:        "portrait_extend_height",
	LandscapeToSquare:           "landscape_to_square",
	PortraitToSquare:            "portrait_to_square",
	SquareToLandscape:           "square_to_landscape",
	SquareToPortrait:            "square_to_portrait",
	PortraitToSquareToLandscape: "portrait_to_square_to_landscape",
	LandscapeToSquareToPortrait: "landscape_to_square_to_portrait",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// TwoStep reports whether the strategy passes through an intermediate square.
func (s Strategy) TwoStep() bool {
	return s == PortraitToSquareToLandscape || s == LandscapeToSquareToPortrait
}

// NeedsExtension reports whether the AI extension service must be invoked.
func (s Strategy) NeedsExtension() bool { return s != NoExtension }

// OutOfRangeError reports a desired ratio outside the service envelope.
type OutOfRangeError struct {
	Ratio float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("desired ratio %.4f outside supported range [%v, %v]", e.Ratio, MinRatio, MaxRatio)
}

func isSquare(r float64) bool {
	d := r - 1
	return d > -squareEps && d < squareEps
}

// Classify maps (current, desired) aspect ratios to the strategy that
// transforms one into the other. The mapping is total over the valid domain:
// desired within [MinRatio, MaxRatio] always yields exactly one strategy.
func Classify(current, desired float64) (Strategy, error) {
	if desired > MaxRatio || desired < MinRatio {
		return NoExtension, &OutOfRangeError{Ratio: desired}
	}
	switch {
	case desired > 1 && !isSquare(desired): // landscape desired
		switch {
		case isSquare(current):
			return SquareToLandscape, nil
		case current > 1:
			if current < desired {
				return LandscapeExtendWidth, nil
			}
			if current > desired {
				return LandscapeExtendHeight, nil
			}
			return NoExtension, nil
		default:
			return PortraitToSquareToLandscape, nil
		}
	case desired < 1 && !isSquare(desired): // portrait desired
		switch {
		case isSquare(current):
			return SquareToPortrait, nil
		case current < 1:
			if current > desired {
				return PortraitExtendHeight, nil
			}
			if current < desired {
				return PortraitExtendWidth, nil
			}
			return NoExtension, nil
		default:
			return LandscapeToSquareToPortrait, nil
		}
	default: // square desired
		switch {
		case isSquare(current):
			return NoExtension, nil
		case current > 1:
			return LandscapeToSquare, nil
		default:
			return PortraitToSquare, nil
		}
	}
}
