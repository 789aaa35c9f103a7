package ratio

import (
	"fmt"
	"math"
)

// DefaultTolerance is the maximum acceptable deviation between the achieved
// and desired aspect ratio when solving for service dimensions.
const DefaultTolerance = 0.01

// UnsatisfiableRatioError reports that no dimension pair inside the service
// window reaches the desired ratio within tolerance. BestWidth/BestHeight
// carry the closest achievable pair for diagnosis.
type UnsatisfiableRatioError struct {
	Ratio      float64
	Tolerance  float64
	BestWidth  int
	BestHeight int
	BestError  float64
}

func (e *UnsatisfiableRatioError) Error() string {
	if e.BestWidth == 0 {
		return fmt.Sprintf("cannot achieve ratio %.3f within constraints [%d, %d]", e.Ratio, MinDimension, MaxDimension)
	}
	return fmt.Sprintf("cannot achieve ratio %.3f within tolerance %v; best match %dx%d (ratio %.3f, error %.3f)",
		e.Ratio, e.Tolerance, e.BestWidth, e.BestHeight,
		float64(e.BestWidth)/float64(e.BestHeight), e.BestError)
}

// SolveDimensions finds integer pixel dimensions inside
// [MinDimension, MaxDimension] whose ratio matches desired within
// DefaultTolerance. Among in-tolerance candidates it prefers the pair whose
// average dimension sits closest to the window midpoint, balancing inference
// quality against cost; ratio error breaks ties.
func SolveDimensions(desired float64) (int, int, error) {
	return solve(desired, MinDimension, MaxDimension, DefaultTolerance)
}

func solve(desired float64, minDim, maxDim int, tolerance float64) (int, int, error) {
	target := float64(minDim+maxDim) / 2

	var (
		bestW, bestH int
		bestErr      = math.Inf(1)
		bestDist     = math.Inf(1)
		found        bool
	)
	for width := minDim; width <= maxDim; width++ {
		ideal := float64(width) / desired
		for _, height := range []int{int(ideal), int(ideal) + 1} {
			if height < minDim || height > maxDim {
				continue
			}
			err := math.Abs(float64(width)/float64(height) - desired)
			if err <= tolerance {
				dist := math.Abs(float64(width+height)/2 - target)
				if dist < bestDist || (dist == bestDist && err < bestErr) {
					bestW, bestH = width, height
					bestErr = err
					bestDist = dist
					found = true
				}
			} else if err < bestErr && !found {
				// Track the closest miss for the error report.
				bestW, bestH = width, height
				bestErr = err
			}
		}
	}

	if !found {
		return 0, 0, &UnsatisfiableRatioError{
			Ratio:      desired,
			Tolerance:  tolerance,
			BestWidth:  bestW,
			BestHeight: bestH,
			BestError:  bestErr,
		}
	}
	return bestW, bestH, nil
}
