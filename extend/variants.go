package extend

import (
	"context"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/BuragaIonut/daisler/observability"
	"github.com/BuragaIonut/daisler/ratio"
)

// DefaultOverlapPercents are the candidate blends offered to a reviewer.
var DefaultOverlapPercents = []int{3, 5, 10, 15}

// DefaultVariantWorkers bounds concurrent service calls.
const DefaultVariantWorkers = 4

// Variant is one successful overlap-percentage attempt.
type Variant struct {
	OverlapPercent int
	Image          image.Image
}

// VariantRunner fans the same extension out over several overlap
// percentages so a human can pick the best-looking blend. Each variant runs
// the full strategy plan independently; a failed or timed-out variant is
// dropped from the results and does not abort its siblings.
type VariantRunner struct {
	Extender    Extender
	Workers     int           // defaults to DefaultVariantWorkers
	CallTimeout time.Duration // per variant, defaults to DefaultCallTimeout
	Log         observability.Logger
}

// Run returns the surviving variants sorted by overlap percentage. The
// ordering is independent of completion order. An empty percents slice uses
// DefaultOverlapPercents.
func (r *VariantRunner) Run(ctx context.Context, img image.Image, strategy ratio.Strategy, desiredRatio float64, percents []int) []Variant {
	if len(percents) == 0 {
		percents = DefaultOverlapPercents
	}
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultVariantWorkers
	}
	timeout := r.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	log := r.Log
	if log == nil {
		log = observability.NopLogger{}
	}

	jobs := make(chan int)
	var (
		mu      sync.Mutex
		results []Variant
		wg      sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pct := range jobs {
				callCtx, cancel := context.WithTimeout(ctx, timeout)
				out, err := Run(callCtx, r.Extender, img, strategy, desiredRatio, pct)
				cancel()
				if err != nil {
					log.Warn("overlap variant failed",
						observability.Int("overlap_percent", pct),
						observability.Error("error", err))
					continue
				}
				mu.Lock()
				results = append(results, Variant{OverlapPercent: pct, Image: out})
				mu.Unlock()
			}
		}()
	}
	for _, pct := range percents {
		jobs <- pct
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].OverlapPercent < results[j].OverlapPercent
	})
	return results
}
