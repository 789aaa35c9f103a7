package trimbox_test

import (
	"math"
	"testing"

	"github.com/BuragaIonut/daisler/trimbox"
	"github.com/BuragaIonut/daisler/units"
)

func TestBleedThenScale(t *testing.T) {
	b := trimbox.New(100, 100)

	b = b.AfterBleed(10)
	if (b != trimbox.Box{X1: 10, Y1: 10, X2: 110, Y2: 110}) {
		t.Fatalf("after bleed: %v", b)
	}

	b = b.AfterScale(2.0)
	if (b != trimbox.Box{X1: 20, Y1: 20, X2: 220, Y2: 220}) {
		t.Fatalf("after scale: %v", b)
	}
}

func TestAfterBleedZeroOrNegative(t *testing.T) {
	b := trimbox.New(50, 80)
	if b.AfterBleed(0) != b {
		t.Fatal("pad 0 must not move the box")
	}
	if b.AfterBleed(-3) != b {
		t.Fatal("negative pad must not move the box")
	}
}

func TestToPDFPointsFlip(t *testing.T) {
	const dpi = 300.0
	b := trimbox.Box{X1: 20, Y1: 20, X2: 220, Y2: 220}
	pageHeight := units.PixelsToPoints(240, dpi)

	r := b.ToPDFPoints(dpi, pageHeight)

	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		t.Fatalf("flip broke ordering: %+v", r)
	}
	// Sum-preserving flip: y1' + y2' = 2*pageHeight - (y1 + y2) in points.
	y1Pts := units.PixelsToPoints(b.Y1, dpi)
	y2Pts := units.PixelsToPoints(b.Y2, dpi)
	want := 2*pageHeight - (y1Pts + y2Pts)
	if got := r.Y1 + r.Y2; math.Abs(got-want) > 1e-9 {
		t.Fatalf("y sum %v, want %v", got, want)
	}
	// Width is unaffected by the flip; height magnitude preserved.
	if math.Abs(r.Width()-(y2Pts-y1Pts)) > 1e-9 {
		t.Fatalf("width %v, want %v", r.Width(), y2Pts-y1Pts)
	}
}

func TestScalePreservesRelativePosition(t *testing.T) {
	b := trimbox.New(100, 200).AfterBleed(17)
	s := b.AfterScale(1.5)
	if s.X1 > s.X2 || s.Y1 > s.Y2 {
		t.Fatalf("ordering invariant violated: %v", s)
	}
	if s.X1 != 25 || s.Y1 != 25 { // 17*1.5 = 25.5 truncated
		t.Fatalf("origin %d,%d, want 25,25", s.X1, s.Y1)
	}
}
