package pdfreader

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestScanPlacements_SingleImage(t *testing.T) {
	content := []byte("q 100 0 0 50 20 700 cm /Im1 Do Q")
	got := scanPlacements(content, map[string]bool{"Im1": true}, 792)
	if len(got) != 1 {
		t.Fatalf("placements = %d, want 1", len(got))
	}
	p := got[0]
	if !approx(p.x0, 20) || !approx(p.x1, 120) {
		t.Errorf("x = [%v, %v], want [20, 120]", p.x0, p.x1)
	}
	// The image spans y 700..750 bottom-up, so 42..92 top-down.
	if !approx(p.y0, 42) || !approx(p.y1, 92) {
		t.Errorf("y = [%v, %v], want [42, 92]", p.y0, p.y1)
	}
}

func TestScanPlacements_NestedTransforms(t *testing.T) {
	content := []byte("q 2 0 0 2 0 0 cm q 50 0 0 25 10 300 cm /Im1 Do Q Q")
	got := scanPlacements(content, map[string]bool{"Im1": true}, 792)
	if len(got) != 1 {
		t.Fatalf("placements = %d, want 1", len(got))
	}
	p := got[0]
	if !approx(p.x0, 20) || !approx(p.x1, 120) {
		t.Errorf("x = [%v, %v], want [20, 120]", p.x0, p.x1)
	}
	if !approx(p.y0, 142) || !approx(p.y1, 192) {
		t.Errorf("y = [%v, %v], want [142, 192]", p.y0, p.y1)
	}
}

func TestScanPlacements_StateRestoredByQ(t *testing.T) {
	content := []byte("q 100 0 0 100 0 600 cm Q q 40 0 0 40 50 50 cm /Im1 Do Q")
	got := scanPlacements(content, map[string]bool{"Im1": true}, 792)
	if len(got) != 1 {
		t.Fatalf("placements = %d, want 1", len(got))
	}
	p := got[0]
	if !approx(p.x0, 50) || !approx(p.x1, 90) || !approx(p.y0, 702) || !approx(p.y1, 742) {
		t.Errorf("placement = %+v", p)
	}
}

func TestScanPlacements_IgnoresFormXObjects(t *testing.T) {
	content := []byte("q 10 0 0 10 0 0 cm /Fm1 Do Q q 30 0 0 30 0 0 cm /Im1 Do Q")
	got := scanPlacements(content, map[string]bool{"Im1": true}, 792)
	if len(got) != 1 {
		t.Fatalf("placements = %d, want 1", len(got))
	}
	if !approx(got[0].x1, 30) {
		t.Errorf("x1 = %v, want 30", got[0].x1)
	}
}

func TestScanPlacements_TextAndStringsSkipped(t *testing.T) {
	content := []byte("BT /F1 12 Tf (hello (nested) world) Tj <48656c6c6f> Tj ET\n" +
		"q 60 0 0 60 0 0 cm /Im1 Do Q")
	got := scanPlacements(content, map[string]bool{"Im1": true}, 792)
	if len(got) != 1 {
		t.Fatalf("placements = %d, want 1", len(got))
	}
}

func TestScanPlacements_InlineImageSkipped(t *testing.T) {
	content := []byte("BI /W 4 /H 4 /BPC 8 ID \x00\x01qQDo\x02\x03 EI\n" +
		"q 60 0 0 60 0 0 cm /Im1 Do Q")
	got := scanPlacements(content, map[string]bool{"Im1": true}, 792)
	if len(got) != 1 {
		t.Fatalf("placements = %d, want 1", len(got))
	}
	if !approx(got[0].x1, 60) {
		t.Errorf("x1 = %v, want 60", got[0].x1)
	}
}

func TestScanPlacements_NegativeScaleNormalized(t *testing.T) {
	// A flipped image still yields a well-formed box.
	content := []byte("q 100 0 0 -50 20 750 cm /Im1 Do Q")
	got := scanPlacements(content, map[string]bool{"Im1": true}, 792)
	if len(got) != 1 {
		t.Fatalf("placements = %d, want 1", len(got))
	}
	p := got[0]
	if p.x0 >= p.x1 || p.y0 >= p.y1 {
		t.Fatalf("degenerate box %+v", p)
	}
	if !approx(p.y0, 42) || !approx(p.y1, 92) {
		t.Errorf("y = [%v, %v], want [42, 92]", p.y0, p.y1)
	}
}
