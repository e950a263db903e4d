package geofence

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func square(x0, y0, x1, y1 float64) []Coordinate {
	return []Coordinate{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func TestContains_InteriorAndExterior(t *testing.T) {
	box := square(0, 0, 10, 10)

	inside := []Coordinate{{5, 5}, {0.001, 0.001}, {9.999, 9.999}, {1, 9}}
	for _, p := range inside {
		if !Contains(box, p) {
			t.Errorf("expected %v to be inside", p)
		}
	}

	outside := []Coordinate{{15, 5}, {-1, 5}, {5, -0.001}, {5, 10.001}, {100, 100}}
	for _, p := range outside {
		if Contains(box, p) {
			t.Errorf("expected %v to be outside", p)
		}
	}
}

func TestContains_EdgeAndVertexAreOutside(t *testing.T) {
	box := square(0, 0, 10, 10)

	for _, p := range []Coordinate{{10, 5}, {0, 5}, {5, 0}, {5, 10}, {0, 0}, {10, 10}} {
		if Contains(box, p) {
			t.Errorf("boundary point %v should be outside", p)
		}
	}
}

func TestContains_ClosedRingMatchesOpenRing(t *testing.T) {
	open := square(0, 0, 4, 4)
	closed := append(append([]Coordinate{}, open...), open[0])

	for _, p := range []Coordinate{{2, 2}, {5, 5}, {4, 2}} {
		if Contains(open, p) != Contains(closed, p) {
			t.Errorf("open and closed rings disagree at %v", p)
		}
	}
}

func TestContains_ConcavePolygon(t *testing.T) {
	// U shape: the notch between the arms is outside
	u := []Coordinate{{0, 0}, {6, 0}, {6, 6}, {4, 6}, {4, 2}, {2, 2}, {2, 6}, {0, 6}}

	if !Contains(u, Coordinate{1, 4}) {
		t.Error("left arm should be inside")
	}
	if !Contains(u, Coordinate{5, 4}) {
		t.Error("right arm should be inside")
	}
	if Contains(u, Coordinate{3, 4}) {
		t.Error("notch should be outside")
	}
}

func TestContains_RejectsInvalidPoint(t *testing.T) {
	box := square(-10, -10, 10, 10)
	if Contains(box, Coordinate{math.NaN(), 0}) {
		t.Error("NaN point should not be contained")
	}
	if Contains(box[:2], Coordinate{0, 0}) {
		t.Error("a two-vertex boundary contains nothing")
	}
}

func TestLocate_FirstMatchWins(t *testing.T) {
	sites := []Worksite{
		{Name: "Jurong", Boundary: square(0, 0, 10, 10)},
		{Name: "Overlap", Boundary: square(5, 5, 15, 15)},
	}

	got, ok := Locate(Coordinate{7, 7}, sites)
	if !ok || got.Name != "Jurong" {
		t.Fatalf("expected Jurong for overlapping point, got %q (ok=%v)", got.Name, ok)
	}

	got, ok = Locate(Coordinate{12, 12}, sites)
	if !ok || got.Name != "Overlap" {
		t.Fatalf("expected Overlap, got %q (ok=%v)", got.Name, ok)
	}

	if _, ok := Locate(Coordinate{50, 50}, sites); ok {
		t.Error("point outside every polygon should have no site")
	}
}

func TestLocate_SharedEdgeIsDeterministic(t *testing.T) {
	sites := []Worksite{
		{Name: "West", Boundary: square(0, 0, 10, 10)},
		{Name: "East", Boundary: square(10, 0, 20, 10)},
	}
	p := Coordinate{10, 5}

	first, firstOK := Locate(p, sites)
	for i := 0; i < 100; i++ {
		got, ok := Locate(p, sites)
		if ok != firstOK || got.Name != first.Name {
			t.Fatalf("iteration %d: got %q/%v, first call gave %q/%v", i, got.Name, ok, first.Name, firstOK)
		}
	}
}

func TestValidateBoundary(t *testing.T) {
	if err := ValidateBoundary(square(103.70, 1.32, 103.75, 1.35)); err != nil {
		t.Fatalf("valid boundary rejected: %v", err)
	}

	tooFew := []Coordinate{{0, 0}, {1, 1}, {0, 0}}
	if err := ValidateBoundary(tooFew); !errors.Is(err, ErrTooFewVertices) {
		t.Errorf("expected ErrTooFewVertices, got %v", err)
	}

	repeated := []Coordinate{{0, 0}, {1, 0}, {1, 0}, {0, 0}}
	if err := ValidateBoundary(repeated); !errors.Is(err, ErrTooFewVertices) {
		t.Errorf("expected ErrTooFewVertices for repeated vertices, got %v", err)
	}

	line := []Coordinate{{0, 0}, {1, 1}, {2, 2}}
	if err := ValidateBoundary(line); !errors.Is(err, ErrDegenerateBorder) {
		t.Errorf("expected ErrDegenerateBorder, got %v", err)
	}

	outOfRange := []Coordinate{{0, 0}, {200, 0}, {0, 1}}
	if err := ValidateBoundary(outOfRange); !errors.Is(err, ErrInvalidVertex) {
		t.Errorf("expected ErrInvalidVertex, got %v", err)
	}
}

func TestCoordinateJSON(t *testing.T) {
	var site Worksite
	raw := `{"name":"Jurong","coordinates":[[103.7,1.32],[103.75,1.32],[103.75,1.35]]}`
	if err := json.Unmarshal([]byte(raw), &site); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(site.Boundary) != 3 || site.Boundary[1] != (Coordinate{103.75, 1.32}) {
		t.Fatalf("unexpected boundary: %+v", site.Boundary)
	}

	var c Coordinate
	if err := json.Unmarshal([]byte(`[1,2,3]`), &c); err == nil {
		t.Error("three-element coordinate should be rejected")
	}
}
