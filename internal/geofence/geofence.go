package geofence

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Coordinate is a WGS84 position. It is serialized as a [lng, lat] pair,
// the same shape the boundary editor stores.
type Coordinate struct {
	Lng float64
	Lat float64
}

// MarshalJSON encodes the coordinate as [lng, lat]
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lng, c.Lat})
}

// UnmarshalJSON decodes a [lng, lat] pair
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coordinate must be a [lng, lat] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate must have 2 elements, got %d", len(pair))
	}
	c.Lng, c.Lat = pair[0], pair[1]
	return nil
}

// Valid reports whether the coordinate is finite and inside WGS84 bounds
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lng) || math.IsNaN(c.Lat) || math.IsInf(c.Lng, 0) || math.IsInf(c.Lat, 0) {
		return false
	}
	return c.Lng >= -180 && c.Lng <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Worksite is a named polygon. The boundary is implicitly closed.
type Worksite struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Boundary []Coordinate `json:"coordinates"`
}

var (
	ErrTooFewVertices   = errors.New("boundary needs at least 3 distinct vertices")
	ErrInvalidVertex    = errors.New("boundary vertex out of range")
	ErrDegenerateBorder = errors.New("boundary encloses no area")
)

// edgeEpsilon bounds the cross product used to decide that a point lies on an edge.
const edgeEpsilon = 1e-12

// Locate returns the first worksite, in list order, whose boundary contains p.
func Locate(p Coordinate, worksites []Worksite) (Worksite, bool) {
	for _, site := range worksites {
		if Contains(site.Boundary, p) {
			return site, true
		}
	}
	return Worksite{}, false
}

// Contains runs an even-odd ray cast. Points on an edge or vertex are outside.
func Contains(boundary []Coordinate, p Coordinate) bool {
	ring := openRing(boundary)
	n := len(ring)
	if n < 3 || !p.Valid() {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if onSegment(a, b, p) {
			return false
		}
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			x := (b.Lng-a.Lng)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lng
			if p.Lng < x {
				inside = !inside
			}
		}
	}
	return inside
}

// ValidateBoundary checks the invariants a stored worksite must satisfy
func ValidateBoundary(boundary []Coordinate) error {
	ring := openRing(boundary)
	distinct := make(map[Coordinate]struct{}, len(ring))
	for _, c := range ring {
		if !c.Valid() {
			return fmt.Errorf("%w: [%v, %v]", ErrInvalidVertex, c.Lng, c.Lat)
		}
		distinct[c] = struct{}{}
	}
	if len(distinct) < 3 {
		return ErrTooFewVertices
	}
	if math.Abs(signedArea(ring)) <= edgeEpsilon {
		return ErrDegenerateBorder
	}
	return nil
}

// openRing drops a trailing vertex that repeats the first one
func openRing(boundary []Coordinate) []Coordinate {
	n := len(boundary)
	if n > 1 && boundary[0] == boundary[n-1] {
		return boundary[:n-1]
	}
	return boundary
}

func onSegment(a, b, p Coordinate) bool {
	cross := (b.Lng-a.Lng)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lng-a.Lng)
	if math.Abs(cross) > edgeEpsilon {
		return false
	}
	return p.Lng >= math.Min(a.Lng, b.Lng) && p.Lng <= math.Max(a.Lng, b.Lng) &&
		p.Lat >= math.Min(a.Lat, b.Lat) && p.Lat <= math.Max(a.Lat, b.Lat)
}

func signedArea(ring []Coordinate) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].Lng*ring[j].Lat - ring[j].Lng*ring[i].Lat
	}
	return sum / 2
}
