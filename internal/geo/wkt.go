// Package geo converts drawn vertex paths to and from the WKT polygon text the
// zone API stores, and answers simple containment queries against it.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// MinVertices is the smallest vertex count that forms a polygon.
const MinVertices = 3

// ErrInvalidGeometry is returned for vertex lists or WKT that cannot describe a
// simple closed polygon.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Vertex is a point in decimal degrees, longitude first to match the map widget.
type Vertex struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Point returns v as an orb point (X=lng, Y=lat).
func (v Vertex) Point() orb.Point { return orb.Point{v.Lng, v.Lat} }

// Serialize writes vertices as a single closed ring:
//
//	POLYGON((lng lat, lng lat, ..., lng0 lat0))
//
// Order is preserved and nothing is deduplicated.
func Serialize(vertices []Vertex) (string, error) {
	if len(vertices) < MinVertices {
		return "", fmt.Errorf("%w: need at least %d vertices, got %d", ErrInvalidGeometry, MinVertices, len(vertices))
	}
	var b strings.Builder
	b.WriteString("POLYGON((")
	for i, v := range vertices {
		if !finite(v.Lng) || !finite(v.Lat) {
			return "", fmt.Errorf("%w: vertex %d is not a finite coordinate", ErrInvalidGeometry, i)
		}
		if i > 0 {
			b.WriteString(", ")
		}
		writePair(&b, v)
	}
	b.WriteString(", ")
	writePair(&b, vertices[0])
	b.WriteString("))")
	return b.String(), nil
}

func writePair(b *strings.Builder, v Vertex) {
	b.WriteString(strconv.FormatFloat(v.Lng, 'f', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(v.Lat, 'f', -1, 64))
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// ParsePolygon parses a single-ring WKT polygon and checks that the ring is
// closed with at least three distinct vertices.
func ParsePolygon(s string) (orb.Polygon, error) {
	poly, err := wkt.UnmarshalPolygon(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if len(poly) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one ring, got %d", ErrInvalidGeometry, len(poly))
	}
	ring := poly[0]
	if len(ring) == 0 || !ring.Closed() {
		return nil, fmt.Errorf("%w: ring is not closed", ErrInvalidGeometry)
	}
	if n := distinct(ring[:len(ring)-1]); n < MinVertices {
		return nil, fmt.Errorf("%w: ring has %d distinct vertices", ErrInvalidGeometry, n)
	}
	return poly, nil
}

// ValidateWKT reports whether s is a valid zone boundary.
func ValidateWKT(s string) error {
	_, err := ParsePolygon(s)
	return err
}

// Vertices returns the open ring of s (closing vertex dropped) in stored order.
func Vertices(s string) ([]Vertex, error) {
	poly, err := ParsePolygon(s)
	if err != nil {
		return nil, err
	}
	ring := poly[0]
	out := make([]Vertex, 0, len(ring)-1)
	for _, p := range ring[:len(ring)-1] {
		out = append(out, Vertex{Lng: p.X(), Lat: p.Y()})
	}
	return out, nil
}

func distinct(pts []orb.Point) int {
	seen := make(map[orb.Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}
