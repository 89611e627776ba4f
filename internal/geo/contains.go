package geo

import (
	"github.com/paulmach/orb/planar"
)

// Contains reports whether v lies inside the polygon described by polygonWKT.
func Contains(polygonWKT string, v Vertex) (bool, error) {
	poly, err := ParsePolygon(polygonWKT)
	if err != nil {
		return false, err
	}
	return planar.PolygonContains(poly, v.Point()), nil
}
