package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

// FeatureCollection renders zones for the map page. Zones reach the console
// already validated, so a polygon that fails to parse here is an error.
func FeatureCollection(zones []model.Zone) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, z := range zones {
		poly, err := ParsePolygon(z.PolygonWKT)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", z.ID, err)
		}
		f := geojson.NewFeature(poly)
		f.ID = z.ID
		f.Properties["readableId"] = z.ReadableID
		f.Properties["name"] = z.Name
		f.Properties["active"] = z.Active
		fc.Append(f)
	}
	return fc, nil
}

// PathGeometry renders a drawn path: a closed polygon once it has MinVertices
// points, a line string before that.
func PathGeometry(vs []Vertex) *geojson.Geometry {
	if len(vs) < MinVertices {
		ls := make(orb.LineString, 0, len(vs))
		for _, v := range vs {
			ls = append(ls, v.Point())
		}
		return geojson.NewGeometry(ls)
	}
	ring := make(orb.Ring, 0, len(vs)+1)
	for _, v := range vs {
		ring = append(ring, v.Point())
	}
	ring = append(ring, vs[0].Point())
	return geojson.NewGeometry(orb.Polygon{ring})
}
