package geo

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

func TestSerializeKnownInput(t *testing.T) {
	v := []Vertex{{90.41, 23.81}, {90.42, 23.81}, {90.42, 23.82}}
	got, err := Serialize(v)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := "POLYGON((90.41 23.81, 90.42 23.81, 90.42 23.82, 90.41 23.81))"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestSerializeTooFewVertices(t *testing.T) {
	for n := 0; n < MinVertices; n++ {
		v := make([]Vertex, n)
		for i := range v {
			v[i] = Vertex{Lng: float64(i), Lat: float64(i)}
		}
		if _, err := Serialize(v); !errors.Is(err, ErrInvalidGeometry) {
			t.Fatalf("n=%d: expected ErrInvalidGeometry, got %v", n, err)
		}
	}
}

func TestSerializeClosedRingShape(t *testing.T) {
	paths := [][]Vertex{
		{{0, 0}, {1, 0}, {1, 1}},
		{{-73.9857, 40.7484}, {-73.9851, 40.7489}, {-73.9845, 40.7480}, {-73.9850, 40.7475}},
		{{1.5, 2.5}, {1.5, 2.5}, {3, 4}, {5, 6}, {7, 8}},
	}
	for _, p := range paths {
		s, err := Serialize(p)
		if err != nil {
			t.Fatalf("Serialize(%v): %v", p, err)
		}
		if !strings.HasPrefix(s, "POLYGON((") || !strings.HasSuffix(s, "))") {
			t.Fatalf("bad envelope: %q", s)
		}
		pairs := strings.Split(strings.TrimSuffix(strings.TrimPrefix(s, "POLYGON(("), "))"), ", ")
		if len(pairs) != len(p)+1 {
			t.Fatalf("got %d pairs, want %d (no dedup)", len(pairs), len(p)+1)
		}
		if pairs[0] != pairs[len(pairs)-1] {
			t.Fatalf("ring not closed: first %q last %q", pairs[0], pairs[len(pairs)-1])
		}
	}
}

func TestSerializeRejectsNonFinite(t *testing.T) {
	v := []Vertex{{0, 0}, {math.NaN(), 1}, {1, 1}}
	if _, err := Serialize(v); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestParsePolygonRoundTrip(t *testing.T) {
	in := []Vertex{{90.41, 23.81}, {90.42, 23.81}, {90.42, 23.82}, {90.41, 23.82}}
	s, err := Serialize(in)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	out, err := Vertices(s)
	if err != nil {
		t.Fatalf("Vertices: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d vertices, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("vertex %d: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestValidateWKT(t *testing.T) {
	cases := []struct {
		name string
		wkt  string
		ok   bool
	}{
		{"valid", "POLYGON((0 0, 1 0, 1 1, 0 0))", true},
		{"open ring", "POLYGON((0 0, 1 0, 1 1, 0 1))", false},
		{"two distinct", "POLYGON((0 0, 1 0, 0 0, 0 0))", false},
		{"not a polygon", "POINT(1 2)", false},
		{"garbage", "hello", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateWKT(tc.wkt)
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidGeometry) {
				t.Fatalf("expected ErrInvalidGeometry, got %v", err)
			}
		})
	}
}

func TestContains(t *testing.T) {
	square := "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))"
	in, err := Contains(square, Vertex{Lng: 5, Lat: 5})
	if err != nil || !in {
		t.Fatalf("expected inside, got %v %v", in, err)
	}
	out, err := Contains(square, Vertex{Lng: 15, Lat: 5})
	if err != nil || out {
		t.Fatalf("expected outside, got %v %v", out, err)
	}
	// longitude-first: (lng=5, lat=15) is outside, swapping would put it inside a tall shape
	tall := "POLYGON((0 0, 10 0, 10 20, 0 20, 0 0))"
	if ok, _ := Contains(tall, Vertex{Lng: 15, Lat: 5}); ok {
		t.Fatalf("coordinate order swapped")
	}
}

func TestFeatureCollection(t *testing.T) {
	zones := []model.Zone{
		{ID: 1, ReadableID: "1700000000000", Name: "Zone A", PolygonWKT: "POLYGON((0 0, 1 0, 1 1, 0 0))", Active: true},
	}
	fc, err := FeatureCollection(zones)
	if err != nil {
		t.Fatalf("FeatureCollection: %v", err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Properties["name"] != "Zone A" {
		t.Fatalf("features = %+v", fc.Features)
	}

	zones = append(zones, model.Zone{ID: 2, ReadableID: "1700000000001", Name: "Broken", PolygonWKT: "POLYGON((0 0, 1 0))"})
	if _, err := FeatureCollection(zones); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("want ErrInvalidGeometry, got %v", err)
	}
}

func TestPathGeometry(t *testing.T) {
	if g := PathGeometry([]Vertex{{1, 1}, {2, 2}}); g.Type != "LineString" {
		t.Fatalf("two vertices: type = %s", g.Type)
	}
	g := PathGeometry([]Vertex{{0, 0}, {1, 0}, {1, 1}})
	poly, ok := g.Geometry().(orb.Polygon)
	if !ok || len(poly[0]) != 4 || !poly[0].Closed() {
		t.Fatalf("polygon = %#v", g.Geometry())
	}
}
