package draw

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apperr"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
)

var triangle = []geo.Vertex{{Lng: 90.41, Lat: 23.81}, {Lng: 90.42, Lat: 23.81}, {Lng: 90.42, Lat: 23.82}}

type recorder struct {
	mu    sync.Mutex
	paths [][]geo.Vertex
}

func (r *recorder) onChange(p []geo.Vertex) {
	r.mu.Lock()
	r.paths = append(r.paths, p)
	r.mu.Unlock()
}

func (r *recorder) last() []geo.Vertex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.paths) == 0 {
		return nil
	}
	return r.paths[len(r.paths)-1]
}

func newTestSurface(t *testing.T) (*Surface, *MemoryCanvas, *recorder) {
	t.Helper()
	c := NewMemoryCanvas()
	rec := &recorder{}
	s := NewSurface(MemoryProvider(c), "test-key", rec.onChange)
	if !s.Ready() {
		t.Fatalf("surface not ready: %s", s.Fallback())
	}
	return s, c, rec
}

func TestFallbackWithoutKey(t *testing.T) {
	s := NewSurface(MemoryProvider(NewMemoryCanvas()), "", nil)
	if s.Ready() {
		t.Fatal("expected fallback state without a key")
	}
	if s.Fallback() == "" {
		t.Fatal("fallback message should explain the missing configuration")
	}
	for name, err := range map[string]error{
		"complete": s.Complete(triangle),
		"insert":   s.Insert(0, geo.Vertex{}),
		"move":     s.Move(0, geo.Vertex{}),
		"clear":    s.Clear(),
		"validate": s.Validate(),
	} {
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("%s: want ErrUnavailable, got %v", name, err)
		}
	}
}

func TestFallbackOnProviderError(t *testing.T) {
	p := ProviderFunc(func(string) (Canvas, error) { return nil, errors.New("quota exceeded") })
	s := NewSurface(p, "k", nil)
	if s.Ready() || s.Fallback() != "Map unavailable: quota exceeded." {
		t.Fatalf("ready=%v fallback=%q", s.Ready(), s.Fallback())
	}
}

func TestSecondDrawReplacesFirst(t *testing.T) {
	s, c, rec := newTestSurface(t)
	if err := s.Complete(triangle); err != nil {
		t.Fatal(err)
	}
	second := []geo.Vertex{{Lng: 1, Lat: 1}, {Lng: 2, Lat: 1}, {Lng: 2, Lat: 2}, {Lng: 1, Lat: 2}}
	if err := s.Complete(second); err != nil {
		t.Fatal(err)
	}
	ops := c.Ops()
	kinds := []string{}
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}
	if !reflect.DeepEqual(kinds, []string{"add", "remove", "add"}) {
		t.Fatalf("ops = %v, want add, remove, add", kinds)
	}
	if ops[1].ID != ops[0].ID {
		t.Fatalf("removed %s, want the first overlay %s", ops[1].ID, ops[0].ID)
	}
	if c.Overlays() != 1 {
		t.Fatalf("overlays = %d, want 1", c.Overlays())
	}
	if !reflect.DeepEqual(rec.last(), second) || !reflect.DeepEqual(s.Path(), second) {
		t.Fatalf("path not replaced: %v", s.Path())
	}
}

func TestEditsReemitPath(t *testing.T) {
	s, c, rec := newTestSurface(t)
	if err := s.Complete(triangle); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(1, geo.Vertex{Lng: 90.415, Lat: 23.80}); err != nil {
		t.Fatal(err)
	}
	if got := rec.last(); len(got) != 4 || got[1].Lng != 90.415 {
		t.Fatalf("after insert: %v", got)
	}
	if err := s.Move(3, geo.Vertex{Lng: 90.43, Lat: 23.83}); err != nil {
		t.Fatal(err)
	}
	want := []geo.Vertex{triangle[0], {Lng: 90.415, Lat: 23.80}, triangle[1], {Lng: 90.43, Lat: 23.83}}
	if !reflect.DeepEqual(rec.last(), want) {
		t.Fatalf("after move: %v, want %v", rec.last(), want)
	}
	ops := c.Ops()
	if ops[len(ops)-1].Kind != "update" || !reflect.DeepEqual(ops[len(ops)-1].Path, want) {
		t.Fatalf("canvas not updated: %+v", ops[len(ops)-1])
	}
	if err := s.Move(9, geo.Vertex{}); err == nil {
		t.Fatal("expected out-of-range move to fail")
	}
}

func TestEmittedPathIsACopy(t *testing.T) {
	s, _, rec := newTestSurface(t)
	_ = s.Complete(triangle)
	rec.last()[0].Lng = 0
	if s.Path()[0].Lng != 90.41 {
		t.Fatal("listener mutated the surface path")
	}
}

func TestValidateNeedsThreeVertices(t *testing.T) {
	s, _, _ := newTestSurface(t)
	err := s.Validate()
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || ve.Msg == "" {
		t.Fatalf("empty surface: want ValidationError, got %v", err)
	}
	_ = s.Complete(triangle[:2])
	if err := s.Validate(); !errors.Is(err, geo.ErrInvalidGeometry) {
		t.Fatalf("two vertices: want ErrInvalidGeometry, got %v", err)
	}
	_ = s.Complete(triangle)
	if err := s.Validate(); err != nil {
		t.Fatalf("triangle: %v", err)
	}
}

func TestClear(t *testing.T) {
	s, c, rec := newTestSurface(t)
	_ = s.Complete(triangle)
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if c.Overlays() != 0 || len(s.Path()) != 0 || rec.last() != nil {
		t.Fatalf("clear left state: overlays=%d path=%v", c.Overlays(), s.Path())
	}
	if err := s.Insert(0, geo.Vertex{}); err == nil {
		t.Fatal("editing after clear should fail")
	}
}
