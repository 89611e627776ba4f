// Package draw holds the polygon drawing surface: the single active overlay on
// the map canvas and the ordered vertex path the operator is editing.
package draw

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apperr"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
)

// ErrUnavailable is returned by every drawing operation while the surface is
// in its fallback state.
var ErrUnavailable = errors.New("map unavailable")

// Canvas is the rendering side of a map widget.
type Canvas interface {
	AddOverlay(path []geo.Vertex) (id string, err error)
	UpdateOverlay(id string, path []geo.Vertex) error
	RemoveOverlay(id string) error
}

// Provider initializes a Canvas from map-provider credentials.
type Provider interface {
	Init(apiKey string) (Canvas, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(apiKey string) (Canvas, error)

func (f ProviderFunc) Init(apiKey string) (Canvas, error) { return f(apiKey) }

// State is a read-only view of the surface.
type State struct {
	Ready    bool         `json:"ready"`
	Fallback string       `json:"fallback,omitempty"`
	Overlay  string       `json:"overlay,omitempty"`
	Path     []geo.Vertex `json:"path"`
}

// Surface owns at most one polygon overlay and its path. onChange receives a
// copy of the full path every time it changes.
type Surface struct {
	mu       sync.Mutex
	canvas   Canvas
	fallback string
	overlay  string
	path     []geo.Vertex
	onChange func([]geo.Vertex)
}

// NewSurface initializes the canvas. A missing key or a provider failure puts
// the surface in fallback mode instead of failing.
func NewSurface(p Provider, apiKey string, onChange func([]geo.Vertex)) *Surface {
	s := &Surface{onChange: onChange}
	switch {
	case strings.TrimSpace(apiKey) == "":
		s.fallback = "Map unavailable: no map provider key is configured (set MAP_API_KEY)."
	case p == nil:
		s.fallback = "Map unavailable: no map provider is configured."
	default:
		c, err := p.Init(apiKey)
		if err != nil || c == nil {
			if err == nil {
				err = errors.New("provider returned no canvas")
			}
			s.fallback = fmt.Sprintf("Map unavailable: %v.", err)
		} else {
			s.canvas = c
		}
	}
	return s
}

// Ready reports whether the canvas initialized.
func (s *Surface) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas != nil
}

// Fallback returns the explanation shown instead of the map, or "".
func (s *Surface) Fallback() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback
}

// Complete handles a finished draw gesture. Any previous polygon is removed
// from the canvas before the new one is added.
func (s *Surface) Complete(path []geo.Vertex) error {
	s.mu.Lock()
	if s.canvas == nil {
		s.mu.Unlock()
		return ErrUnavailable
	}
	if s.overlay != "" {
		if err := s.canvas.RemoveOverlay(s.overlay); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("remove previous overlay: %w", err)
		}
		s.overlay = ""
		s.path = nil
	}
	next := clone(path)
	id, err := s.canvas.AddOverlay(next)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("add overlay: %w", err)
	}
	s.overlay = id
	s.path = next
	out := clone(s.path)
	s.mu.Unlock()
	s.emit(out)
	return nil
}

// Insert adds v before position i; i == len(path) appends.
func (s *Surface) Insert(i int, v geo.Vertex) error {
	return s.edit(func(path []geo.Vertex) ([]geo.Vertex, error) {
		if i < 0 || i > len(path) {
			return nil, apperr.Invalid("index", fmt.Sprintf("Vertex index %d is out of range.", i))
		}
		out := make([]geo.Vertex, 0, len(path)+1)
		out = append(out, path[:i]...)
		out = append(out, v)
		return append(out, path[i:]...), nil
	})
}

// Move relocates vertex i to v.
func (s *Surface) Move(i int, v geo.Vertex) error {
	return s.edit(func(path []geo.Vertex) ([]geo.Vertex, error) {
		if i < 0 || i >= len(path) {
			return nil, apperr.Invalid("index", fmt.Sprintf("Vertex index %d is out of range.", i))
		}
		out := clone(path)
		out[i] = v
		return out, nil
	})
}

func (s *Surface) edit(fn func([]geo.Vertex) ([]geo.Vertex, error)) error {
	s.mu.Lock()
	if s.canvas == nil {
		s.mu.Unlock()
		return ErrUnavailable
	}
	if s.overlay == "" {
		s.mu.Unlock()
		return apperr.Invalid("polygon", "Draw a polygon before editing it.")
	}
	next, err := fn(s.path)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.canvas.UpdateOverlay(s.overlay, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("update overlay: %w", err)
	}
	s.path = next
	out := clone(s.path)
	s.mu.Unlock()
	s.emit(out)
	return nil
}

// Clear removes the overlay and forgets the path.
func (s *Surface) Clear() error {
	s.mu.Lock()
	if s.canvas == nil {
		s.mu.Unlock()
		return ErrUnavailable
	}
	had := s.overlay != "" || len(s.path) > 0
	if s.overlay != "" {
		if err := s.canvas.RemoveOverlay(s.overlay); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("remove overlay: %w", err)
		}
	}
	s.overlay = ""
	s.path = nil
	s.mu.Unlock()
	if had {
		s.emit(nil)
	}
	return nil
}

// Path returns a copy of the current ordered path.
func (s *Surface) Path() []geo.Vertex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.path)
}

// Validate blocks submission of a path that cannot form a polygon.
func (s *Surface) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canvas == nil {
		return ErrUnavailable
	}
	if len(s.path) < geo.MinVertices {
		return &apperr.ValidationError{
			Field: "polygon",
			Msg:   fmt.Sprintf("Draw a polygon with at least %d points before saving.", geo.MinVertices),
			Err:   geo.ErrInvalidGeometry,
		}
	}
	return nil
}

// State returns a snapshot for display.
func (s *Surface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := clone(s.path)
	if p == nil {
		p = []geo.Vertex{}
	}
	return State{Ready: s.canvas != nil, Fallback: s.fallback, Overlay: s.overlay, Path: p}
}

func (s *Surface) emit(path []geo.Vertex) {
	if s.onChange != nil {
		s.onChange(path)
	}
}

func clone(p []geo.Vertex) []geo.Vertex {
	if p == nil {
		return nil
	}
	return append([]geo.Vertex(nil), p...)
}
