package zones

import (
	"sync"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
)

// PathSource is the drawing surface as seen by the create form.
type PathSource interface {
	Path() []geo.Vertex
	Validate() error
	Clear() error
}

// DraftView is a copy of the create form.
type DraftView struct {
	Name   string       `json:"name"`
	Active bool         `json:"active"`
	Path   []geo.Vertex `json:"path"`
}

// Draft is the create form. The polygon comes from the drawing surface.
type Draft struct {
	mu     sync.Mutex
	name   string
	active bool
	path   PathSource
}

// NewDraft returns an empty form; new zones default to active.
func NewDraft(path PathSource) *Draft {
	return &Draft{active: true, path: path}
}

func (d *Draft) Set(name string, active bool) {
	d.mu.Lock()
	d.name, d.active = name, active
	d.mu.Unlock()
}

func (d *Draft) View() DraftView {
	d.mu.Lock()
	v := DraftView{Name: d.name, Active: d.active}
	d.mu.Unlock()
	if d.path != nil {
		v.Path = d.path.Path()
	}
	if v.Path == nil {
		v.Path = []geo.Vertex{}
	}
	return v
}

// Reset restores the empty defaults and clears the drawn polygon.
func (d *Draft) Reset() {
	d.mu.Lock()
	d.name, d.active = "", true
	d.mu.Unlock()
	if d.path != nil {
		_ = d.path.Clear()
	}
}

// DialogView is a copy of the edit dialog.
type DialogView struct {
	Open   bool   `json:"open"`
	Target string `json:"target,omitempty"`
	Err    string `json:"error,omitempty"`
}

// EditDialog is the update form for one zone.
type EditDialog struct {
	mu     sync.Mutex
	open   bool
	target string
	err    string
}

// Show opens the dialog for the zone with the given key.
func (e *EditDialog) Show(target string) {
	e.mu.Lock()
	e.open, e.target, e.err = true, target, ""
	e.mu.Unlock()
}

func (e *EditDialog) Close() {
	e.mu.Lock()
	e.open, e.target, e.err = false, "", ""
	e.mu.Unlock()
}

func (e *EditDialog) View() DialogView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return DialogView{Open: e.open, Target: e.target, Err: e.err}
}

func (e *EditDialog) fail(msg string) {
	e.mu.Lock()
	e.err = msg
	e.mu.Unlock()
}
