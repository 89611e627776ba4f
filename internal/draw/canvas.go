package draw

import (
	"fmt"
	"sync"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
)

// Op is one recorded canvas call.
type Op struct {
	Kind string // add, update, remove
	ID   string
	Path []geo.Vertex
}

// MemoryCanvas keeps overlays in memory and records every call.
type MemoryCanvas struct {
	mu       sync.Mutex
	next     int
	overlays map[string][]geo.Vertex
	ops      []Op
}

func NewMemoryCanvas() *MemoryCanvas {
	return &MemoryCanvas{overlays: map[string][]geo.Vertex{}}
}

// MemoryProvider hands out c for any key.
func MemoryProvider(c *MemoryCanvas) Provider {
	return ProviderFunc(func(string) (Canvas, error) { return c, nil })
}

func (m *MemoryCanvas) AddOverlay(path []geo.Vertex) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("overlay-%d", m.next)
	m.overlays[id] = clone(path)
	m.ops = append(m.ops, Op{Kind: "add", ID: id, Path: clone(path)})
	return id, nil
}

func (m *MemoryCanvas) UpdateOverlay(id string, path []geo.Vertex) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.overlays[id]; !ok {
		return fmt.Errorf("overlay %s not found", id)
	}
	m.overlays[id] = clone(path)
	m.ops = append(m.ops, Op{Kind: "update", ID: id, Path: clone(path)})
	return nil
}

func (m *MemoryCanvas) RemoveOverlay(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.overlays[id]; !ok {
		return fmt.Errorf("overlay %s not found", id)
	}
	delete(m.overlays, id)
	m.ops = append(m.ops, Op{Kind: "remove", ID: id})
	return nil
}

// Overlays returns the number of overlays currently on the canvas.
func (m *MemoryCanvas) Overlays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.overlays)
}

// Ops returns the recorded calls in order.
func (m *MemoryCanvas) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Op(nil), m.ops...)
}
