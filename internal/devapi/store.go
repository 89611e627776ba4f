package devapi

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("readableId already exists")
)

// Memory keeps zones in process memory. It backs local runs and tests only.
type Memory struct {
	mu     sync.Mutex
	zones  map[int64]model.Zone // id -> zone
	byRID  map[string]int64     // readableId -> id
	nextID int64
}

func NewMemory() *Memory {
	return &Memory{
		zones: map[int64]model.Zone{},
		byRID: map[string]int64{},
	}
}

func (m *Memory) ListZones(ctx context.Context) ([]model.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Zone, 0, len(m.zones))
	for _, z := range m.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateZone(ctx context.Context, in model.ZoneInput) (model.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byRID[in.ReadableID]; dup {
		return model.Zone{}, ErrConflict
	}
	m.nextID++
	z := model.Zone{ID: m.nextID, ReadableID: in.ReadableID, Name: in.Name, PolygonWKT: in.PolygonWKT, Active: in.Active}
	m.zones[z.ID] = z
	m.byRID[z.ReadableID] = z.ID
	return z, nil
}

// GetZone resolves key as a readable id first, then as a numeric id.
func (m *Memory) GetZone(ctx context.Context, key string) (model.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.resolve(key)
	if !ok {
		return model.Zone{}, ErrNotFound
	}
	return m.zones[id], nil
}

func (m *Memory) PatchZone(ctx context.Context, key string, p model.ZonePatch) (model.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.resolve(key)
	if !ok {
		return model.Zone{}, ErrNotFound
	}
	z := m.zones[id]
	if p.Name != nil {
		z.Name = *p.Name
	}
	if p.PolygonWKT != nil {
		z.PolygonWKT = *p.PolygonWKT
	}
	if p.Active != nil {
		z.Active = *p.Active
	}
	m.zones[id] = z
	return z, nil
}

func (m *Memory) DeleteZone(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.resolve(key)
	if !ok {
		return ErrNotFound
	}
	delete(m.byRID, m.zones[id].ReadableID)
	delete(m.zones, id)
	return nil
}

func (m *Memory) resolve(key string) (int64, bool) {
	if id, ok := m.byRID[key]; ok {
		return id, true
	}
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, false
	}
	_, ok := m.zones[id]
	return id, ok
}
