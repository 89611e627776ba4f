package zones

import (
	"strconv"
	"sync"
	"time"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

// EmptyMessage is shown when there are no zones to display.
const EmptyMessage = "No data available"

// Snapshot is a consistent read of State.
type Snapshot struct {
	Zones    []model.Zone `json:"zones"`
	Banner   string       `json:"banner,omitempty"`
	Empty    string       `json:"empty,omitempty"`
	LoadedAt time.Time    `json:"loadedAt,omitempty"`
}

// State is the zone slice. Readers use the accessors; only Manager writes.
type State struct {
	mu       sync.RWMutex
	zones    []model.Zone
	banner   string
	loadedAt time.Time
	applied  uint64
}

func NewState() *State { return &State{} }

func (s *State) Zones() []model.Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Zone(nil), s.zones...)
}

// Banner is the last list error, cleared by the next successful list.
func (s *State) Banner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.banner
}

// EmptyMessage returns EmptyMessage when the collection is empty.
func (s *State) EmptyMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.zones) == 0 {
		return EmptyMessage
	}
	return ""
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Zones: append([]model.Zone{}, s.zones...), Banner: s.banner, LoadedAt: s.loadedAt}
	if len(s.zones) == 0 {
		snap.Empty = EmptyMessage
	}
	return snap
}

// Find looks a zone up by readable id or numeric id.
func (s *State) Find(key string) (model.Zone, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, z := range s.zones {
		if z.ReadableID == key {
			return z, true
		}
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		for _, z := range s.zones {
			if z.ID == id {
				return z, true
			}
		}
	}
	return model.Zone{}, false
}

// ZoneAt returns the first active zone containing the point.
func (s *State) ZoneAt(lat, lng float64) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := geo.Vertex{Lng: lng, Lat: lat}
	for _, z := range s.zones {
		if !z.Active {
			continue
		}
		if ok, err := geo.Contains(z.PolygonWKT, v); err == nil && ok {
			return z.ID, true
		}
	}
	return 0, false
}

// replace applies a list response unless a newer one was already applied.
func (s *State) replace(seq uint64, zones []model.Zone, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		return false
	}
	s.applied = seq
	s.zones = append([]model.Zone(nil), zones...)
	s.banner = ""
	s.loadedAt = at
	return true
}

func (s *State) fail(seq uint64, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		return false
	}
	s.applied = seq
	s.banner = msg
	return true
}
