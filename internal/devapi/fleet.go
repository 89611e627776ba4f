package devapi

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

// Fleet simulates vehicles driving a circular loop around a depot. Each id
// starts at its own point on the loop.
type Fleet struct {
	Depot  orb.Point // lng, lat
	Radius float64   // degrees
	Lap    time.Duration
	Speed  float64 // metres per second, for ETA
	now    func() time.Time
}

func NewFleet(depot orb.Point) *Fleet {
	return &Fleet{Depot: depot, Radius: 0.01, Lap: 10 * time.Minute, Speed: 8, now: time.Now}
}

// Position returns where id is now and its ETA back to the depot stop.
func (f *Fleet) Position(id string) model.TrackedPosition {
	now := f.now()
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	offset := float64(h.Sum32()%360) * math.Pi / 180
	frac := math.Mod(float64(now.UnixNano()), float64(f.Lap)) / float64(f.Lap)
	theta := offset + 2*math.Pi*frac

	p := orb.Point{f.Depot.Lon() + f.Radius*math.Cos(theta), f.Depot.Lat() + f.Radius*math.Sin(theta)}
	stop := orb.Point{f.Depot.Lon() + f.Radius, f.Depot.Lat()}
	eta := geo.Distance(p, stop) / f.Speed / 60
	eta = math.Round(eta*10) / 10
	return model.TrackedPosition{
		EntityID:    id,
		Latitude:    p.Lat(),
		Longitude:   p.Lon(),
		ETAMinutes:  &eta,
		LastUpdated: now.UTC(),
	}
}
