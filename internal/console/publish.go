package console

import (
	"context"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/broker"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/draw"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/zones"
)

// BrokerCanvas keeps overlays in memory and publishes every change on the
// draw topic for the map page to render.
type BrokerCanvas struct {
	*draw.MemoryCanvas
	B broker.EventBroker
}

func NewBrokerCanvas(b broker.EventBroker) *BrokerCanvas {
	return &BrokerCanvas{MemoryCanvas: draw.NewMemoryCanvas(), B: b}
}

func (c *BrokerCanvas) AddOverlay(path []geo.Vertex) (string, error) {
	id, err := c.MemoryCanvas.AddOverlay(path)
	if err != nil {
		return "", err
	}
	c.B.Publish(broker.TopicDraw, broker.Event{Type: "overlay.added", Data: overlayData(id, path)})
	return id, nil
}

func (c *BrokerCanvas) UpdateOverlay(id string, path []geo.Vertex) error {
	if err := c.MemoryCanvas.UpdateOverlay(id, path); err != nil {
		return err
	}
	c.B.Publish(broker.TopicDraw, broker.Event{Type: "overlay.updated", Data: overlayData(id, path)})
	return nil
}

func (c *BrokerCanvas) RemoveOverlay(id string) error {
	if err := c.MemoryCanvas.RemoveOverlay(id); err != nil {
		return err
	}
	c.B.Publish(broker.TopicDraw, broker.Event{Type: "overlay.removed", Data: map[string]any{"id": id}})
	return nil
}

func overlayData(id string, path []geo.Vertex) map[string]any {
	return map[string]any{"id": id, "vertices": len(path), "geometry": geo.PathGeometry(path)}
}

// BrokerMarker publishes marker moves on the tracking topic.
type BrokerMarker struct {
	B broker.EventBroker
}

func (m BrokerMarker) MoveTo(p model.TrackedPosition) {
	data := map[string]any{
		"entityId":    p.EntityID,
		"latitude":    p.Latitude,
		"longitude":   p.Longitude,
		"lastUpdated": p.LastUpdated,
	}
	if p.ETAMinutes != nil {
		data["etaMinutes"] = *p.ETAMinutes
	}
	if p.ZoneID != nil {
		data["zoneId"] = *p.ZoneID
	}
	m.B.Publish(broker.TopicTracking, broker.Event{Type: "marker.moved", Data: data})
}

// Toaster logs toasts and publishes them on the zones topic.
type Toaster struct {
	B   broker.EventBroker
	Log logging.Logger
}

func (t Toaster) Toast(level zones.Level, msg string) {
	if t.Log != nil {
		t.Log.Info(context.Background(), "toast", logging.String("level", string(level)), logging.String("message", msg))
	}
	t.B.Publish(broker.TopicZones, broker.Event{Type: "toast", Data: map[string]any{"level": string(level), "message": msg}})
}

// publishZones announces a refreshed zone list.
func publishZones(b broker.EventBroker, snap zones.Snapshot) {
	b.Publish(broker.TopicZones, broker.Event{Type: "zones.listed", Data: map[string]any{
		"count":  len(snap.Zones),
		"banner": snap.Banner,
		"empty":  snap.Empty,
	}})
}
