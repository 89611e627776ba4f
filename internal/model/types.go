package model

import (
	"encoding/json"
	"time"
)

// Zone is a named, boolean-flagged service area bounded by a WKT polygon.
type Zone struct {
	ID         int64  `json:"id"`
	ReadableID string `json:"readableId"`
	Name       string `json:"name"`
	PolygonWKT string `json:"polygonWkt"`
	Active     bool   `json:"active"`
}

// ZoneInput is the POST /zones body.
type ZoneInput struct {
	ReadableID string `json:"readableId"`
	Name       string `json:"name"`
	PolygonWKT string `json:"polygonWkt"`
	Active     bool   `json:"active"`
}

// ZonePatch is the PUT /zones/{id} body; nil fields are left as stored.
type ZonePatch struct {
	Name       *string `json:"name,omitempty"`
	PolygonWKT *string `json:"polygonWkt,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p ZonePatch) Empty() bool { return p.Name == nil && p.PolygonWKT == nil && p.Active == nil }

// TrackedPosition is the latest sample for a moving entity (vehicle, bus).
type TrackedPosition struct {
	EntityID    string          `json:"entityId"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	ETAMinutes  *float64        `json:"etaMinutes,omitempty"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Raw         json.RawMessage `json:"raw,omitempty"`
	// ZoneID is the zone containing the position when known.
	ZoneID *int64 `json:"zoneId,omitempty"`
}
