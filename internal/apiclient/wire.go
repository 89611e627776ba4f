package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apperr"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

// Problem is the RFC7807 error body the backend may return.
type Problem struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Status  int    `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Message string `json:"message,omitempty"`
}

// zoneWire mirrors a zone payload with every field optional so missing keys
// can be told apart from zero values.
type zoneWire struct {
	ID         *int64  `json:"id"`
	ReadableID *string `json:"readableId"`
	Name       *string `json:"name"`
	PolygonWKT *string `json:"polygonWkt"`
	Active     *bool   `json:"active"`
}

func (w zoneWire) toModel() (model.Zone, error) {
	switch {
	case w.ID == nil:
		return model.Zone{}, missing("id")
	case w.ReadableID == nil || *w.ReadableID == "":
		return model.Zone{}, missing("readableId")
	case w.Name == nil:
		return model.Zone{}, missing("name")
	case w.PolygonWKT == nil:
		return model.Zone{}, missing("polygonWkt")
	case w.Active == nil:
		return model.Zone{}, missing("active")
	}
	if err := geo.ValidateWKT(*w.PolygonWKT); err != nil {
		return model.Zone{}, fmt.Errorf("%w: zone %d: %v", apperr.ErrMalformedResponse, *w.ID, err)
	}
	return model.Zone{
		ID:         *w.ID,
		ReadableID: *w.ReadableID,
		Name:       *w.Name,
		PolygonWKT: *w.PolygonWKT,
		Active:     *w.Active,
	}, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", apperr.ErrMalformedResponse, field)
}

func decodeZone(body []byte) (model.Zone, error) {
	var w zoneWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.Zone{}, fmt.Errorf("%w: %v", apperr.ErrMalformedResponse, err)
	}
	return w.toModel()
}

// decodeZoneList accepts a bare array or an {"items": [...]} envelope. A
// body that is not a zone list fails as a whole; a single bad record is left
// out and reported in dropped so the rest of the list still loads.
func decodeZoneList(body []byte) (zones []model.Zone, dropped []error, err error) {
	trimmed := bytes.TrimSpace(body)
	var items []zoneWire
	switch {
	case len(trimmed) == 0:
		return nil, nil, fmt.Errorf("%w: empty body", apperr.ErrMalformedResponse)
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperr.ErrMalformedResponse, err)
		}
	case trimmed[0] == '{':
		var env struct {
			Items *[]zoneWire `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperr.ErrMalformedResponse, err)
		}
		if env.Items == nil {
			return nil, nil, missing("items")
		}
		items = *env.Items
	default:
		return nil, nil, fmt.Errorf("%w: unexpected body", apperr.ErrMalformedResponse)
	}
	zones = make([]model.Zone, 0, len(items))
	for i, w := range items {
		z, err := w.toModel()
		if err != nil {
			dropped = append(dropped, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		zones = append(zones, z)
	}
	return zones, dropped, nil
}

type positionWire struct {
	Latitude    *float64        `json:"latitude"`
	Longitude   *float64        `json:"longitude"`
	ETAMinutes  *float64        `json:"etaMinutes"`
	LastUpdated *time.Time      `json:"lastUpdated"`
	Raw         json.RawMessage `json:"raw"`
}

// decodePosition validates a tracked-entity payload. A missing lastUpdated is
// stamped with received; a missing raw keeps the whole body.
func decodePosition(entityID string, body []byte, received time.Time) (model.TrackedPosition, error) {
	var w positionWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.TrackedPosition{}, fmt.Errorf("%w: %v", apperr.ErrMalformedResponse, err)
	}
	if w.Latitude == nil {
		return model.TrackedPosition{}, missing("latitude")
	}
	if w.Longitude == nil {
		return model.TrackedPosition{}, missing("longitude")
	}
	if *w.Latitude < -90 || *w.Latitude > 90 || *w.Longitude < -180 || *w.Longitude > 180 {
		return model.TrackedPosition{}, fmt.Errorf("%w: coordinate out of range (%v, %v)", apperr.ErrMalformedResponse, *w.Latitude, *w.Longitude)
	}
	p := model.TrackedPosition{
		EntityID:    entityID,
		Latitude:    *w.Latitude,
		Longitude:   *w.Longitude,
		ETAMinutes:  w.ETAMinutes,
		LastUpdated: received,
		Raw:         w.Raw,
	}
	if w.LastUpdated != nil {
		p.LastUpdated = *w.LastUpdated
	}
	if len(p.Raw) == 0 {
		p.Raw = append(json.RawMessage(nil), body...)
	}
	return p, nil
}
