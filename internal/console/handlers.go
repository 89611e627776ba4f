package console

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apperr"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/draw"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/httpx"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/zones"
)

// writeError maps workflow errors onto problem responses. The detail is the
// operator-facing message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *apperr.ValidationError
	var ne *apperr.NetworkError
	var se *apperr.ServerError
	status, title := http.StatusInternalServerError, "Internal Server Error"
	switch {
	case errors.As(err, &ve):
		status, title = http.StatusUnprocessableEntity, "Invalid input"
	case errors.Is(err, draw.ErrUnavailable):
		status, title = http.StatusServiceUnavailable, "Map unavailable"
	case errors.Is(err, apperr.ErrBusy):
		status, title = http.StatusConflict, "Busy"
	case errors.Is(err, apperr.ErrNotConfirmed):
		status, title = http.StatusPreconditionRequired, "Confirmation required"
	case errors.Is(err, apperr.ErrUnauthorized):
		status, title = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperr.ErrMalformedResponse), errors.As(err, &ne):
		status, title = http.StatusBadGateway, "Bad Gateway"
	case errors.As(err, &se):
		status, title = http.StatusBadGateway, "Backend error"
		if se.Status >= 400 && se.Status < 500 {
			status = se.Status
			if se.Title != "" {
				title = se.Title
			}
		}
	}
	detail := apperr.UserMessage(err)
	if errors.Is(err, draw.ErrUnavailable) {
		detail = err.Error()
	}
	httpx.WriteProblem(w, status, title, detail, r.URL.Path)
}

func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadyHandler pings the broker when it is backed by Redis.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Broker.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			httpx.WriteProblem(w, http.StatusServiceUnavailable, "Not Ready", "broker: "+err.Error(), r.URL.Path)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- zones ---

func (s *Server) ListZonesHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.zonesView())
}

func (s *Server) zonesView() map[string]any {
	snap := s.Zones.State().Snapshot()
	out := map[string]any{
		"items":  snap.Zones,
		"banner": snap.Banner,
		"empty":  snap.Empty,
		"phase":  s.Zones.Phase().String(),
	}
	if snap.Zones == nil {
		out["items"] = []model.Zone{}
	}
	if !snap.LoadedAt.IsZero() {
		out["loadedAt"] = snap.LoadedAt
	}
	return out
}

// RefreshZonesHandler re-lists from the backend. A failure is reported in the
// banner, and the response still carries the previous collection.
func (s *Server) RefreshZonesHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Zones.List(r.Context()); err != nil {
		s.Log.Warn(r.Context(), "zone refresh failed", logging.Err(err))
	}
	httpx.WriteJSON(w, http.StatusOK, s.zonesView())
}

func (s *Server) ZonesGeoJSONHandler(w http.ResponseWriter, r *http.Request) {
	fc, err := geo.FeatureCollection(s.Zones.State().Zones())
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "Render failed", err.Error(), r.URL.Path)
		return
	}
	body, err := fc.MarshalJSON()
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "Encode failed", err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(body)
}

// ZoneDetailHandler shows one zone. Its stored polygon is read-only; changing
// the shape means drawing a new one.
func (s *Server) ZoneDetailHandler(w http.ResponseWriter, r *http.Request) {
	z, ok := s.Zones.State().Find(mux.Vars(r)["key"])
	if !ok {
		httpx.WriteProblem(w, http.StatusNotFound, "Not Found", "zone not found", r.URL.Path)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"zone":            z,
		"polygonEditable": false,
		"redrawHint":      "Draw a new polygon and save with redraw=true to replace the shape.",
	})
}

func (s *Server) OpenDialogHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if _, ok := s.Zones.State().Find(key); !ok {
		httpx.WriteProblem(w, http.StatusNotFound, "Not Found", "zone not found", r.URL.Path)
		return
	}
	s.Dialog.Show(key)
	httpx.WriteJSON(w, http.StatusOK, s.Dialog.View())
}

func (s *Server) DialogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		s.Dialog.Close()
	}
	httpx.WriteJSON(w, http.StatusOK, s.Dialog.View())
}

// UpdateZoneHandler sends a partial update. With ?redraw=true the polygon
// currently on the drawing surface replaces the stored one.
func (s *Server) UpdateZoneHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var patch model.ZonePatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	redraw := r.URL.Query().Get("redraw") == "true"
	if redraw {
		if err := s.Surface.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
		wkt, err := geo.Serialize(s.Surface.Path())
		if err != nil {
			writeError(w, r, &apperr.ValidationError{Field: "polygon", Msg: "The drawn polygon is not valid. Redraw it and try again.", Err: err})
			return
		}
		patch.PolygonWKT = &wkt
	}
	if v := s.Dialog.View(); !v.Open || v.Target != key {
		s.Dialog.Show(key)
	}
	z, err := s.Zones.Update(r.Context(), key, patch, s.Dialog)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if redraw {
		_ = s.Surface.Clear()
	}
	httpx.WriteJSON(w, http.StatusOK, z)
}

// DeleteZoneHandler removes a zone. The operator confirms with ?confirm=true;
// without it nothing is sent and 428 is returned.
func (s *Server) DeleteZoneHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	id, err := strconv.ParseInt(key, 10, 64)
	if z, ok := s.Zones.State().Find(key); ok {
		id, err = z.ID, nil
	}
	if err != nil {
		httpx.WriteProblem(w, http.StatusNotFound, "Not Found", "zone not found", r.URL.Path)
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"
	confirm := zones.ConfirmFunc(func(ctx context.Context, prompt string) bool {
		if !confirmed {
			s.Log.Info(ctx, "delete awaiting confirmation", logging.String("prompt", prompt))
		}
		return confirmed
	})
	if err := s.Zones.Delete(r.Context(), id, confirm); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- create form ---

type draftInput struct {
	Name   string `json:"name"`
	Active *bool  `json:"active,omitempty"`
}

func (s *Server) DraftHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPut {
		var in draftInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.WriteProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		active := s.Draft.View().Active
		if in.Active != nil {
			active = *in.Active
		}
		s.Draft.Set(in.Name, active)
	}
	httpx.WriteJSON(w, http.StatusOK, s.Draft.View())
}

func (s *Server) SubmitDraftHandler(w http.ResponseWriter, r *http.Request) {
	z, err := s.Zones.Create(r.Context(), s.Draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, z)
}

// --- drawing surface ---

type pathInput struct {
	// Vertices are [lng, lat] pairs in drawing order.
	Vertices [][2]float64 `json:"vertices"`
}

func (p pathInput) path() []geo.Vertex {
	out := make([]geo.Vertex, 0, len(p.Vertices))
	for _, v := range p.Vertices {
		out = append(out, geo.Vertex{Lng: v[0], Lat: v[1]})
	}
	return out
}

func (s *Server) DrawHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var in pathInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.WriteProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := s.Surface.Complete(in.path()); err != nil {
			writeError(w, r, err)
			return
		}
	case http.MethodDelete:
		if err := s.Surface.Clear(); err != nil {
			writeError(w, r, err)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, s.drawView())
}

func (s *Server) drawView() map[string]any {
	st := s.Surface.State()
	path := st.Path
	if path == nil {
		path = []geo.Vertex{}
	}
	return map[string]any{
		"ready":    st.Ready,
		"fallback": st.Fallback,
		"overlay":  st.Overlay,
		"path":     path,
		"geometry": geo.PathGeometry(path),
	}
}

// VertexHandler inserts (POST) or moves (PUT) one vertex of the drawn polygon.
func (s *Server) VertexHandler(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "Invalid index", err.Error(), r.URL.Path)
		return
	}
	var v geo.Vertex
	if err := httpx.DecodeJSON(r, &v); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if r.Method == http.MethodPost {
		err = s.Surface.Insert(i, v)
	} else {
		err = s.Surface.Move(i, v)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.drawView())
}

// --- live tracking ---

func (s *Server) TrackingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		s.Poller.Deselect()
	}
	httpx.WriteJSON(w, http.StatusOK, s.Poller.Status())
}

func (s *Server) SelectTrackingHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["entityId"])
	s.Poller.Select(id)
	s.Log.Info(r.Context(), "tracking entity selected", logging.String("entity_id", id))
	httpx.WriteJSON(w, http.StatusAccepted, s.Poller.Status())
}
