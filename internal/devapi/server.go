// Package devapi is an in-memory stand-in for the platform REST API: zones and
// a simulated tracked vehicle. It is used for local runs and tests.
package devapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/httpx"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

type Server struct {
	Store *Memory
	Auth  *Verifier
	Fleet *Fleet
	Log   logging.Logger
}

// Router wires the API routes. Everything except /healthz needs a bearer token.
func (s *Server) Router() *mux.Router {
	if s.Log == nil {
		s.Log = logging.Noop()
	}
	r := mux.NewRouter()
	r.Use(httpx.RequestID, httpx.Log(s.Log))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, 200, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.requireBearer)
	api.HandleFunc("/zones", s.ListZones).Methods(http.MethodGet)
	api.HandleFunc("/zones", s.CreateZone).Methods(http.MethodPost)
	api.HandleFunc("/zones/{id}", s.GetZone).Methods(http.MethodGet)
	api.HandleFunc("/zones/{id}", s.UpdateZone).Methods(http.MethodPut)
	api.HandleFunc("/zones/{id}", s.DeleteZone).Methods(http.MethodDelete)
	api.HandleFunc("/bus-location/{id}", s.BusLocation).Methods(http.MethodGet)
	return r
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			httpx.WriteProblem(w, 401, "Unauthorized", "bearer token required", r.URL.Path)
			return
		}
		if _, err := s.Auth.Verify(authz[len("Bearer "):]); err != nil {
			httpx.WriteProblem(w, 401, "Unauthorized", err.Error(), r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ListZones(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.ListZones(r.Context())
	if err != nil {
		httpx.WriteProblem(w, 500, "List zones failed", err.Error(), r.URL.Path)
		return
	}
	httpx.WriteJSON(w, 200, items)
}

func (s *Server) CreateZone(w http.ResponseWriter, r *http.Request) {
	var in model.ZoneInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	switch {
	case strings.TrimSpace(in.ReadableID) == "":
		httpx.WriteProblem(w, 422, "Invalid zone", "readableId is required", r.URL.Path)
		return
	case strings.TrimSpace(in.Name) == "":
		httpx.WriteProblem(w, 422, "Invalid zone", "name is required", r.URL.Path)
		return
	}
	if err := geo.ValidateWKT(in.PolygonWKT); err != nil {
		httpx.WriteProblem(w, 422, "Invalid zone", "polygonWkt: "+err.Error(), r.URL.Path)
		return
	}
	z, err := s.Store.CreateZone(r.Context(), in)
	if errors.Is(err, ErrConflict) {
		httpx.WriteProblem(w, 409, "Conflict", err.Error(), r.URL.Path)
		return
	}
	if err != nil {
		httpx.WriteProblem(w, 500, "Create zone failed", err.Error(), r.URL.Path)
		return
	}
	s.Log.Info(r.Context(), "zone created", logging.Int64("id", z.ID), logging.String("readable_id", z.ReadableID))
	httpx.WriteJSON(w, 201, z)
}

func (s *Server) GetZone(w http.ResponseWriter, r *http.Request) {
	z, err := s.Store.GetZone(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteProblem(w, 404, "Not Found", err.Error(), r.URL.Path)
		return
	}
	httpx.WriteJSON(w, 200, z)
}

func (s *Server) UpdateZone(w http.ResponseWriter, r *http.Request) {
	var p model.ZonePatch
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.WriteProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		httpx.WriteProblem(w, 422, "Invalid zone", "name must not be empty", r.URL.Path)
		return
	}
	if p.PolygonWKT != nil {
		if err := geo.ValidateWKT(*p.PolygonWKT); err != nil {
			httpx.WriteProblem(w, 422, "Invalid zone", "polygonWkt: "+err.Error(), r.URL.Path)
			return
		}
	}
	z, err := s.Store.PatchZone(r.Context(), mux.Vars(r)["id"], p)
	if errors.Is(err, ErrNotFound) {
		httpx.WriteProblem(w, 404, "Not Found", "zone not found", r.URL.Path)
		return
	}
	if err != nil {
		httpx.WriteProblem(w, 500, "Update zone failed", err.Error(), r.URL.Path)
		return
	}
	httpx.WriteJSON(w, 200, z)
}

func (s *Server) DeleteZone(w http.ResponseWriter, r *http.Request) {
	err := s.Store.DeleteZone(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrNotFound) {
		httpx.WriteProblem(w, 404, "Not Found", "zone not found", r.URL.Path)
		return
	}
	if err != nil {
		httpx.WriteProblem(w, 500, "Delete zone failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(204)
}

func (s *Server) BusLocation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.Fleet == nil {
		httpx.WriteProblem(w, 404, "Not Found", "no fleet configured", r.URL.Path)
		return
	}
	p := s.Fleet.Position(id)
	httpx.WriteJSON(w, 200, map[string]any{
		"busId":       id,
		"latitude":    p.Latitude,
		"longitude":   p.Longitude,
		"etaMinutes":  p.ETAMinutes,
		"lastUpdated": p.LastUpdated,
	})
}
