// Package console exposes the zone workflow over a local HTTP and WebSocket
// surface for the map page.
package console

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/broker"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/draw"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/httpx"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/metrics"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/tracking"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/zones"
)

// Backend is what the console needs from the REST client.
type Backend interface {
	zones.API
	tracking.Fetcher
}

// Deps configures New.
type Deps struct {
	API          Backend
	Broker       broker.EventBroker
	Log          logging.Logger
	MapProvider  draw.Provider // defaults to a BrokerCanvas
	MapKey       string
	PollInterval time.Duration
	// Settings is echoed by /debug.
	Settings map[string]any
}

type Server struct {
	Zones   *zones.Manager
	Draft   *zones.Draft
	Dialog  *zones.EditDialog
	Surface *draw.Surface
	Poller  *tracking.Poller
	Broker  broker.EventBroker
	Log     logging.Logger

	settings map[string]any
}

func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = logging.Noop()
	}
	if d.Broker == nil {
		d.Broker = broker.NewBroker()
	}
	s := &Server{Broker: d.Broker, Log: d.Log, Dialog: &zones.EditDialog{}, settings: d.Settings}

	provider := d.MapProvider
	if provider == nil {
		provider = draw.ProviderFunc(func(string) (draw.Canvas, error) { return NewBrokerCanvas(d.Broker), nil })
	}
	s.Surface = draw.NewSurface(provider, d.MapKey, s.pathChanged)
	if !s.Surface.Ready() {
		d.Log.Warn(context.Background(), "drawing surface in fallback mode", logging.String("reason", s.Surface.Fallback()))
	}

	state := zones.NewState()
	s.Zones = zones.NewManager(d.API, state,
		zones.WithLogger(d.Log.With(logging.String("component", "zones"))),
		zones.WithNotifier(Toaster{B: d.Broker, Log: d.Log}),
		zones.WithListener(func(snap zones.Snapshot) { publishZones(d.Broker, snap) }),
	)
	s.Draft = zones.NewDraft(s.Surface)
	s.Poller = tracking.NewPoller(d.API, BrokerMarker{B: d.Broker},
		tracking.WithInterval(d.PollInterval),
		tracking.WithLocator(state),
		tracking.WithLogger(d.Log.With(logging.String("component", "tracking"))),
	)
	return s
}

func (s *Server) pathChanged(path []geo.Vertex) {
	pairs := make([][2]float64, 0, len(path))
	for _, v := range path {
		pairs = append(pairs, [2]float64{v.Lng, v.Lat})
	}
	s.Broker.Publish(broker.TopicDraw, broker.Event{Type: "path.changed", Data: map[string]any{"path": pairs}})
}

// Router wires every console route.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(httpx.RequestID, httpx.Log(s.Log))

	r.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.ReadyHandler).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/debug", s.DebugJSON).Methods(http.MethodGet)

	r.HandleFunc("/zones", s.ListZonesHandler).Methods(http.MethodGet)
	r.HandleFunc("/zones/refresh", s.RefreshZonesHandler).Methods(http.MethodPost)
	r.HandleFunc("/zones/geojson", s.ZonesGeoJSONHandler).Methods(http.MethodGet)
	r.HandleFunc("/zones/{key}", s.ZoneDetailHandler).Methods(http.MethodGet)
	r.HandleFunc("/zones/{key}", s.UpdateZoneHandler).Methods(http.MethodPut)
	r.HandleFunc("/zones/{key}", s.DeleteZoneHandler).Methods(http.MethodDelete)
	r.HandleFunc("/zones/{key}/edit", s.OpenDialogHandler).Methods(http.MethodPost)
	r.HandleFunc("/dialog", s.DialogHandler).Methods(http.MethodGet, http.MethodDelete)

	r.HandleFunc("/draft", s.DraftHandler).Methods(http.MethodGet, http.MethodPut)
	r.HandleFunc("/draft/submit", s.SubmitDraftHandler).Methods(http.MethodPost)

	r.HandleFunc("/draw", s.DrawHandler).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)
	r.HandleFunc("/draw/vertices/{index:[0-9]+}", s.VertexHandler).Methods(http.MethodPost, http.MethodPut)

	r.HandleFunc("/tracking", s.TrackingHandler).Methods(http.MethodGet, http.MethodDelete)
	r.HandleFunc("/tracking/{entityId}", s.SelectTrackingHandler).Methods(http.MethodPut)

	r.HandleFunc("/ws", s.WSHandler).Methods(http.MethodGet)
	return r
}

// Close stops background polling.
func (s *Server) Close() {
	s.Poller.Stop()
}
