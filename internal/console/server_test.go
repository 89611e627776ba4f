package console

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apiclient"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apperr"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/devapi"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/draw"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/httpx"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

const zoneAWKT = "POLYGON((90.41 23.81, 90.42 23.81, 90.42 23.82, 90.41 23.82, 90.41 23.81))"

var zoneA = [][2]float64{{90.41, 23.81}, {90.42, 23.81}, {90.42, 23.82}, {90.41, 23.82}}

type harness struct {
	t       *testing.T
	console *Server
	h       http.Handler
}

// newHarness runs the console against an in-memory backend.
func newHarness(t *testing.T, mapKey string) *harness {
	t.Helper()
	backend := &devapi.Server{
		Store: devapi.NewMemory(),
		Auth:  &devapi.Verifier{Mode: "static", Token: "dev"},
		Fleet: devapi.NewFleet(orb.Point{90.415, 23.815}),
	}
	ts := httptest.NewServer(backend.Router())
	t.Cleanup(ts.Close)
	return newHarnessWith(t, ts.URL, mapKey)
}

func newHarnessWith(t *testing.T, baseURL, mapKey string) *harness {
	t.Helper()
	client, err := apiclient.New(baseURL, apiclient.StaticToken("dev"), apiclient.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	s := New(Deps{API: client, MapKey: mapKey, PollInterval: 250 * time.Millisecond})
	t.Cleanup(s.Close)
	return &harness{t: t, console: s, h: s.Router()}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	rr := httptest.NewRecorder()
	h.h.ServeHTTP(rr, httptest.NewRequest(method, path, &buf))
	return rr
}

func (h *harness) zones() []model.Zone {
	h.t.Helper()
	rr := h.do(http.MethodGet, "/zones", nil)
	var body struct {
		Items []model.Zone `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		h.t.Fatalf("decode zones: %v", err)
	}
	return body.Items
}

func (h *harness) createZoneA() model.Zone {
	h.t.Helper()
	if rr := h.do(http.MethodPut, "/draft", map[string]any{"name": "Zone A"}); rr.Code != 200 {
		h.t.Fatalf("draft: %d %s", rr.Code, rr.Body.String())
	}
	if rr := h.do(http.MethodPost, "/draw", map[string]any{"vertices": zoneA}); rr.Code != 200 {
		h.t.Fatalf("draw: %d %s", rr.Code, rr.Body.String())
	}
	rr := h.do(http.MethodPost, "/draft/submit", nil)
	if rr.Code != http.StatusCreated {
		h.t.Fatalf("submit: %d %s", rr.Code, rr.Body.String())
	}
	var z model.Zone
	_ = json.Unmarshal(rr.Body.Bytes(), &z)
	return z
}

func TestCreateZoneEndToEnd(t *testing.T) {
	h := newHarness(t, "test-key")
	z := h.createZoneA()
	if z.PolygonWKT != zoneAWKT || !z.Active {
		t.Fatalf("created = %+v", z)
	}

	list := h.zones()
	if len(list) != 1 || list[0].Name != "Zone A" || list[0].PolygonWKT != zoneAWKT {
		t.Fatalf("list after create = %+v", list)
	}

	var draft struct {
		Name   string          `json:"name"`
		Active bool            `json:"active"`
		Path   json.RawMessage `json:"path"`
	}
	_ = json.Unmarshal(h.do(http.MethodGet, "/draft", nil).Body.Bytes(), &draft)
	if draft.Name != "" || !draft.Active || string(draft.Path) != "[]" {
		t.Fatalf("draft not reset: %+v path=%s", draft, draft.Path)
	}
	if st := h.console.Surface.State(); st.Overlay != "" || len(st.Path) != 0 {
		t.Fatalf("surface not cleared: %+v", st)
	}

	rr := h.do(http.MethodGet, "/zones/geojson", nil)
	if ct := rr.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"FeatureCollection"`) {
		t.Fatalf("geojson = %s", rr.Body.String())
	}
}

func TestSubmitWithoutPolygonIsRejected(t *testing.T) {
	h := newHarness(t, "test-key")
	h.do(http.MethodPut, "/draft", map[string]any{"name": "Zone A"})
	rr := h.do(http.MethodPost, "/draft/submit", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("submit without polygon: %d", rr.Code)
	}
	if len(h.zones()) != 0 {
		t.Fatal("zone was created")
	}
	var draft struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(h.do(http.MethodGet, "/draft", nil).Body.Bytes(), &draft)
	if draft.Name != "Zone A" {
		t.Fatalf("draft lost its name: %+v", draft)
	}
}

func TestDrawingFallsBackWithoutMapKey(t *testing.T) {
	h := newHarness(t, "")
	rr := h.do(http.MethodPost, "/draw", map[string]any{"vertices": zoneA})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("draw in fallback: %d", rr.Code)
	}
	var st struct {
		Ready    bool   `json:"ready"`
		Fallback string `json:"fallback"`
	}
	_ = json.Unmarshal(h.do(http.MethodGet, "/draw", nil).Body.Bytes(), &st)
	if st.Ready || !strings.Contains(st.Fallback, "MAP_API_KEY") {
		t.Fatalf("draw state = %+v", st)
	}
	// the rest of the console keeps working
	if rr := h.do(http.MethodPost, "/zones/refresh", nil); rr.Code != 200 {
		t.Fatalf("refresh in fallback: %d", rr.Code)
	}
}

func TestVertexEditing(t *testing.T) {
	h := newHarness(t, "test-key")
	if rr := h.do(http.MethodPut, "/draw/vertices/0", geoVertex(1, 1)); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("edit before draw: %d", rr.Code)
	}
	h.do(http.MethodPost, "/draw", map[string]any{"vertices": zoneA[:3]})
	if rr := h.do(http.MethodPost, "/draw/vertices/3", geoVertex(90.41, 23.82)); rr.Code != 200 {
		t.Fatalf("insert: %d %s", rr.Code, rr.Body.String())
	}
	if rr := h.do(http.MethodPut, "/draw/vertices/9", geoVertex(0, 0)); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("move out of range: %d", rr.Code)
	}
	if n := len(h.console.Surface.Path()); n != 4 {
		t.Fatalf("path has %d vertices", n)
	}
}

func geoVertex(lng, lat float64) map[string]float64 { return map[string]float64{"lng": lng, "lat": lat} }

func TestDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t, "test-key")
	z := h.createZoneA()

	rr := h.do(http.MethodDelete, "/zones/"+z.ReadableID, nil)
	if rr.Code != http.StatusPreconditionRequired {
		t.Fatalf("unconfirmed delete: %d", rr.Code)
	}
	if len(h.zones()) != 1 {
		t.Fatal("zone removed without confirmation")
	}
	if rr := h.do(http.MethodDelete, "/zones/"+z.ReadableID+"?confirm=true", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("confirmed delete: %d %s", rr.Code, rr.Body.String())
	}
	if len(h.zones()) != 0 {
		t.Fatal("zone still listed")
	}
	if rr := h.do(http.MethodDelete, "/zones/not-a-zone?confirm=true", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown key: %d", rr.Code)
	}
}

func TestUpdateKeepsDialogOpenOnError(t *testing.T) {
	h := newHarness(t, "test-key")
	z := h.createZoneA()

	if rr := h.do(http.MethodPost, "/zones/"+z.ReadableID+"/edit", nil); rr.Code != 200 {
		t.Fatalf("open dialog: %d", rr.Code)
	}
	rr := h.do(http.MethodPut, "/zones/"+z.ReadableID, map[string]any{"name": "  "})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank name: %d", rr.Code)
	}
	view := h.console.Dialog.View()
	if !view.Open || view.Err == "" {
		t.Fatalf("dialog after error = %+v", view)
	}

	rr = h.do(http.MethodPut, "/zones/"+z.ReadableID, map[string]any{"name": "Zone B", "active": false})
	if rr.Code != 200 {
		t.Fatalf("update: %d %s", rr.Code, rr.Body.String())
	}
	if h.console.Dialog.View().Open {
		t.Fatal("dialog still open after success")
	}
	list := h.zones()
	if len(list) != 1 || list[0].Name != "Zone B" || list[0].Active {
		t.Fatalf("list after update = %+v", list)
	}
}

func TestUpdateWithRedrawnPolygon(t *testing.T) {
	h := newHarness(t, "test-key")
	z := h.createZoneA()

	if rr := h.do(http.MethodPut, "/zones/"+z.ReadableID+"?redraw=true", map[string]any{}); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("redraw without a polygon: %d", rr.Code)
	}
	h.do(http.MethodPost, "/draw", map[string]any{"vertices": [][2]float64{{1, 1}, {2, 1}, {2, 2}}})
	rr := h.do(http.MethodPut, "/zones/"+z.ReadableID+"?redraw=true", map[string]any{})
	if rr.Code != 200 {
		t.Fatalf("redraw: %d %s", rr.Code, rr.Body.String())
	}
	if got := h.zones()[0].PolygonWKT; got != "POLYGON((1 1, 2 1, 2 2, 1 1))" {
		t.Fatalf("polygon = %s", got)
	}
	if len(h.console.Surface.Path()) != 0 {
		t.Fatal("surface kept the redrawn polygon")
	}
}

func TestRefreshFailureShowsBanner(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()
	h := newHarnessWith(t, url, "test-key")

	rr := h.do(http.MethodPost, "/zones/refresh", nil)
	var body struct {
		Items  []model.Zone `json:"items"`
		Banner string       `json:"banner"`
		Empty  string       `json:"empty"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Banner == "" || body.Empty != "No data available" || len(body.Items) != 0 {
		t.Fatalf("refresh body = %+v", body)
	}
}

func TestTrackingSelectAndStop(t *testing.T) {
	h := newHarness(t, "test-key")
	if rr := h.do(http.MethodPut, "/tracking/bus-7", nil); rr.Code != http.StatusAccepted {
		t.Fatalf("select: %d", rr.Code)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := h.console.Poller.Latest(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no position applied")
		}
		time.Sleep(5 * time.Millisecond)
	}
	rr := h.do(http.MethodDelete, "/tracking", nil)
	var st struct {
		State string `json:"state"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &st)
	if st.State != "stopped" {
		t.Fatalf("state after stop = %q", st.State)
	}
}

func TestWebSocketRelaysZoneEvents(t *testing.T) {
	h := newHarness(t, "test-key")
	ts := httptest.NewServer(h.h)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?topic=zones", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var ack wsMessage
	if err := conn.ReadJSON(&ack); err != nil || ack.Type != "connection_ack" {
		t.Fatalf("ack = %+v, %v", ack, err)
	}
	if rr := h.do(http.MethodPost, "/zones/refresh", nil); rr.Code != 200 {
		t.Fatalf("refresh: %d", rr.Code)
	}
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Topic != "zones" || msg.Event != "zones.listed" {
		t.Fatalf("event = %+v", msg)
	}

	_ = conn.WriteJSON(wsMessage{Type: "ping"})
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "pong" {
		t.Fatalf("pong = %+v, %v", msg, err)
	}
}

func TestWriteErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Invalid("name", "Zone name is required."), 422},
		{draw.ErrUnavailable, 503},
		{apperr.ErrBusy, 409},
		{apperr.ErrNotConfirmed, 428},
		{apperr.ErrUnauthorized, 401},
		{apperr.ErrMalformedResponse, 502},
		{&apperr.NetworkError{Op: "list zones", Err: errors.New("refused")}, 502},
		{&apperr.ServerError{Op: "create zone", Status: 409, Title: "Conflict"}, 409},
		{&apperr.ServerError{Op: "create zone", Status: 503}, 502},
		{errors.New("boom"), 500},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		writeError(rr, httptest.NewRequest(http.MethodGet, "/x", nil), tc.err)
		if rr.Code != tc.want {
			t.Fatalf("%v: status %d, want %d", tc.err, rr.Code, tc.want)
		}
		var p httpx.Problem
		if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil || p.Status != tc.want {
			t.Fatalf("%v: problem = %+v, %v", tc.err, p, err)
		}
	}
}
