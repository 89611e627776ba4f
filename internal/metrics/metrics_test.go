package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesRegisteredSeries(t *testing.T) {
	PollSamples.WithLabelValues("applied").Inc()
	ZonesLoaded.Set(4)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 200 {
		t.Fatalf("metrics: got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, name := range []string{"poll_samples_total", "zones_loaded 4", "go_goroutines"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("missing %q in exposition", name)
		}
	}
}

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()
	before := testutil.ToFloat64(ZoneMutations.WithLabelValues("create", "ok"))
	ZoneMutations.WithLabelValues("create", "ok").Inc()
	if got := testutil.ToFloat64(ZoneMutations.WithLabelValues("create", "ok")); got != before+1 {
		t.Fatalf("zone_mutations_total = %v, want %v", got, before+1)
	}
}
