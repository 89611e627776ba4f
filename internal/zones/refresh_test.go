package zones

import (
	"context"
	"testing"
	"time"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

func TestNewRefresherSchedules(t *testing.T) {
	m := NewManager(&fakeAPI{}, nil)
	if r, err := NewRefresher(m, "  ", nil); r != nil || err != nil {
		t.Fatalf("empty schedule: r=%v err=%v", r, err)
	}
	if _, err := NewRefresher(m, "every now and then", nil); err == nil {
		t.Fatal("expected a parse error")
	}
	r, err := NewRefresher(m, "@every 1h", nil)
	if err != nil || r == nil {
		t.Fatalf("NewRefresher: %v", err)
	}
	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
}

func TestRefresherRunLists(t *testing.T) {
	api := &fakeAPI{zones: []model.Zone{{ID: 1, ReadableID: "r", Name: "A", PolygonWKT: "POLYGON((0 0, 1 0, 1 1, 0 0))"}}}
	m := NewManager(api, nil)
	r, err := NewRefresher(m, "@every 1h", nil)
	if err != nil {
		t.Fatal(err)
	}
	r.run()
	if api.count("list") != 1 || len(m.State().Zones()) != 1 {
		t.Fatalf("run did not refresh: calls=%d zones=%d", api.count("list"), len(m.State().Zones()))
	}
}
