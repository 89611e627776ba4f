package broker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newRedisBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func recv(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	b, _ := newRedisBroker(t)
	if err := b.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	ch := b.Subscribe(TopicTracking)

	b.Publish(TopicTracking, Event{Type: "marker.moved", Data: map[string]any{"lat": 23.81}})
	got := recv(t, ch)
	if got.Type != "marker.moved" || got.Data["lat"].(float64) != 23.81 {
		t.Fatalf("got %+v", got)
	}

	b.Unsubscribe(TopicTracking, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not close the channel")
	}
	// second unsubscribe is a no-op
	b.Unsubscribe(TopicTracking, ch)
}

func TestRedisBrokerPrefixesAndSkipsBadPayloads(t *testing.T) {
	b, mr := newRedisBroker(t)
	ch := b.Subscribe(TopicZones)
	defer b.Unsubscribe(TopicZones, ch)

	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = raw.Close() }()
	ctx := context.Background()
	// unprefixed channel is a different topic
	if err := raw.Publish(ctx, TopicZones, `{"type":"elsewhere"}`).Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := raw.Publish(ctx, "console:"+TopicZones, "not json").Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	b.Publish(TopicZones, Event{Type: "zones.listed"})

	if got := recv(t, ch); got.Type != "zones.listed" {
		t.Fatalf("got %+v, want zones.listed", got)
	}
}

func TestRedisBrokerCloseEndsSubscriptions(t *testing.T) {
	mr := miniredis.RunT(t)
	b := NewRedisBrokerFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ch := b.Subscribe(TopicDraw)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unexpected event after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not close the channel")
	}
}
