package console

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/broker"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

var allTopics = []string{broker.TopicDraw, broker.TopicTracking, broker.TopicZones}

type wsMessage struct {
	Type  string         `json:"type"`
	Topic string         `json:"topic,omitempty"`
	Event string         `json:"event,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// WSHandler streams broker events to the map page. ?topic= picks topics
// (comma separated or repeated); the default is all of them. Clients may send
// {"type":"ping"} and get a pong back.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	topics := wsTopics(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// gorilla connections allow one concurrent writer
	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}

	done := make(chan struct{})
	subs := make(map[string]chan broker.Event, len(topics))
	var wg sync.WaitGroup
	for _, t := range topics {
		ch := s.Broker.Subscribe(t)
		subs[t] = ch
		wg.Add(1)
		go func(topic string, c chan broker.Event) {
			defer wg.Done()
			for evt := range c {
				if err := write(wsMessage{Type: "event", Topic: topic, Event: evt.Type, Data: evt.Data}); err != nil {
					return
				}
			}
		}(t, ch)
	}
	connID := uuid.NewString()
	log := s.Log.With(logging.String("conn_id", connID))
	_ = write(wsMessage{Type: "connection_ack", Data: map[string]any{"id": connID, "topics": topics}})
	log.Debug(r.Context(), "ws connected", logging.String("topics", strings.Join(topics, ",")))

	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				wmu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				wmu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if msg.Type == "ping" {
			_ = write(wsMessage{Type: "pong"})
		}
	}

	close(done)
	for t, ch := range subs {
		s.Broker.Unsubscribe(t, ch)
	}
	wg.Wait()
	log.Debug(r.Context(), "ws disconnected")
}

func wsTopics(r *http.Request) []string {
	var out []string
	seen := map[string]bool{}
	for _, raw := range r.URL.Query()["topic"] {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), allTopics...)
	}
	return out
}
