// Package main watches the console event stream: it subscribes to /ws, asks
// for a zone refresh and starts tracking one vehicle, then prints what arrives.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic,omitempty"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func main() {
	host := flag.String("host", "localhost:8090", "Console host:port")
	entity := flag.String("entity", "bus-1", "Entity to track")
	wait := flag.Duration("wait", 12*time.Second, "How long to listen")
	flag.Parse()
	base := "http://" + *host

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s %s/%s: %s", m.Type, m.Topic, m.Event, string(m.Data))
		}
	}()

	call := func(method, path string) {
		req, _ := http.NewRequest(method, base+path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Printf("%s %s: %v", method, path, err)
			return
		}
		_ = resp.Body.Close()
		log.Printf("%s %s -> %d", method, path, resp.StatusCode)
	}
	time.Sleep(200 * time.Millisecond)
	call(http.MethodPost, "/zones/refresh")
	call(http.MethodPut, fmt.Sprintf("/tracking/%s", url.PathEscape(*entity)))

	select {
	case <-time.After(*wait):
	case <-done:
	}
	call(http.MethodDelete, "/tracking")
}
