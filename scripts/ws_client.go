// Package main runs a demo WebSocket client for optimization run events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Load a demo workload so there is something to optimize.
	resp, err := http.Post(base+"/api/scenarios/load/3", "application/json", nil)
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()

	// Pick the run id up front so the subscription is live before the
	// run starts.
	runID := fmt.Sprintf("demo-%d", time.Now().UnixNano())
	log.Printf("Run ID: %s", runID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/ws/optimize", RawQuery: "runId=" + runID}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Kick off the optimization run now that events will be captured.
	body := []byte(`{"mode":"unlimited_vehicles","algorithm":"genetic","generations":100}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/api/routes/optimize?runId="+runID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()

	select {
	case <-time.After(5 * time.Second):
	case <-done:
	}
}
