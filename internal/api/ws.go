package api

import (
    "encoding/json"
    "net/http"
    "sync"
    "time"

    "github.com/gorilla/websocket"
)

// WebSocket streaming of optimization run and trip events.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
    Type    string          `json:"type"`
    ID      string          `json:"id,omitempty"`
    Payload json.RawMessage `json:"payload,omitempty"`
}

type wsSubscribePayload struct {
    RunID string `json:"runId"`
}

// OptimizeWSHandler handles /ws/optimize. The client sends
// connection_init, then subscribe messages carrying a runId; events for
// that run stream back as "next" frames until complete or disconnect.
// A runId query parameter is accepted as shorthand for a first
// subscription.
func (s *Server) OptimizeWSHandler(w http.ResponseWriter, r *http.Request) {
    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        return
    }
    defer func() { _ = conn.Close() }()

    type sub struct {
        topic string
        ch    chan Event
    }
    subs := map[string]sub{}

    conn.SetReadLimit(1 << 20)
    _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
    conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

    // Fanout goroutines, the ping ticker and the read loop all write to
    // the connection; gorilla permits a single concurrent writer.
    var writeMu sync.Mutex
    write := func(v any) error {
        writeMu.Lock()
        defer writeMu.Unlock()
        return conn.WriteJSON(v)
    }

    start := func(id, topic string) {
        ch := s.broker.Subscribe(topic)
        subs[id] = sub{topic: topic, ch: ch}
        go func(id string, c chan Event) {
            for evt := range c {
                payload, _ := json.Marshal(map[string]any{"event": evt.Type, "data": evt.Data})
                _ = write(wsMessage{Type: "next", ID: id, Payload: payload})
            }
            _ = write(wsMessage{Type: "complete", ID: id})
        }(id, ch)
    }

    // Shorthand subscription from the query string.
    if rid := r.URL.Query().Get("runId"); rid != "" {
        start("0", rid)
    }

    for {
        var msg wsMessage
        if err := conn.ReadJSON(&msg); err != nil {
            break
        }
        switch msg.Type {
        case "connection_init":
            _ = write(wsMessage{Type: "connection_ack"})
            go func() {
                ticker := time.NewTicker(20 * time.Second)
                defer ticker.Stop()
                for range ticker.C {
                    if err := write(wsMessage{Type: "ping"}); err != nil {
                        return
                    }
                }
            }()
        case "ping":
            _ = write(wsMessage{Type: "pong"})
        case "subscribe":
            var pl wsSubscribePayload
            _ = json.Unmarshal(msg.Payload, &pl)
            if pl.RunID == "" {
                _ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"runId required"}`)})
                _ = write(wsMessage{Type: "complete", ID: msg.ID})
                continue
            }
            if _, ok := subs[msg.ID]; ok {
                continue
            }
            start(msg.ID, pl.RunID)
        case "complete":
            if s0, ok := subs[msg.ID]; ok {
                s.broker.Unsubscribe(s0.topic, s0.ch)
                delete(subs, msg.ID)
            }
        default:
            // ignore
        }
    }
    for id, s0 := range subs {
        s.broker.Unsubscribe(s0.topic, s0.ch)
        delete(subs, id)
    }
}
