package api

import (
    "context"
    "encoding/json"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/gorilla/websocket"

    "cargoroute/internal/store"
)

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
    t.Helper()
    url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/optimize" + query
    conn, _, err := websocket.DefaultDialer.Dial(url, nil)
    if err != nil { t.Fatalf("dial: %v", err) }
    return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsMessage {
    t.Helper()
    _ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
    var m wsMessage
    if err := conn.ReadJSON(&m); err != nil { t.Fatalf("read: %v", err) }
    return m
}

func TestOptimizeWSQuerySubscription(t *testing.T) {
    m := store.NewMemory()
    _ = store.Seed(context.Background(), m)
    s := NewServerWith(m, NewBroker())
    srv := httptest.NewServer(s.Routes())
    defer srv.Close()

    conn := dialWS(t, srv, "?runId=run-1")
    defer func() { _ = conn.Close() }()

    // Give the handler a beat to register the subscription.
    time.Sleep(50 * time.Millisecond)
    s.broker.Publish("run-1", Event{Type: "optimize.progress", Data: map[string]any{"generation": float64(3)}})

    frame := readFrame(t, conn)
    if frame.Type != "next" { t.Fatalf("frame type = %s", frame.Type) }
    var payload struct {
        Event string         `json:"event"`
        Data  map[string]any `json:"data"`
    }
    if err := json.Unmarshal(frame.Payload, &payload); err != nil { t.Fatal(err) }
    if payload.Event != "optimize.progress" { t.Fatalf("event = %s", payload.Event) }
    if payload.Data["generation"].(float64) != 3 { t.Fatalf("data = %+v", payload.Data) }
}

func TestOptimizeWSSubscribeMessage(t *testing.T) {
    m := store.NewMemory()
    _ = store.Seed(context.Background(), m)
    s := NewServerWith(m, NewBroker())
    srv := httptest.NewServer(s.Routes())
    defer srv.Close()

    conn := dialWS(t, srv, "")
    defer func() { _ = conn.Close() }()

    if err := conn.WriteJSON(wsMessage{Type: "connection_init"}); err != nil { t.Fatal(err) }
    if frame := readFrame(t, conn); frame.Type != "connection_ack" {
        t.Fatalf("frame type = %s, want connection_ack", frame.Type)
    }

    // Missing runId is an error followed by complete.
    if err := conn.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: []byte(`{}`)}); err != nil { t.Fatal(err) }
    if frame := readFrame(t, conn); frame.Type != "error" { t.Fatalf("frame type = %s, want error", frame.Type) }
    if frame := readFrame(t, conn); frame.Type != "complete" { t.Fatalf("frame type = %s, want complete", frame.Type) }

    if err := conn.WriteJSON(wsMessage{Type: "subscribe", ID: "2", Payload: []byte(`{"runId":"run-9"}`)}); err != nil { t.Fatal(err) }
    time.Sleep(50 * time.Millisecond)
    s.broker.Publish("run-9", Event{Type: "optimize.done", Data: map[string]any{"feasible": true}})

    frame := readFrame(t, conn)
    if frame.Type != "next" || frame.ID != "2" { t.Fatalf("frame = %+v", frame) }
}

// Two subscriptions on one connection fan out from separate goroutines;
// concurrent publishes must never race on the connection writer.
func TestOptimizeWSConcurrentFanout(t *testing.T) {
    m := store.NewMemory()
    _ = store.Seed(context.Background(), m)
    s := NewServerWith(m, NewBroker())
    srv := httptest.NewServer(s.Routes())
    defer srv.Close()

    conn := dialWS(t, srv, "")
    defer func() { _ = conn.Close() }()

    if err := conn.WriteJSON(wsMessage{Type: "connection_init"}); err != nil { t.Fatal(err) }
    if frame := readFrame(t, conn); frame.Type != "connection_ack" {
        t.Fatalf("frame type = %s", frame.Type)
    }
    for _, sub := range []struct{ id, run string }{{"1", "run-a"}, {"2", "run-b"}} {
        if err := conn.WriteJSON(wsMessage{Type: "subscribe", ID: sub.id, Payload: []byte(`{"runId":"` + sub.run + `"}`)}); err != nil {
            t.Fatal(err)
        }
    }
    time.Sleep(50 * time.Millisecond)

    const perTopic = 200
    var wg sync.WaitGroup
    for _, topic := range []string{"run-a", "run-b"} {
        wg.Add(1)
        go func(topic string) {
            defer wg.Done()
            for i := 0; i < perTopic; i++ {
                s.broker.Publish(topic, Event{Type: "optimize.progress", Data: map[string]any{"generation": i}})
            }
        }(topic)
    }
    wg.Wait()

    // The broker drops events for slow consumers, so only require that
    // some frames from both subscriptions arrive intact.
    seen := map[string]int{}
    deadline := time.Now().Add(2 * time.Second)
    for time.Now().Before(deadline) && (seen["1"] == 0 || seen["2"] == 0) {
        _ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
        var frame wsMessage
        if err := conn.ReadJSON(&frame); err != nil {
            t.Fatalf("read: %v", err)
        }
        if frame.Type == "next" {
            seen[frame.ID]++
        }
    }
    if seen["1"] == 0 || seen["2"] == 0 {
        t.Fatalf("frames per subscription = %+v, want both nonzero", seen)
    }
}
