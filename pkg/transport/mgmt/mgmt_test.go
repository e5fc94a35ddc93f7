package mgmt

import (
    "context"
    "encoding/json"
    "testing"
    "time"
)

func TestServerClient_GetStatus(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    want := map[string]any{"addr": "127.0.0.1:5000", "sessions": float64(3)}
    srv := NewServer("127.0.0.1:0")
    err := srv.Start(ctx, func(context.Context) ([]byte, error) {
        return json.Marshal(want)
    })
    if err != nil { t.Fatalf("start server: %v", err) }
    defer srv.Stop(context.Background())

    cli := NewClient(3 * time.Second)
    data, err := cli.GetStatus(ctx, srv.Addr())
    if err != nil { t.Fatalf("get status: %v", err) }

    var got map[string]any
    if err := json.Unmarshal(data, &got); err != nil {
        t.Fatalf("decode status: %v", err)
    }
    if got["addr"] != want["addr"] || got["sessions"] != want["sessions"] {
        t.Fatalf("status mismatch: got %v want %v", got, want)
    }
}

func TestClient_GetStatusConnectionReuse(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    srv := NewServer("127.0.0.1:0")
    if err := srv.Start(ctx, func(context.Context) ([]byte, error) { return []byte(`{}`), nil }); err != nil {
        t.Fatalf("start server: %v", err)
    }
    defer srv.Stop(context.Background())

    cli := NewClient(3 * time.Second)
    for i := 0; i < 3; i++ {
        if _, err := cli.GetStatus(ctx, srv.Addr()); err != nil {
            t.Fatalf("get status %d: %v", i, err)
        }
    }
}
