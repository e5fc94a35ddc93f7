//go:build integration

package integration

import (
    "context"
    "errors"
    "log"
    "net"
    "testing"
    "time"

    "github.com/amirimatin/raftnet/pkg/node"
    "github.com/amirimatin/raftnet/pkg/transport/mgmt"
    "github.com/amirimatin/raftnet/pkg/transport/tcp"
    "github.com/amirimatin/raftnet/pkg/wire"
)

var errNotYet = errors.New("condition not met yet")

func waitUntil(t *testing.T, d time.Duration, fn func() error) {
    t.Helper()
    deadline := time.Now().Add(d)
    var last error
    for time.Now().Before(deadline) {
        if last = fn(); last == nil { return }
        time.Sleep(50 * time.Millisecond)
    }
    t.Fatalf("condition not met within %v: %v", d, last)
}

// startNode brings up a transport node with a management endpoint on
// loopback, both on ephemeral ports.
func startNode(t *testing.T, session tcp.SessionOptions) (*node.Node, *mgmt.Server) {
    t.Helper()
    srv := mgmt.NewServer("127.0.0.1:0")
    n, err := node.New(node.Options{
        BindAddr:  "127.0.0.1:0",
        Logger:    log.Default(),
        RPCServer: srv,
        Session:   session,
    })
    if err != nil { t.Fatalf("node: %v", err) }
    if err := n.Start(context.Background()); err != nil { t.Fatalf("start: %v", err) }
    t.Cleanup(func() { _ = n.Close() })
    return n, srv
}

func dial(t *testing.T, addr string) (net.Conn, *wire.Encoder, *wire.Decoder) {
    t.Helper()
    conn, err := net.Dial("tcp", addr)
    if err != nil { t.Fatalf("dial %s: %v", addr, err) }
    t.Cleanup(func() { _ = conn.Close() })
    return conn, wire.NewEncoder(conn), wire.NewDecoder(conn)
}

// nextResult reads frames until a result arrives, answering nothing and
// ignoring keepalive pings from the server.
func nextResult(t *testing.T, conn net.Conn, dec *wire.Decoder, d time.Duration) *wire.Response {
    t.Helper()
    _ = conn.SetReadDeadline(time.Now().Add(d))
    defer conn.SetReadDeadline(time.Time{})
    for {
        resp, err := dec.ReadResponse()
        if err != nil { t.Fatalf("read response: %v", err) }
        if resp.Kind == wire.RespResult { return resp }
    }
}
