package tcp

import (
    "encoding/json"
    "testing"
    "time"

    "github.com/amirimatin/raftnet/pkg/consensus"
    "github.com/amirimatin/raftnet/pkg/wire"
)

func TestListen_InvalidAddressFails(t *testing.T) {
    if _, err := Listen("999.999.999.999:0", newRecordingRegistry(), SessionOptions{}); err == nil {
        t.Fatalf("expected bind error for invalid address")
    }
}

func TestListen_OccupiedAddressFails(t *testing.T) {
    l, err := Listen("127.0.0.1:0", newRecordingRegistry(), SessionOptions{})
    if err != nil { t.Fatalf("listen: %v", err) }
    defer l.Close()

    if _, err := Listen(l.Addr(), newRecordingRegistry(), SessionOptions{}); err == nil {
        t.Fatalf("expected bind error for occupied address")
    }
}

func TestListener_SessionCount(t *testing.T) {
    l, _ := newTestListener(t, SessionOptions{HeartbeatInterval: 50 * time.Millisecond, LivenessTimeout: time.Second})

    connA, _, _ := dialPeer(t, l.Addr())
    dialPeer(t, l.Addr())

    waitFor(t, time.Second, func() bool { return l.Sessions() == 2 })

    _ = connA.Close()
    waitFor(t, time.Second, func() bool { return l.Sessions() == 1 })
}

func TestListener_LateEngineBindingReachesOpenSessions(t *testing.T) {
    l, _ := newTestListener(t, SessionOptions{HeartbeatInterval: 50 * time.Millisecond, LivenessTimeout: 5 * time.Second})
    conn, enc, dec := dialPeer(t, l.Addr())

    body, _ := json.Marshal(&consensus.VoteRequest{Term: 4, CandidateID: "node-9"})

    // Before the engine exists: empty result.
    if err := enc.WriteRequest(&wire.Request{Kind: wire.ReqMessage, MID: 1, TypeID: "VoteRequest", Body: body}); err != nil {
        t.Fatalf("send: %v", err)
    }
    resp := awaitResult(t, conn, dec, 2*time.Second)
    if len(resp.Body) != 0 {
        t.Fatalf("expected empty result before engine attach, got %q", resp.Body)
    }

    // Attach the engine; the same session now gets real answers.
    l.SetEngine(&stubEngine{})
    if err := enc.WriteRequest(&wire.Request{Kind: wire.ReqMessage, MID: 2, TypeID: "VoteRequest", Body: body}); err != nil {
        t.Fatalf("send: %v", err)
    }
    resp = awaitResult(t, conn, dec, 2*time.Second)
    if len(resp.Body) == 0 {
        t.Fatalf("expected engine-backed result after attach")
    }
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
    t.Helper()
    deadline := time.Now().Add(timeout)
    for time.Now().Before(deadline) {
        if cond() { return }
        time.Sleep(10 * time.Millisecond)
    }
    t.Fatalf("condition not met within %v", timeout)
}
