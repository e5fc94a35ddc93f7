package registry

import (
    "testing"

    "github.com/amirimatin/raftnet/pkg/wire"
)

type fakePeer struct {
    id   NodeID
    addr string
    sent []*wire.Response
}

func (f *fakePeer) ID() NodeID                     { return f.id }
func (f *fakePeer) RemoteAddr() string             { return f.addr }
func (f *fakePeer) Send(r *wire.Response) error    { f.sent = append(f.sent, r); return nil }
func (f *fakePeer) Close() error                   { return nil }

func TestTable_ConnectLookupDisconnect(t *testing.T) {
    tab := NewTable()
    p := &fakePeer{id: "n1", addr: "127.0.0.1:5001"}

    tab.PeerConnected("n1", p)
    got, ok := tab.Lookup("n1")
    if !ok || got != Peer(p) {
        t.Fatalf("lookup after connect: ok=%v peer=%v", ok, got)
    }
    if tab.Len() != 1 { t.Fatalf("len = %d, want 1", tab.Len()) }

    tab.PeerDisconnected("n1", p)
    if _, ok := tab.Lookup("n1"); ok {
        t.Fatalf("peer still present after disconnect")
    }
}

func TestTable_ReconnectReplacesRoute(t *testing.T) {
    tab := NewTable()
    old := &fakePeer{id: "n1", addr: "127.0.0.1:5001"}
    fresh := &fakePeer{id: "n1", addr: "127.0.0.1:5002"}

    tab.PeerConnected("n1", old)
    tab.PeerConnected("n1", fresh)

    // The stale session closing must not evict the replacement route.
    tab.PeerDisconnected("n1", old)
    got, ok := tab.Lookup("n1")
    if !ok || got.RemoteAddr() != "127.0.0.1:5002" {
        t.Fatalf("expected replacement route to survive, got ok=%v addr=%v", ok, got)
    }
}

func TestTable_Events(t *testing.T) {
    tab := NewTable()
    p := &fakePeer{id: "n2", addr: "127.0.0.1:5003"}
    tab.PeerConnected("n2", p)
    tab.PeerDisconnected("n2", p)

    ev := <-tab.Events()
    if ev.Type != EventConnected || ev.Peer.ID != "n2" {
        t.Fatalf("unexpected first event: %+v", ev)
    }
    ev = <-tab.Events()
    if ev.Type != EventDisconnected {
        t.Fatalf("unexpected second event: %+v", ev)
    }
}
