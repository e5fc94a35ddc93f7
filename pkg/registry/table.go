package registry

import (
    "sync"
    "time"
)

// Table is the in-memory routing table mapping identity to reachable peer. A later
// registration for the same identity replaces the previous route (the peer
// reconnected); disconnect only removes the route if it still points at the
// departing peer.
type Table struct {
    mu    sync.RWMutex
    peers map[NodeID]entry
    evts  chan Event
}

type entry struct {
    peer  Peer
    since time.Time
}

func NewTable() *Table {
    return &Table{peers: make(map[NodeID]entry), evts: make(chan Event, 64)}
}

func (t *Table) PeerConnected(id NodeID, p Peer) {
    t.mu.Lock()
    t.peers[id] = entry{peer: p, since: time.Now()}
    t.mu.Unlock()
    t.publish(Event{Type: EventConnected, Peer: PeerInfo{ID: id, Addr: p.RemoteAddr()}, At: time.Now()})
}

func (t *Table) PeerDisconnected(id NodeID, p Peer) {
    t.mu.Lock()
    e, ok := t.peers[id]
    if ok && e.peer == p {
        delete(t.peers, id)
    }
    t.mu.Unlock()
    if ok && e.peer == p {
        t.publish(Event{Type: EventDisconnected, Peer: PeerInfo{ID: id, Addr: p.RemoteAddr()}, At: time.Now()})
    }
}

// Lookup returns the registered peer for id, if any.
func (t *Table) Lookup(id NodeID) (Peer, bool) {
    t.mu.RLock()
    defer t.mu.RUnlock()
    e, ok := t.peers[id]
    if !ok { return nil, false }
    return e.peer, true
}

// Snapshot returns the current routing table contents.
func (t *Table) Snapshot() []PeerInfo {
    t.mu.RLock()
    defer t.mu.RUnlock()
    out := make([]PeerInfo, 0, len(t.peers))
    for id, e := range t.peers {
        out = append(out, PeerInfo{ID: id, Addr: e.peer.RemoteAddr(), Since: e.since})
    }
    return out
}

func (t *Table) Len() int {
    t.mu.RLock()
    defer t.mu.RUnlock()
    return len(t.peers)
}

// Events delivers routing-table changes, best-effort: events are dropped when
// the consumer lags to avoid back-pressuring sessions.
func (t *Table) Events() <-chan Event { return t.evts }

func (t *Table) publish(ev Event) {
    select {
    case t.evts <- ev:
    default:
        // drop if receiver is slow
    }
}

var _ Registry = (*Table)(nil)
