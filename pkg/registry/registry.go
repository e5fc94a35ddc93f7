package registry

import (
    "time"

    "github.com/amirimatin/raftnet/pkg/wire"
)

// NodeID is the cluster-unique identity a peer announces with its join frame.
type NodeID string

// Peer is the outbound half of an identified connection as seen by the
// routing layer. Send queues a response frame on the peer's write channel and
// never blocks on the network.
type Peer interface {
    ID() NodeID
    RemoteAddr() string
    Send(resp *wire.Response) error
    Close() error
}

// PeerInfo is a point-in-time description of a registered peer.
type PeerInfo struct {
    ID    NodeID
    Addr  string
    Since time.Time
}

type EventType string

const (
    // EventConnected indicates a peer identity became reachable.
    EventConnected    EventType = "connected"
    // EventDisconnected indicates a peer's session closed.
    EventDisconnected EventType = "disconnected"
)

// Event is a routing-table change notification.
type Event struct {
    Type EventType
    Peer PeerInfo
    At   time.Time
}

// Registry receives session lifecycle notifications. PeerConnected is called
// exactly once per session, the first time a join frame identifies it;
// PeerDisconnected is called when an identified session closes.
// Implementations must be safe for concurrent use from many sessions.
type Registry interface {
    PeerConnected(id NodeID, p Peer)
    PeerDisconnected(id NodeID, p Peer)
}
