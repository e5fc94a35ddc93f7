package node

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "github.com/amirimatin/raftnet/pkg/consensus"
    "github.com/amirimatin/raftnet/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/raftnet/pkg/observability/metrics"
    "github.com/amirimatin/raftnet/pkg/registry"
    "github.com/amirimatin/raftnet/pkg/transport/tcp"
)

// Node wires the peer listener, the routing table and the management
// endpoint into one lifecycle. It is the embedding surface for applications
// hosting this transport next to their consensus engine.
type Node struct {
    opts Options
    mu   sync.RWMutex
    run  struct {
        started bool
        closed  bool
    }
    reg    *registry.Table
    lst    *tcp.Listener
    eb     eventBus
    cancel context.CancelFunc
}

// New constructs a Node from validated options. It performs no network
// activity; call Start to bind and serve.
func New(opts Options) (*Node, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    reg := opts.Registry
    if reg == nil { reg = registry.NewTable() }
    return &Node{opts: opts, reg: reg}, nil
}

// Registry exposes the routing table for outbound-routing layers.
func (n *Node) Registry() *registry.Table { return n.reg }

// Start binds the peer listener, launches the accept loop and the optional
// management endpoint. A bind failure is returned as-is: the process must
// not proceed without its listen address.
func (n *Node) Start(ctx context.Context) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.run.started { return nil }
    if n.run.closed { return ErrClosed }

    obsmetrics.Register()

    lst, err := tcp.Listen(n.opts.BindAddr, n.reg, n.opts.Session)
    if err != nil { return err }
    n.lst = lst
    if n.opts.Engine != nil { lst.SetEngine(n.opts.Engine) }

    runCtx, cancel := context.WithCancel(context.Background())
    n.cancel = cancel
    go func() { _ = lst.Serve(runCtx) }()
    go n.registryEventsLoop(runCtx)

    if n.opts.RPCServer != nil {
        if err := n.opts.RPCServer.Start(runCtx, n.statusJSON); err != nil {
            cancel()
            return err
        }
    }

    logutil.Infof(n.opts.Logger, "transport node listening on %s", lst.Addr())
    n.run.started = true
    return nil
}

// AttachEngine late-binds the consensus engine. Valid before or after Start;
// until called, sessions answer consensus RPCs with empty results.
func (n *Node) AttachEngine(e consensus.Engine) {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.opts.Engine = e
    if n.lst != nil {
        n.lst.SetEngine(e)
        logutil.Infof(n.opts.Logger, "consensus engine attached")
    }
}

// Addr returns the bound peer listener address, or "" before Start.
func (n *Node) Addr() string {
    n.mu.RLock()
    defer n.mu.RUnlock()
    if n.lst == nil { return "" }
    return n.lst.Addr()
}

// Stop shuts the listener and management endpoint down. Live sessions tear
// themselves down as their connections close.
func (n *Node) Stop(ctx context.Context) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if !n.run.started || n.run.closed { return nil }
    n.run.closed = true
    if n.cancel != nil { n.cancel() }
    if n.opts.RPCServer != nil { _ = n.opts.RPCServer.Stop(ctx) }
    if n.lst != nil { _ = n.lst.Close() }
    logutil.Infof(n.opts.Logger, "transport node stopped")
    return nil
}

// Close is a convenience alias for Stop with a background context.
func (n *Node) Close() error { return n.Stop(context.Background()) }

func (n *Node) registryEventsLoop(ctx context.Context) {
    for {
        select {
        case <-ctx.Done():
            return
        case ev, ok := <-n.reg.Events():
            if !ok { return }
            switch ev.Type {
            case registry.EventConnected:
                n.eb.publish(Event{Type: EventPeerIdentified, At: ev.At, Peer: ev.Peer})
            case registry.EventDisconnected:
                n.eb.publish(Event{Type: EventPeerDisconnected, At: ev.At, Peer: ev.Peer})
            }
        }
    }
}

// Status describes the transport node for operators.
type Status struct {
    Addr     string       `json:"addr"`
    Sessions int          `json:"sessions"`
    Peers    []PeerStatus `json:"peers"`
    Engine   bool         `json:"engine"`
}

// PeerStatus is one identified peer in the routing table.
type PeerStatus struct {
    ID    string    `json:"id"`
    Addr  string    `json:"addr"`
    Since time.Time `json:"since"`
}

// Status reports the listener address, live session count and identified
// peers.
func (n *Node) Status(ctx context.Context) (*Status, error) {
    n.mu.RLock()
    defer n.mu.RUnlock()
    if n.lst == nil { return nil, ErrNotStarted }
    st := &Status{Addr: n.lst.Addr(), Sessions: n.lst.Sessions(), Engine: n.opts.Engine != nil}
    for _, pi := range n.reg.Snapshot() {
        st.Peers = append(st.Peers, PeerStatus{ID: string(pi.ID), Addr: pi.Addr, Since: pi.Since})
    }
    return st, nil
}

func (n *Node) statusJSON(ctx context.Context) ([]byte, error) {
    st, err := n.Status(ctx)
    if err != nil { return nil, err }
    return json.Marshal(st)
}
