package node

import (
    "errors"
    "log"

    "github.com/amirimatin/raftnet/pkg/consensus"
    "github.com/amirimatin/raftnet/pkg/registry"
    "github.com/amirimatin/raftnet/pkg/transport"
    "github.com/amirimatin/raftnet/pkg/transport/tcp"
)

// Options carries dependency-injected components and runtime configuration
// used to assemble the transport node. Instances are typically produced from
// bootstrap.Config.
type Options struct {
    // BindAddr is the peer listener address (host:port). Required; a failed
    // bind is fatal at startup.
    BindAddr string
    // Registry receives peer connected/disconnected notifications. If nil, a
    // local routing table is created.
    Registry *registry.Table
    // Logger is used to report operational messages.
    Logger *log.Logger

    // Engine is the optional consensus engine. It may be attached later via
    // AttachEngine; sessions answer RPCs with empty results until then.
    Engine consensus.Engine

    // RPCServer is the optional management endpoint (status).
    RPCServer transport.RPCServer

    // Session tunes per-connection behavior (heartbeats, queues, timeouts).
    Session tcp.SessionOptions
}

// Validate performs a minimal validation of Options. It does not start any
// network activity and is safe to call before New.
func (o Options) Validate() error {
    if o.BindAddr == "" {
        return errors.New("node: empty BindAddr")
    }
    if o.Logger == nil {
        return errors.New("node: nil Logger")
    }
    return nil
}
