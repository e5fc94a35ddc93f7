package bootstrap

import (
    "context"
    "crypto/tls"
    "log"
    "time"

    "github.com/amirimatin/raftnet/pkg/consensus"
    "github.com/amirimatin/raftnet/pkg/node"
    tlsx "github.com/amirimatin/raftnet/pkg/security/tlsconfig"
    "github.com/amirimatin/raftnet/pkg/transport"
    "github.com/amirimatin/raftnet/pkg/transport/mgmt"
    "github.com/amirimatin/raftnet/pkg/transport/tcp"
)

// Config defines high-level inputs to assemble a transport node with
// sensible defaults. Applications embed the transport by providing this
// structure and calling Build/Run.
type Config struct {
    // BindAddr is the peer listener address, e.g. ":9620" or "host:9620".
    BindAddr string

    // MgmtAddr enables the management API (status) when non-empty.
    MgmtAddr string

    // Session timing; zero values select the defaults (1s/10s/5s).
    HeartbeatInterval time.Duration
    LivenessTimeout   time.Duration
    EngineTimeout     time.Duration

    // Engine is optional: the consensus engine may not exist yet at
    // transport startup and can be attached later via Node.AttachEngine.
    Engine consensus.Engine

    // TLS (optional) for the management API
    TLSEnable     bool
    TLSCA         string
    TLSCert       string
    TLSKey        string
    TLSServerName string
    TLSSkipVerify bool

    // Logger (optional). If nil, log.Default() is used.
    Logger *log.Logger
}

// Build assembles a node.Node from Config without starting it.
func Build(cfg Config) (*node.Node, error) {
    if cfg.Logger == nil { cfg.Logger = log.Default() }

    var srv transport.RPCServer
    if cfg.MgmtAddr != "" {
        var srvTLS *tls.Config
        if cfg.TLSEnable {
            topts := tlsx.Options{Enable: true, CAFile: cfg.TLSCA, CertFile: cfg.TLSCert, KeyFile: cfg.TLSKey, InsecureSkipVerify: cfg.TLSSkipVerify, ServerName: cfg.TLSServerName}
            s, err := topts.Server()
            if err != nil { return nil, err }
            srvTLS = s
        }
        m := mgmt.NewServer(cfg.MgmtAddr)
        if srvTLS != nil { m.UseTLS(srvTLS) }
        srv = m
    }

    opts := node.Options{
        BindAddr:  cfg.BindAddr,
        Logger:    cfg.Logger,
        Engine:    cfg.Engine,
        RPCServer: srv,
        Session: tcp.SessionOptions{
            HeartbeatInterval: cfg.HeartbeatInterval,
            LivenessTimeout:   cfg.LivenessTimeout,
            EngineTimeout:     cfg.EngineTimeout,
            Logger:            cfg.Logger,
        },
    }
    return node.New(opts)
}

// Run builds and starts the node, returning the instance for lifecycle
// control. The caller is responsible for calling Close() when finished.
func Run(ctx context.Context, cfg Config) (*node.Node, error) {
    n, err := Build(cfg)
    if err != nil { return nil, err }
    if err := n.Start(ctx); err != nil { return nil, err }
    return n, nil
}
