package tcp

import (
    "context"
    "errors"
    "fmt"
    "log"
    "net"
    "sync"
    "sync/atomic"

    "github.com/amirimatin/raftnet/pkg/consensus"
    "github.com/amirimatin/raftnet/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/raftnet/pkg/observability/metrics"
    "github.com/amirimatin/raftnet/pkg/registry"
)

// Listener accepts inbound peer connections and spawns one session goroutine
// per connection. It keeps no ownership of sessions after spawning: each
// session tears itself down on connection loss or heartbeat expiry.
type Listener struct {
    lis  net.Listener
    log  *log.Logger
    reg  registry.Registry
    opts SessionOptions

    mu     sync.RWMutex
    engine consensus.Engine

    sessions atomic.Int64
}

// Listen binds the peer listener. A bind failure (invalid or occupied
// address) is returned to the caller and is fatal at startup; there is no
// retry path.
func Listen(bind string, reg registry.Registry, opts SessionOptions) (*Listener, error) {
    lis, err := net.Listen("tcp", bind)
    if err != nil { return nil, fmt.Errorf("tcp: bind %s: %w", bind, err) }
    opts = opts.withDefaults()
    return &Listener{lis: lis, log: opts.Logger, reg: reg, opts: opts}, nil
}

// Addr returns the bound listen address.
func (l *Listener) Addr() string { return l.lis.Addr().String() }

// Sessions returns the number of live sessions spawned by this listener.
func (l *Listener) Sessions() int { return int(l.sessions.Load()) }

// SetEngine late-binds the consensus engine. Sessions observe the change on
// their next dispatch; until then they answer RPCs with empty results.
func (l *Listener) SetEngine(e consensus.Engine) {
    l.mu.Lock()
    l.engine = e
    l.mu.Unlock()
}

func (l *Listener) currentEngine() consensus.Engine {
    l.mu.RLock()
    defer l.mu.RUnlock()
    return l.engine
}

// Serve accepts connections until ctx is canceled or the listener is closed.
// Individual accept errors are counted and skipped; acceptance continues.
func (l *Listener) Serve(ctx context.Context) error {
    go func() {
        <-ctx.Done()
        _ = l.lis.Close()
    }()
    for {
        conn, err := l.lis.Accept()
        if err != nil {
            if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
                return nil
            }
            logutil.Warnf(l.log, "listener %s: accept error: %v", l.Addr(), err)
            obsmetrics.AcceptErrors.Inc()
            continue
        }
        logutil.Debugf(l.log, "listener %s: accepted %s", l.Addr(), conn.RemoteAddr())
        s := newSession(conn, l.reg, l.currentEngine, l.opts, func(*Session) { l.sessions.Add(-1) })
        l.sessions.Add(1)
        go s.run()
    }
}

// Close stops accepting new connections. Live sessions are unaffected.
func (l *Listener) Close() error { return l.lis.Close() }
