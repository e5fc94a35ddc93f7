package tcp

import (
    "context"
    "encoding/json"
    "errors"
    "log"
    "net"
    "sync"
    "time"

    "github.com/amirimatin/raftnet/pkg/consensus"
    "github.com/amirimatin/raftnet/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/raftnet/pkg/observability/metrics"
    "github.com/amirimatin/raftnet/pkg/observability/tracing"
    "github.com/amirimatin/raftnet/pkg/registry"
    "github.com/amirimatin/raftnet/pkg/wire"
)

var (
    ErrSessionClosed  = errors.New("tcp: session closed")
    ErrWriteQueueFull = errors.New("tcp: session write queue full")
)

// SessionOptions tunes per-session behavior. Zero values select defaults.
type SessionOptions struct {
    // HeartbeatInterval is the tick period for liveness checks and keepalive
    // pings (default 1s).
    HeartbeatInterval time.Duration
    // LivenessTimeout is the maximum gap since the last received ping before
    // the session disconnects the peer (default 10s).
    LivenessTimeout time.Duration
    // EngineTimeout bounds a single consensus RPC dispatch (default 5s).
    EngineTimeout time.Duration
    // WriteQueue bounds the outbound frame queue (default 256). Frames are
    // dropped, not blocked on, when the queue is full.
    WriteQueue int
    // Logger is optional; log.Default() is used when nil.
    Logger *log.Logger
}

func (o SessionOptions) withDefaults() SessionOptions {
    if o.HeartbeatInterval <= 0 { o.HeartbeatInterval = time.Second }
    if o.LivenessTimeout <= 0 { o.LivenessTimeout = 10 * time.Second }
    if o.EngineTimeout <= 0 { o.EngineTimeout = 5 * time.Second }
    if o.WriteQueue <= 0 { o.WriteQueue = 256 }
    if o.Logger == nil { o.Logger = log.Default() }
    return o
}

// Session owns one inbound peer connection. All session state (heartbeat
// freshness, peer identity) is owned by the run loop goroutine; frames are
// handled strictly in receipt order, except message dispatches which run on
// their own goroutines and reply out of order, matched by correlation id.
//
// A session starts Unidentified; the first join frame moves it to Identified
// and registers it with the peer registry. A second join is ignored (first
// identity wins). The session ends when the connection drops, the write side
// fails, or the peer misses heartbeats for longer than the liveness timeout.
type Session struct {
    conn   net.Conn
    log    *log.Logger
    reg    registry.Registry
    engine func() consensus.Engine
    opts   SessionOptions
    onDone func(*Session)

    reqCh   chan *wire.Request
    writeCh chan *wire.Response

    ctx    context.Context
    cancel context.CancelFunc
    once   sync.Once

    // hb and id are owned by the run loop.
    hb time.Time
    id registry.NodeID

    mu    sync.RWMutex
    pubID registry.NodeID
}

// newSession wires a session around an accepted connection. engine is a
// provider rather than a handle: the consensus engine is late-bound and may
// be absent for the whole session lifetime, which every dispatch path
// tolerates. onDone may be nil.
func newSession(conn net.Conn, reg registry.Registry, engine func() consensus.Engine, opts SessionOptions, onDone func(*Session)) *Session {
    ctx, cancel := context.WithCancel(context.Background())
    opts = opts.withDefaults()
    return &Session{
        conn:    conn,
        log:     opts.Logger,
        reg:     reg,
        engine:  engine,
        opts:    opts,
        onDone:  onDone,
        reqCh:   make(chan *wire.Request, 16),
        writeCh: make(chan *wire.Response, opts.WriteQueue),
        ctx:     ctx,
        cancel:  cancel,
    }
}

// ID returns the announced peer identity, or "" while unidentified.
func (s *Session) ID() registry.NodeID {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.pubID
}

func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr().String() }

// Send queues an outbound response frame for the peer. It never blocks on the
// network: a closed session or a full queue is reported as an error.
func (s *Session) Send(resp *wire.Response) error {
    select {
    case <-s.ctx.Done():
        return ErrSessionClosed
    default:
    }
    select {
    case s.writeCh <- resp:
        return nil
    case <-s.ctx.Done():
        return ErrSessionClosed
    default:
        obsmetrics.WriteQueueDrops.Inc()
        return ErrWriteQueueFull
    }
}

// Close terminates the session and releases the connection.
func (s *Session) Close() error {
    s.shutdown()
    return nil
}

func (s *Session) shutdown() {
    s.once.Do(func() {
        s.cancel()
        _ = s.conn.Close()
    })
}

// run is the session's goroutine. It drives the read/write loops, the
// heartbeat timer and sequential frame handling until termination.
func (s *Session) run() {
    obsmetrics.SessionsTotal.Inc()
    obsmetrics.SessionsActive.Inc()
    go s.readLoop()
    go s.writeLoop()

    ticker := time.NewTicker(s.opts.HeartbeatInterval)
    s.hb = time.Now()

    defer func() {
        ticker.Stop()
        s.shutdown()
        obsmetrics.SessionsActive.Dec()
        if s.id != "" {
            obsmetrics.IdentifiedPeers.Dec()
            if s.reg != nil { s.reg.PeerDisconnected(s.id, s) }
        }
        if s.onDone != nil { s.onDone(s) }
    }()

    for {
        select {
        case req, ok := <-s.reqCh:
            if !ok { return }
            s.handle(req)
        case <-ticker.C:
            // Keepalive goes out on every tick, including the failing one.
            s.push(&wire.Response{Kind: wire.RespPing})
            if time.Since(s.hb) > s.opts.LivenessTimeout {
                logutil.Infof(s.log, "session %s: peer heartbeat failed, disconnecting", s.RemoteAddr())
                obsmetrics.HeartbeatExpirations.Inc()
                return
            }
        case <-s.ctx.Done():
            return
        }
    }
}

// handle processes one inbound frame. Runs on the run loop goroutine only.
func (s *Session) handle(req *wire.Request) {
    obsmetrics.FramesTotal.WithLabelValues(string(req.Kind)).Inc()
    switch req.Kind {
    case wire.ReqPing:
        s.hb = time.Now()
    case wire.ReqJoin:
        if req.NodeID == "" {
            logutil.Warnf(s.log, "session %s: join without node id, ignoring", s.RemoteAddr())
            return
        }
        if s.id != "" {
            logutil.Warnf(s.log, "session %s: duplicate join as %q (already %q), ignoring", s.RemoteAddr(), req.NodeID, s.id)
            return
        }
        s.id = registry.NodeID(req.NodeID)
        s.mu.Lock()
        s.pubID = s.id
        s.mu.Unlock()
        obsmetrics.IdentifiedPeers.Inc()
        logutil.Infof(s.log, "session %s: peer identified as %s", s.RemoteAddr(), s.id)
        if s.reg != nil { s.reg.PeerConnected(s.id, s) }
    case wire.ReqMessage:
        // Each message is dispatched independently; responses are matched by
        // correlation id, not arrival order.
        go s.dispatch(req.MID, req.TypeID, req.Body)
    default:
        // unrecognized frame kinds are ignored
    }
}

// dispatch forwards one RPC envelope to the engine and writes the correlated
// result back. Every failure mode short of a dead connection degrades to an
// empty-payload result so a single bad message never takes the session down.
func (s *Session) dispatch(mid uint64, typeID string, body []byte) {
    ctx, end := tracing.StartSpan(context.Background(), "session.dispatch")
    defer end()
    start := time.Now()

    kind, payload, result := s.invoke(ctx, typeID, body)
    obsmetrics.DispatchTotal.WithLabelValues(kind, result).Inc()
    obsmetrics.DispatchSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())

    s.push(&wire.Response{Kind: wire.RespResult, MID: mid, Body: payload})
}

func (s *Session) invoke(ctx context.Context, typeID string, body []byte) (kind string, payload []byte, result string) {
    eng := s.engine()
    switch typeID {
    case "AppendEntriesRequest":
        var req consensus.AppendEntriesRequest
        if err := json.Unmarshal(body, &req); err != nil {
            logutil.Warnf(s.log, "session %s: malformed %s payload: %v", s.RemoteAddr(), typeID, err)
            return typeID, nil, "malformed"
        }
        if eng == nil { return typeID, nil, "no_engine" }
        cctx, cancel := context.WithTimeout(ctx, s.opts.EngineTimeout)
        defer cancel()
        resp, err := eng.AppendEntries(cctx, &req)
        if err != nil {
            logutil.Warnf(s.log, "session %s: append entries dispatch failed: %v", s.RemoteAddr(), err)
            return typeID, nil, "engine_error"
        }
        return typeID, mustMarshal(s.log, resp), "ok"
    case "VoteRequest":
        var req consensus.VoteRequest
        if err := json.Unmarshal(body, &req); err != nil {
            logutil.Warnf(s.log, "session %s: malformed %s payload: %v", s.RemoteAddr(), typeID, err)
            return typeID, nil, "malformed"
        }
        if eng == nil { return typeID, nil, "no_engine" }
        cctx, cancel := context.WithTimeout(ctx, s.opts.EngineTimeout)
        defer cancel()
        resp, err := eng.Vote(cctx, &req)
        if err != nil {
            logutil.Warnf(s.log, "session %s: vote dispatch failed: %v", s.RemoteAddr(), err)
            return typeID, nil, "engine_error"
        }
        return typeID, mustMarshal(s.log, resp), "ok"
    case "InstallSnapshotRequest":
        var req consensus.InstallSnapshotRequest
        if err := json.Unmarshal(body, &req); err != nil {
            logutil.Warnf(s.log, "session %s: malformed %s payload: %v", s.RemoteAddr(), typeID, err)
            return typeID, nil, "malformed"
        }
        if eng == nil { return typeID, nil, "no_engine" }
        cctx, cancel := context.WithTimeout(ctx, s.opts.EngineTimeout)
        defer cancel()
        resp, err := eng.InstallSnapshot(cctx, &req)
        if err != nil {
            logutil.Warnf(s.log, "session %s: install snapshot dispatch failed: %v", s.RemoteAddr(), err)
            return typeID, nil, "engine_error"
        }
        return typeID, mustMarshal(s.log, resp), "ok"
    default:
        // Unknown RPC kinds are answered with an empty result, deliberately
        // not an error: the higher protocol layer interprets empty results.
        return "unknown", nil, "unknown_kind"
    }
}

func mustMarshal(l *log.Logger, v any) []byte {
    b, err := json.Marshal(v)
    if err != nil {
        logutil.Errorf(l, "marshal rpc response: %v", err)
        return nil
    }
    return b
}

// push queues an outbound frame from inside the session, dropping it if the
// session is closing or the queue is saturated.
func (s *Session) push(resp *wire.Response) {
    select {
    case s.writeCh <- resp:
    case <-s.ctx.Done():
    default:
        obsmetrics.WriteQueueDrops.Inc()
    }
}

func (s *Session) readLoop() {
    defer close(s.reqCh)
    dec := wire.NewDecoder(s.conn)
    for {
        req, err := dec.ReadRequest()
        if err != nil {
            if s.ctx.Err() == nil {
                logutil.Debugf(s.log, "session %s: read ended: %v", s.RemoteAddr(), err)
            }
            return
        }
        select {
        case s.reqCh <- req:
        case <-s.ctx.Done():
            return
        }
    }
}

func (s *Session) writeLoop() {
    enc := wire.NewEncoder(s.conn)
    for {
        select {
        case resp := <-s.writeCh:
            if err := enc.WriteResponse(resp); err != nil {
                if s.ctx.Err() == nil {
                    logutil.Debugf(s.log, "session %s: write failed: %v", s.RemoteAddr(), err)
                }
                s.shutdown()
                return
            }
        case <-s.ctx.Done():
            return
        }
    }
}

var _ registry.Peer = (*Session)(nil)
