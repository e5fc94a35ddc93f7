package raftbridge

import (
    "bytes"
    "context"
    "fmt"
    "log"
    "sync"

    "github.com/hashicorp/raft"

    c "github.com/amirimatin/raftnet/pkg/consensus"
)

// Bridge implements consensus.Engine by converting typed transport RPCs into
// hashicorp/raft RPC commands delivered on a consumer channel, the same
// mailbox shape hashicorp's own network transport feeds. A raft node consumes
// the channel via a raft.Transport whose Consumer() returns RPCCh, so the
// session layer can serve inbound peer traffic to a real raft instance.
type Bridge struct {
    log   *log.Logger
    rpcCh chan raft.RPC

    closed chan struct{}
    once   sync.Once
}

type Options struct {
    // Logger is optional; log.Default() is used when nil.
    Logger *log.Logger
    // Buffer sizes the RPC mailbox (default 64).
    Buffer int
}

func New(opts Options) *Bridge {
    if opts.Logger == nil { opts.Logger = log.Default() }
    if opts.Buffer <= 0 { opts.Buffer = 64 }
    return &Bridge{
        log:    opts.Logger,
        rpcCh:  make(chan raft.RPC, opts.Buffer),
        closed: make(chan struct{}),
    }
}

// Consumer exposes the RPC mailbox for the raft side to drain.
func (b *Bridge) Consumer() <-chan raft.RPC { return b.rpcCh }

// Close marks the bridge unavailable. Pending and subsequent calls fail with
// consensus.ErrEngineUnavailable.
func (b *Bridge) Close() { b.once.Do(func() { close(b.closed) }) }

func (b *Bridge) AppendEntries(ctx context.Context, req *c.AppendEntriesRequest) (*c.AppendEntriesResponse, error) {
    hreq := &raft.AppendEntriesRequest{
        RPCHeader:         b.header(req.LeaderID),
        Term:              req.Term,
        PrevLogEntry:      req.PrevLogIndex,
        PrevLogTerm:       req.PrevLogTerm,
        LeaderCommitIndex: req.LeaderCommit,
    }
    if len(req.Entries) > 0 {
        hreq.Entries = make([]*raft.Log, 0, len(req.Entries))
        for _, e := range req.Entries {
            hreq.Entries = append(hreq.Entries, &raft.Log{
                Index: e.Index,
                Term:  e.Term,
                Type:  raft.LogCommand,
                Data:  e.Payload,
            })
        }
    }
    out, err := b.dispatch(ctx, hreq, nil)
    if err != nil { return nil, err }
    hresp, ok := out.(*raft.AppendEntriesResponse)
    if !ok { return nil, fmt.Errorf("raftbridge: unexpected append-entries response %T", out) }
    resp := &c.AppendEntriesResponse{Term: hresp.Term, Success: hresp.Success}
    if !hresp.Success {
        resp.ConflictIndex = hresp.LastLog
    }
    return resp, nil
}

func (b *Bridge) Vote(ctx context.Context, req *c.VoteRequest) (*c.VoteResponse, error) {
    hreq := &raft.RequestVoteRequest{
        RPCHeader:    b.header(req.CandidateID),
        Term:         req.Term,
        LastLogIndex: req.LastLogIndex,
        LastLogTerm:  req.LastLogTerm,
    }
    out, err := b.dispatch(ctx, hreq, nil)
    if err != nil { return nil, err }
    hresp, ok := out.(*raft.RequestVoteResponse)
    if !ok { return nil, fmt.Errorf("raftbridge: unexpected vote response %T", out) }
    return &c.VoteResponse{Term: hresp.Term, VoteGranted: hresp.Granted}, nil
}

func (b *Bridge) InstallSnapshot(ctx context.Context, req *c.InstallSnapshotRequest) (*c.InstallSnapshotResponse, error) {
    hreq := &raft.InstallSnapshotRequest{
        RPCHeader:    b.header(req.LeaderID),
        Term:         req.Term,
        LastLogIndex: req.LastIncludedIndex,
        LastLogTerm:  req.LastIncludedTerm,
        Size:         int64(len(req.Data)),
    }
    // The raft side consumes snapshot bytes from the RPC reader.
    out, err := b.dispatch(ctx, hreq, bytes.NewReader(req.Data))
    if err != nil { return nil, err }
    hresp, ok := out.(*raft.InstallSnapshotResponse)
    if !ok { return nil, fmt.Errorf("raftbridge: unexpected install-snapshot response %T", out) }
    return &c.InstallSnapshotResponse{Term: hresp.Term}, nil
}

func (b *Bridge) header(id string) raft.RPCHeader {
    return raft.RPCHeader{
        ProtocolVersion: raft.ProtocolVersionMax,
        ID:              []byte(id),
        Addr:            []byte(id),
    }
}

func (b *Bridge) dispatch(ctx context.Context, cmd interface{}, reader *bytes.Reader) (interface{}, error) {
    respCh := make(chan raft.RPCResponse, 1)
    rpc := raft.RPC{Command: cmd, RespChan: respCh}
    if reader != nil { rpc.Reader = reader }
    select {
    case b.rpcCh <- rpc:
    case <-b.closed:
        return nil, c.ErrEngineUnavailable
    case <-ctx.Done():
        return nil, ctx.Err()
    }
    select {
    case r := <-respCh:
        if r.Error != nil { return nil, r.Error }
        return r.Response, nil
    case <-b.closed:
        return nil, c.ErrEngineUnavailable
    case <-ctx.Done():
        return nil, ctx.Err()
    }
}

var _ c.Engine = (*Bridge)(nil)
