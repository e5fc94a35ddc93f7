package raftbridge

import (
    "context"
    "errors"
    "io"
    "testing"
    "time"

    "github.com/hashicorp/raft"

    c "github.com/amirimatin/raftnet/pkg/consensus"
)

// drain consumes one RPC from the bridge mailbox and answers it.
func drain(t *testing.T, b *Bridge, respond func(rpc raft.RPC)) {
    t.Helper()
    go func() {
        select {
        case rpc := <-b.Consumer():
            respond(rpc)
        case <-time.After(2 * time.Second):
        }
    }()
}

func TestBridge_AppendEntries(t *testing.T) {
    b := New(Options{})
    drain(t, b, func(rpc raft.RPC) {
        req, ok := rpc.Command.(*raft.AppendEntriesRequest)
        if !ok {
            rpc.RespChan <- raft.RPCResponse{Error: errors.New("wrong command type")}
            return
        }
        if req.Term != 5 || req.PrevLogEntry != 9 || len(req.Entries) != 2 {
            rpc.RespChan <- raft.RPCResponse{Error: errors.New("bad fields")}
            return
        }
        rpc.RespChan <- raft.RPCResponse{Response: &raft.AppendEntriesResponse{Term: 5, Success: true}}
    })

    resp, err := b.AppendEntries(context.Background(), &c.AppendEntriesRequest{
        Term: 5, LeaderID: "n1", PrevLogIndex: 9, PrevLogTerm: 4,
        Entries: []c.Entry{{Term: 5, Index: 10}, {Term: 5, Index: 11}},
    })
    if err != nil { t.Fatalf("append entries: %v", err) }
    if resp.Term != 5 || !resp.Success { t.Fatalf("unexpected response: %+v", resp) }
}

func TestBridge_Vote(t *testing.T) {
    b := New(Options{})
    drain(t, b, func(rpc raft.RPC) {
        req, ok := rpc.Command.(*raft.RequestVoteRequest)
        if !ok || req.Term != 7 {
            rpc.RespChan <- raft.RPCResponse{Error: errors.New("bad request")}
            return
        }
        rpc.RespChan <- raft.RPCResponse{Response: &raft.RequestVoteResponse{Term: 7, Granted: true}}
    })

    resp, err := b.Vote(context.Background(), &c.VoteRequest{Term: 7, CandidateID: "n2"})
    if err != nil { t.Fatalf("vote: %v", err) }
    if !resp.VoteGranted { t.Fatalf("expected granted vote, got %+v", resp) }
}

func TestBridge_InstallSnapshotDeliversReader(t *testing.T) {
    b := New(Options{})
    data := []byte("snapshot-bytes")
    drain(t, b, func(rpc raft.RPC) {
        req, ok := rpc.Command.(*raft.InstallSnapshotRequest)
        if !ok || req.Size != int64(len(data)) {
            rpc.RespChan <- raft.RPCResponse{Error: errors.New("bad request")}
            return
        }
        got, err := io.ReadAll(rpc.Reader)
        if err != nil || string(got) != string(data) {
            rpc.RespChan <- raft.RPCResponse{Error: errors.New("bad snapshot body")}
            return
        }
        rpc.RespChan <- raft.RPCResponse{Response: &raft.InstallSnapshotResponse{Term: 3}}
    })

    resp, err := b.InstallSnapshot(context.Background(), &c.InstallSnapshotRequest{
        Term: 3, LeaderID: "n1", Data: data, Done: true,
    })
    if err != nil { t.Fatalf("install snapshot: %v", err) }
    if resp.Term != 3 { t.Fatalf("unexpected term: %d", resp.Term) }
}

func TestBridge_ClosedFailsFast(t *testing.T) {
    b := New(Options{Buffer: 1})
    b.Close()
    _, err := b.Vote(context.Background(), &c.VoteRequest{Term: 1})
    if !errors.Is(err, c.ErrEngineUnavailable) {
        t.Fatalf("expected ErrEngineUnavailable, got %v", err)
    }
}

func TestBridge_ContextCancellation(t *testing.T) {
    b := New(Options{})
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    // Nothing drains the mailbox response, so only ctx can unblock the call.
    drain(t, b, func(raft.RPC) {})
    _, err := b.Vote(ctx, &c.VoteRequest{Term: 1})
    if !errors.Is(err, context.Canceled) {
        t.Fatalf("expected context.Canceled, got %v", err)
    }
}
