package consensus

import (
    "context"
    "errors"
)

// Engine is the minimal abstraction over the local consensus engine's RPC
// boundary. The transport layer forwards inbound peer RPCs through these
// three calls and never inspects the engine beyond their results. A failed
// call is reported to the remote peer as an empty result, never as a dropped
// connection, so implementations should return an error rather than block
// indefinitely.
type Engine interface {
    AppendEntries(ctx context.Context, req *AppendEntriesRequest) (*AppendEntriesResponse, error)
    Vote(ctx context.Context, req *VoteRequest) (*VoteResponse, error)
    InstallSnapshot(ctx context.Context, req *InstallSnapshotRequest) (*InstallSnapshotResponse, error)
}

// ErrEngineUnavailable is returned by Engine implementations whose backing
// node has stopped or whose mailbox is closed.
var ErrEngineUnavailable = errors.New("consensus: engine unavailable")
