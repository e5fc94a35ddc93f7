package consensus

import "encoding/json"

// Wire shapes for the three consensus RPCs. These are the payloads carried
// inside message/result frames; field names are part of the peer protocol.

// Entry is a single replicated log entry.
type Entry struct {
    Term    uint64          `json:"term"`
    Index   uint64          `json:"index"`
    Payload json.RawMessage `json:"payload,omitempty"`
}

type AppendEntriesRequest struct {
    Term         uint64  `json:"term"`
    LeaderID     string  `json:"leader_id"`
    PrevLogIndex uint64  `json:"prev_log_index"`
    PrevLogTerm  uint64  `json:"prev_log_term"`
    Entries      []Entry `json:"entries"`
    LeaderCommit uint64  `json:"leader_commit"`
}

type AppendEntriesResponse struct {
    Term    uint64 `json:"term"`
    Success bool   `json:"success"`
    // ConflictIndex hints at where the follower's log diverges when
    // Success is false; zero means no hint.
    ConflictIndex uint64 `json:"conflict_index,omitempty"`
}

type VoteRequest struct {
    Term         uint64 `json:"term"`
    CandidateID  string `json:"candidate_id"`
    LastLogIndex uint64 `json:"last_log_index"`
    LastLogTerm  uint64 `json:"last_log_term"`
}

type VoteResponse struct {
    Term        uint64 `json:"term"`
    VoteGranted bool   `json:"vote_granted"`
}

type InstallSnapshotRequest struct {
    Term              uint64 `json:"term"`
    LeaderID          string `json:"leader_id"`
    LastIncludedIndex uint64 `json:"last_included_index"`
    LastIncludedTerm  uint64 `json:"last_included_term"`
    Offset            uint64 `json:"offset"`
    Data              []byte `json:"data"`
    Done              bool   `json:"done"`
}

type InstallSnapshotResponse struct {
    Term uint64 `json:"term"`
}
