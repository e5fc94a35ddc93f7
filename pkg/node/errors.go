package node

import "errors"

var (
    ErrNotStarted = errors.New("node: not started")
    ErrClosed     = errors.New("node: closed")
)
