package transport

import "context"

// StatusFunc returns a JSON-encoded status payload for the management
// GetStatus call. Using []byte avoids import cycles on node types.
type StatusFunc func(ctx context.Context) ([]byte, error)

// RPCServer exposes the management endpoint (status) for operator and
// intra-cluster calls.
type RPCServer interface {
    Start(ctx context.Context, status StatusFunc) error
    Addr() string
    Stop(ctx context.Context) error
}

// RPCClient performs management calls against a node's RPCServer.
type RPCClient interface {
    GetStatus(ctx context.Context, addr string) ([]byte, error)
}
