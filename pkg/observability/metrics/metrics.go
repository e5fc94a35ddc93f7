package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "raftnet",
        Name:      "sessions_active",
        Help:      "Current number of live peer sessions",
    })

    SessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "raftnet",
        Name:      "sessions_total",
        Help:      "Total number of accepted peer sessions",
    })

    IdentifiedPeers = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "raftnet",
        Name:      "identified_peers",
        Help:      "Current number of sessions that completed a join handshake",
    })

    AcceptErrors = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "raftnet",
        Name:      "accept_errors_total",
        Help:      "Total accept failures on the peer listener (listener keeps serving)",
    })

    FramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "raftnet",
        Subsystem: "session",
        Name:      "frames_total",
        Help:      "Total inbound frames by kind",
    }, []string{"kind"})

    HeartbeatExpirations = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "raftnet",
        Subsystem: "session",
        Name:      "heartbeat_expirations_total",
        Help:      "Total sessions terminated for missed heartbeats",
    })

    WriteQueueDrops = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "raftnet",
        Subsystem: "session",
        Name:      "write_queue_drops_total",
        Help:      "Total outbound frames dropped because the write queue was full",
    })

    DispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "raftnet",
        Subsystem: "rpc",
        Name:      "dispatch_total",
        Help:      "Total consensus RPC dispatches by kind and result",
    }, []string{"kind", "result"})

    DispatchSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
        Namespace: "raftnet",
        Subsystem: "rpc",
        Name:      "dispatch_seconds",
        Help:      "Latency of consensus RPC dispatches",
        Buckets:   prometheus.DefBuckets,
    }, []string{"kind"})

    GRPCConnDials = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "raftnet",
        Subsystem: "grpc_conn",
        Name:      "dials_total",
        Help:      "Total number of new gRPC connections dialed",
    })
    GRPCConnReuse = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "raftnet",
        Subsystem: "grpc_conn",
        Name:      "reuse_total",
        Help:      "Total number of gRPC connection reuses from cache",
    })
    GRPCConnEvictions = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "raftnet",
        Subsystem: "grpc_conn",
        Name:      "evictions_total",
        Help:      "Total number of cached gRPC connections evicted",
    })
    GRPCConnActive = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "raftnet",
        Subsystem: "grpc_conn",
        Name:      "active",
        Help:      "Number of active cached gRPC connections",
    })
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(SessionsActive)
        prometheus.MustRegister(SessionsTotal)
        prometheus.MustRegister(IdentifiedPeers)
        prometheus.MustRegister(AcceptErrors)
        prometheus.MustRegister(FramesTotal)
        prometheus.MustRegister(HeartbeatExpirations)
        prometheus.MustRegister(WriteQueueDrops)
        prometheus.MustRegister(DispatchTotal)
        prometheus.MustRegister(DispatchSeconds)
        prometheus.MustRegister(GRPCConnDials)
        prometheus.MustRegister(GRPCConnReuse)
        prometheus.MustRegister(GRPCConnEvictions)
        prometheus.MustRegister(GRPCConnActive)
    })
}
