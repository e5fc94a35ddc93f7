package cli

import (
    "context"
    "crypto/tls"
    "fmt"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/amirimatin/raftnet/pkg/bootstrap"
    "github.com/amirimatin/raftnet/pkg/internal/logutil"
    tracing "github.com/amirimatin/raftnet/pkg/observability/tracing"
    tlsx "github.com/amirimatin/raftnet/pkg/security/tlsconfig"
    "github.com/amirimatin/raftnet/pkg/transport/mgmt"
)

// AddAll attaches transport subcommands (run/status) to the provided root command.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewRunCmd())
    root.AddCommand(NewStatusCmd())
}

// NewRunCmd returns the "run" command used to start a transport node.
func NewRunCmd() *cobra.Command {
    var (
        bind, mgmtAddr                        string
        heartbeat, liveness, engineTimeout    time.Duration
        tlsEnable, tlsSkip, traceEnable       bool
        logJSON                               bool
        tlsCA, tlsCert, tlsKey, tlsServerName string
    )
    cmd := &cobra.Command{
        Use:   "run",
        Short: "Run a transport node",
        RunE: func(cmd *cobra.Command, args []string) error {
            if bind == "" { return fmt.Errorf("missing -bind") }
            ctx, cancel := signalContext()
            defer cancel()

            if logJSON { logutil.SetJSON(true) }
            if traceEnable {
                shutdown, err := tracing.Setup(true)
                if err != nil {
                    log.Printf("tracing setup error: %v", err)
                } else {
                    defer func() { _ = shutdown(context.Background()) }()
                }
            }

            cfg := bootstrap.Config{
                BindAddr:          bind,
                MgmtAddr:          mgmtAddr,
                HeartbeatInterval: heartbeat,
                LivenessTimeout:   liveness,
                EngineTimeout:     engineTimeout,
                TLSEnable:         tlsEnable,
                TLSCA:             tlsCA,
                TLSCert:           tlsCert,
                TLSKey:            tlsKey,
                TLSServerName:     tlsServerName,
                TLSSkipVerify:     tlsSkip,
                Logger:            log.Default(),
            }
            n, err := bootstrap.Run(ctx, cfg)
            if err != nil { return err }
            defer n.Close()

            fmt.Println("transport node running. Press Ctrl+C to exit.")
            <-ctx.Done()
            return nil
        },
    }
    cmd.Flags().StringVar(&bind, "bind", ":9620", "peer listener bind addr (tcp)")
    cmd.Flags().StringVar(&mgmtAddr, "mgmt-addr", ":19620", "management address (tcp); empty disables the management API")
    cmd.Flags().DurationVar(&heartbeat, "heartbeat", time.Second, "heartbeat tick interval")
    cmd.Flags().DurationVar(&liveness, "liveness", 10*time.Second, "liveness threshold before disconnecting a silent peer")
    cmd.Flags().DurationVar(&engineTimeout, "engine-timeout", 5*time.Second, "per-RPC consensus engine timeout")
    cmd.Flags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
    cmd.Flags().BoolVar(&tlsEnable, "tls-enable", false, "enable mTLS for the management API")
    cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "path to CA cert (PEM)")
    cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to node certificate (PEM)")
    cmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to node private key (PEM)")
    cmd.Flags().BoolVar(&tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
    cmd.Flags().StringVar(&tlsServerName, "tls-server-name", "", "expected server name (for TLS validation)")
    cmd.Flags().BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    return cmd
}

// NewStatusCmd returns the "status" command.
func NewStatusCmd() *cobra.Command {
    var (
        addr                                  string
        timeout                               time.Duration
        tlsEnable, tlsSkip                    bool
        tlsCA, tlsCert, tlsKey, tlsServerName string
    )
    cmd := &cobra.Command{
        Use:   "status",
        Short: "Fetch transport node status as JSON",
        RunE: func(cmd *cobra.Command, args []string) error {
            var cliTLS *tls.Config
            if tlsEnable {
                topts := tlsx.Options{Enable: true, CAFile: tlsCA, CertFile: tlsCert, KeyFile: tlsKey, InsecureSkipVerify: tlsSkip, ServerName: tlsServerName}
                var err error
                cliTLS, err = topts.Client()
                if err != nil { return fmt.Errorf("tls client config: %w", err) }
            }
            client := mgmt.NewClient(timeout)
            if cliTLS != nil { client.UseTLS(cliTLS) }
            ctx, cancel := context.WithTimeout(context.Background(), timeout)
            defer cancel()
            data, err := client.GetStatus(ctx, addr)
            if err != nil { return fmt.Errorf("status error: %w", err) }
            os.Stdout.Write(data)
            if len(data) == 0 || data[len(data)-1] != '\n' { os.Stdout.Write([]byte("\n")) }
            return nil
        },
    }
    cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:19620", "management address of a node (host:port)")
    cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
    cmd.Flags().BoolVar(&tlsEnable, "tls-enable", false, "enable mTLS for the management API")
    cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "path to CA cert (PEM)")
    cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to client certificate (PEM)")
    cmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to client private key (PEM)")
    cmd.Flags().BoolVar(&tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
    cmd.Flags().StringVar(&tlsServerName, "tls-server-name", "", "expected server name (for TLS validation)")
    return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
    ctx, cancel := context.WithCancel(context.Background())
    go func() {
        ch := make(chan os.Signal, 1)
        signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
        <-ch
        cancel()
    }()
    return ctx, cancel
}
