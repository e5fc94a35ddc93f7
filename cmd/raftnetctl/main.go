package main

import (
    "log"

    "github.com/spf13/cobra"

    raftnetcli "github.com/amirimatin/raftnet/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "raftnetctl",
        Short:         "raftnet transport management CLI",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    // Attach all transport commands from pkg/cli for reuse in services
    raftnetcli.AddAll(root)
    return root
}
