// Command mcbuilder builds protein macrocomplex models from pairwise
// interaction structures.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/mcbuilder/internal/interfaces/cli"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	// An interrupted search still writes the best model found so far.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	os.Exit(errors.ExitCode(err))
}
