package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vdye/commitview/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Interrupts cancel the running command so imports stop between commits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.NewRootCmd(version).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
