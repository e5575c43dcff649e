// Package main provides the entry point for the codeatlas CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sumatoshi-tech/codeatlas/cmd/codeatlas/commands"
	"github.com/Sumatoshi-tech/codeatlas/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.NewRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
