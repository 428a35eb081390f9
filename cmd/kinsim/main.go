// Package main is the kinsim command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robokit/kinsim/cli"
	"github.com/robokit/kinsim/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		logging.NewLogger("kinsim").Error(err)
		stop()
		//nolint:gocritic
		os.Exit(1)
	}
}
