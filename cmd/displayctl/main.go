// Package main is the displayctl command-line tool.
package main

import (
	"context"
	"os"
	"os/signal"
)

// main is the entrypoint for displayctl.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	interrupted := ctx.Err() != nil
	stop()
	if err != nil || interrupted {
		exitError(err, interrupted)
	}
}
