package main

import (
	"context"
	"fmt"
	"os"

	"pagos/internal/cli"
	"pagos/internal/config"
)

func main() {
	cli.LoadEnvFile()
	// Defaults only; flags override, so a partial environment is fine here.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
