package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/waabox/azdeck/internal/cli"
	"github.com/waabox/azdeck/internal/domain"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, os.Args[1:], cli.Options{Version: version})
	switch {
	case err == nil:
		return
	case errors.Is(err, context.Canceled):
		// Interrupted: stop without reporting anything.
		stop()
		os.Exit(130)
	case errors.Is(err, domain.ErrUnauthorized):
		fmt.Fprintf(os.Stderr, "error: %v (check AZURE_DEVOPS_EXT_PAT or azure.token)\n", err)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	stop()
	os.Exit(1)
}
