package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mindburn-labs/execgate/internal/config"
)

func runServeCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, err := buildComponents(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "gate: failed to start: %v\n", err)
		return 1
	}
	defer comps.Close()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: comps.server.Handler(),
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("gate: shutting down")
		_ = httpServer.Shutdown(ctx)
	}()

	fmt.Fprintf(stdout, "gate: listening on %s\n", cfg.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(stderr, "gate: server error: %v\n", err)
		return 1
	}
	return 0
}
