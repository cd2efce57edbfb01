package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roadscout/roadscout/internal/config"
	"github.com/roadscout/roadscout/internal/dependency"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the roadscout server: HTTP gateway, chat channels, and trip monitor",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Gateway port (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != 0 {
		cfg.Gateway.Port = servePort
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%s Starting roadscout on %s:%d...\n", logo, cfg.Gateway.Host, cfg.Gateway.Port)

	if enabled := container.Channels().EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", strings.Join(enabled, ", "))
	} else {
		fmt.Println("Warning: no channels enabled")
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.Gateway().Run(gctx) })
	g.Go(func() error { return container.Channels().StartAll(gctx) })
	g.Go(func() error { return container.Monitor().Run(gctx) })

	fmt.Printf("%s Server running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
