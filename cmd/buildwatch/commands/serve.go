package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/buildwatch/internal/host"
	"git.home.luguber.info/inful/buildwatch/internal/logfields"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Root string `short:"r" name:"root" help:"Project root (defaults to the working directory)"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	root.applyLogging(cfg, os.Stderr)

	projectRoot, err := resolveRoot(s.Root)
	if err != nil {
		return err
	}

	// Setup signal-based context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(root, cfg, host.NewConsole(os.Stdout), projectRoot)
	if err != nil {
		return err
	}
	defer rt.close()

	errCh := make(chan error, 1)
	go func() { errCh <- rt.serve(ctx) }()

	if _, err := rt.app.StartDevServer().Wait(ctx); err != nil && ctx.Err() == nil {
		cancel()
		<-errCh
		return err
	}
	slog.Info("Dev server running, press Ctrl+C to stop", logfields.Root(projectRoot))

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping dev server...")
		return <-errCh
	case err := <-errCh:
		return err
	}
}
