package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/host"
	"git.home.luguber.info/inful/buildwatch/internal/tui"
)

// UICmd implements the 'ui' command.
type UICmd struct {
	Root    string `short:"r" name:"root" help:"Project root (defaults to the working directory)"`
	LogFile string `name:"log-file" help:"Write logs to this file while the panel is open (discarded otherwise)"`
	NoStart bool   `name:"no-start" help:"Do not start the dev server until 's' is pressed"`
}

func (u *UICmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	// The panel owns the terminal; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if u.LogFile != "" {
		f, err := os.OpenFile(u.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return ferrors.FileSystemError(fmt.Sprintf("cannot open log file %s", u.LogFile)).WithCause(err).Build()
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	root.applyLogging(cfg, logOut)

	projectRoot, err := resolveRoot(u.Root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	refresher := &tui.Refresher{}
	rec := host.NewRecorder(refresher.Refresh)

	rt, err := newRuntime(root, cfg, rec, projectRoot)
	if err != nil {
		return err
	}
	defer rt.close()

	errCh := make(chan error, 1)
	go func() { errCh <- rt.serve(ctx) }()

	if !u.NoStart {
		rt.app.StartDevServer()
	}

	runErr := tui.Run(ctx, tui.New(rt.app, rt.app.Proxy(), rec), refresher)
	cancel()
	if err := <-errCh; err != nil && runErr == nil {
		return err
	}
	return runErr
}
