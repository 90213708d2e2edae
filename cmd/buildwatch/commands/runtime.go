package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/buildwatch/internal/app"
	"git.home.luguber.info/inful/buildwatch/internal/config"
	"git.home.luguber.info/inful/buildwatch/internal/eventloop"
	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/host"
	"git.home.luguber.info/inful/buildwatch/internal/logfields"
	"git.home.luguber.info/inful/buildwatch/internal/metrics"
	"git.home.luguber.info/inful/buildwatch/internal/publish"
	"git.home.luguber.info/inful/buildwatch/internal/session"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain/exectool"
	"git.home.luguber.info/inful/buildwatch/internal/watch"
)

const shutdownTimeout = 10 * time.Second

// runtime is everything serve and ui share: the loop, the app with its save
// watcher, and the optional metrics and NATS outlets.
type runtime struct {
	loop      *eventloop.Loop
	app       *app.App
	watcher   *watch.SaveWatcher
	metrics   *http.Server
	publisher *publish.Publisher
}

func newRuntime(cli *CLI, cfg *config.Config, h host.Host, root string) (*runtime, error) {
	configFile, err := filepath.Abs(cli.Config)
	if err != nil {
		return nil, ferrors.ConfigError("invalid config path").WithCause(err).Build()
	}

	r := &runtime{loop: eventloop.New()}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		r.metrics = &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	ctrl := session.NewController(r.loop, session.Options{
		Loader:    exectool.NewLoader(cfg.Build.Package),
		Configure: func() (*config.Config, error) { return config.Load(configFile) },
		Recorder:  recorder,
	})

	var a *app.App
	r.watcher, err = watch.New(watch.DefaultDebounce, func(path string) { a.HandleSaved(path) })
	if err != nil {
		r.loop.Close()
		return nil, ferrors.FileSystemError("cannot watch for saves").WithCause(err).Build()
	}
	a = app.New(r.loop, h, ctrl, root, r.watcher)
	r.app = a

	if cfg.NATS.URL != "" {
		conn, err := publish.Connect(cfg.NATS.URL)
		if err != nil {
			_ = r.watcher.Close()
			r.loop.Close()
			return nil, err
		}
		r.publisher = publish.New(conn, cfg.NATS.Subject, a.Proxy(), func() string {
			if s := a.Current(); s != nil {
				return s.ID()
			}
			return ""
		})
	}
	return r, nil
}

// serve runs the save watcher and the metrics listener until ctx is done.
func (r *runtime) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.watcher.Run(ctx)
		return nil
	})
	if r.metrics != nil {
		g.Go(func() error {
			slog.Info("Serving metrics", logfields.Host(r.metrics.Addr))
			if err := r.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return ferrors.ListenError("metrics listener failed").
					WithCause(err).
					WithContext("address", r.metrics.Addr).
					Build()
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return r.metrics.Shutdown(sctx)
		})
	}
	return g.Wait()
}

// close stops the session and releases every outlet. The loop is closed
// last so pending session work can finish.
func (r *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := r.app.Shutdown(ctx); err != nil {
		slog.Warn("Dev server did not stop in time", logfields.Error(err))
	}
	if r.publisher != nil {
		if err := r.publisher.Close(); err != nil {
			slog.Warn("Failed to drain NATS connection", logfields.Error(err))
		}
	}
	if err := r.watcher.Close(); err != nil {
		slog.Warn("Failed to close save watcher", logfields.Error(err))
	}
	r.loop.Close()
}
