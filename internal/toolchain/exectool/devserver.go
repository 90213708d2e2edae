package exectool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/livereload"
	"git.home.luguber.info/inful/buildwatch/internal/logfields"
	"git.home.luguber.info/inful/buildwatch/internal/notify"
	"git.home.luguber.info/inful/buildwatch/internal/report"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain"
)

// DevServer serves the build output with LiveReload while the compiler
// watches the project.
type DevServer struct {
	compiler *Compiler
	cfg      toolchain.BuildConfig
	hub      *livereload.Hub

	mu     sync.Mutex
	srv    *http.Server
	addr   string
	cancel context.CancelFunc
	group  *errgroup.Group
	subs   notify.Disposables
}

// NewDevServer creates a dev server for c. Nothing is bound until Listen.
func NewDevServer(c *Compiler, cfg toolchain.BuildConfig) *DevServer {
	return &DevServer{compiler: c, cfg: cfg, hub: livereload.NewHub(cfg.Recorder)}
}

// Listen pre-binds host:port so bind errors surface here, then serves and
// starts watching in the background.
func (s *DevServer) Listen(ctx context.Context, port int, host string) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return ferrors.ListenError(fmt.Sprintf("cannot listen on %s", addr)).
			WithCause(err).
			WithContext("address", addr).
			Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr = ln.Addr().String()
	s.subs.Add(s.compiler.OnRunFinished(s.broadcast))
	// SSE streams stay open, so no write timeout.
	s.srv = &http.Server{Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.group = new(errgroup.Group)
	srv := s.srv
	s.group.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Dev server error", logfields.Error(err))
			return err
		}
		return nil
	})
	s.group.Go(func() error {
		if err := s.compiler.Watch(watchCtx); err != nil {
			slog.Error("Source watch stopped", logfields.Error(err))
			return err
		}
		return nil
	})

	slog.Info("Dev server listening", slog.String("address", s.addr))
	return nil
}

// Addr is the bound address, empty before Listen succeeds.
func (s *DevServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close shuts the HTTP server down, stops watching and disconnects
// LiveReload clients.
func (s *DevServer) Close(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel, group := s.srv, s.cancel, s.group
	s.srv, s.cancel, s.group = nil, nil, nil
	s.mu.Unlock()

	s.subs.Dispose()
	s.hub.Shutdown()
	if srv == nil {
		return nil
	}

	shutdownErr := srv.Shutdown(ctx)
	cancel()
	waitErr := group.Wait()
	if shutdownErr != nil {
		return fmt.Errorf("dev server shutdown: %w", shutdownErr)
	}
	return waitErr
}

func (s *DevServer) broadcast(stats toolchain.Stats) {
	hash := ""
	if h, ok := stats.(interface{ Hash() string }); ok {
		hash = h.Hash()
	}
	if hash == "" {
		hash = strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	s.hub.Broadcast(hash)
}

func (s *DevServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.outputRoot())))
	mux.Handle("/livereload", s.hub)
	mux.Handle("/livereload.js", livereload.ScriptHandler())
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *DevServer) outputRoot() string {
	out := s.cfg.OutputDir
	if out == "" {
		out = "."
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(s.cfg.Context, out)
}

func (s *DevServer) handleReport(w http.ResponseWriter, _ *http.Request) {
	snap := report.Snapshot{TakenAt: time.Now().UTC(), Empty: true, Items: []report.Node{}}
	if s.cfg.Report != nil {
		snap = report.Take(s.cfg.Report)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		slog.Error("failed to encode report", logfields.Error(err))
	}
}
