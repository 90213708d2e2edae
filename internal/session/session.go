package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/buildwatch/internal/diagnostics"
	"git.home.luguber.info/inful/buildwatch/internal/eventloop"
	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/host"
	"git.home.luguber.info/inful/buildwatch/internal/logfields"
	"git.home.luguber.info/inful/buildwatch/internal/metrics"
	"git.home.luguber.info/inful/buildwatch/internal/notify"
	"git.home.luguber.info/inful/buildwatch/internal/report"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain"
)

// Session is one run of the dev server, from start request to shutdown.
type Session struct {
	id    string
	root  string
	ctrl  *Controller
	out   host.Output
	model *report.Model
	state atomic.Int32

	mu         sync.RWMutex
	configPath string

	startF   *eventloop.Future[toolchain.DevServer]
	stopOnce sync.Once
	stopF    *eventloop.Future[struct{}]

	// Loop-owned.
	status       host.Status
	hooks        notify.Disposables
	requestedAt  time.Time
	runStartedAt time.Time
	log          *slog.Logger
}

func newSession(c *Controller, root string, out host.Output) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		root:   root,
		ctrl:   c,
		out:    out,
		model:  report.NewModel(),
		startF: eventloop.NewFuture[toolchain.DevServer](),
		log:    slog.Default().With(logfields.SessionID(id)),
	}
}

// ID uniquely identifies the session.
func (s *Session) ID() string { return s.id }

// Root is the project directory the session builds.
func (s *Session) Root() string { return s.root }

// Report is the session's build report.
func (s *Session) Report() *report.Model { return s.model }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.log.Debug("Session state changed", logfields.State(st.String()))
}

// ConfigPath is the build config file in use. It is only available once the
// session has started successfully.
func (s *Session) ConfigPath() (string, bool) {
	if !s.startF.Settled() {
		return "", false
	}
	if _, err := s.startF.Value(); err != nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configPath, s.configPath != ""
}

// WaitStarted blocks until the start sequence settles and returns its error.
func (s *Session) WaitStarted(ctx context.Context) error {
	_, err := s.startF.Wait(ctx)
	return err
}

// Stop shuts the session down. Every call returns the same future. Stop may
// be called before start has settled; shutdown then follows start's outcome.
// Stopping a session whose start failed completes without further work.
func (s *Session) Stop() *eventloop.Future[struct{}] {
	s.stopOnce.Do(func() {
		s.stopF = eventloop.NewFuture[struct{}]()
		s.startF.OnSettled(s.ctrl.loop, s.shutdown)
	})
	return s.stopF
}

// begin runs on the loop, a turn after Start returned.
func (s *Session) begin(started func(error)) {
	s.requestedAt = time.Now()
	s.setState(Starting)
	s.out.RevealOutput()
	s.status = s.out.NewStatus()

	server, bc, err := s.construct()
	if err != nil {
		s.failStart(ferrors.WrapError(err, ferrors.CategoryStartup, "could not start dev server").
			WithContext("root", s.root).
			Build(), started)
		return
	}

	s.out.AppendLine("about to listen...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.ctrl.listenTimeout)
		defer cancel()
		listenErr := server.Listen(ctx, bc.Port, bc.Host)
		if !s.ctrl.loop.Post(func() { s.listened(server, bc, listenErr, started) }) {
			s.closeServer(server)
			err := ferrors.StartupError("session loop closed during start").Build()
			s.setState(Failed)
			s.startF.Reject(err)
			started(err)
		}
	}()
}

// construct loads settings and the toolchain and installs the run hooks.
// Panics from toolchain code are returned as errors.
func (s *Session) construct() (server toolchain.DevServer, bc toolchain.BuildConfig, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while constructing dev server: %v", r)
		}
	}()

	cfg, err := s.ctrl.configure()
	if err != nil {
		return nil, bc, err
	}
	settings := cfg.Settings()
	configPath := filepath.Join(s.root, settings.ConfigFileName)
	s.report("Opening file "+configPath+"...", host.ToneNormal)

	tc, err := s.ctrl.loader.Load(s.root)
	if err != nil {
		return nil, bc, err
	}

	bc = toolchain.BuildConfig{
		ConfigPath: configPath,
		Context:    s.root,
		Port:       settings.Port,
		Host:       settings.Host,
		OutputDir:  cfg.Build.OutputDir,
		Args:       cfg.Build.Args,
		Debounce:   cfg.Build.Debounce,
		Ignore:     cfg.Watch.Ignore,
		Report:     s.model,
		Recorder:   s.ctrl.recorder,
	}
	compiler, err := tc.NewCompiler(bc)
	if err != nil {
		return nil, bc, err
	}

	loop := s.ctrl.loop
	s.hooks.Add(compiler.OnRunStarted(func() { loop.Post(s.runStarted) }))
	s.hooks.Add(compiler.OnRunFinished(func(st toolchain.Stats) { loop.Post(func() { s.runFinished(st) }) }))

	server, err = tc.NewDevServer(compiler, bc)
	if err != nil {
		return nil, bc, err
	}

	s.mu.Lock()
	s.configPath = configPath
	s.mu.Unlock()
	return server, bc, nil
}

func (s *Session) listened(server toolchain.DevServer, bc toolchain.BuildConfig, err error, started func(error)) {
	if err != nil {
		s.out.AppendLine("listen error!")
		go s.closeServer(server)
		if !ferrors.HasCategory(err, ferrors.CategoryListen) {
			err = ferrors.WrapError(err, ferrors.CategoryListen, "dev server failed to listen").Build()
		}
		s.failStart(err, started)
		return
	}

	s.out.AppendLine("listening!")
	s.setState(Running)
	s.ctrl.recorder.IncSessionStart(metrics.SessionStarted)
	s.ctrl.recorder.ObserveStartupDuration(time.Since(s.requestedAt))
	s.log.Info("Dev server started",
		logfields.Root(s.root),
		logfields.ConfigPath(bc.ConfigPath),
		logfields.Host(bc.Host),
		logfields.Port(bc.Port))
	s.startF.Resolve(server)
	started(nil)
}

func (s *Session) failStart(err error, started func(error)) {
	s.out.AppendLine(err.Error())
	s.hooks.Dispose()
	s.setState(Failed)
	s.ctrl.recorder.IncSessionStart(metrics.SessionFailed)
	s.log.Error("Dev server failed to start", logfields.Root(s.root), logfields.Error(err))
	s.startF.Reject(err)
	started(err)
}

// shutdown runs on the loop once start has settled.
func (s *Session) shutdown(server toolchain.DevServer, startErr error) {
	if startErr != nil {
		s.stopF.Resolve(struct{}{})
		return
	}
	s.setState(Stopping)
	go func() {
		s.closeServer(server)
		if !s.ctrl.loop.Post(s.stopped) {
			s.stopF.Resolve(struct{}{})
		}
	}()
}

func (s *Session) closeServer(server toolchain.DevServer) {
	ctx, cancel := context.WithTimeout(context.Background(), s.ctrl.shutdownTimeout)
	defer cancel()
	if err := server.Close(ctx); err != nil {
		s.log.Warn("Dev server did not shut down cleanly", logfields.Error(err))
	}
}

func (s *Session) stopped() {
	s.hooks.Dispose()
	if s.status != nil {
		s.status.Hide()
	}
	s.out.AppendLine("Stopped dev server.")
	s.setState(Idle)
	s.ctrl.recorder.IncSessionStop()
	s.log.Info("Dev server stopped")
	s.stopF.Resolve(struct{}{})
}

// live reports whether run hooks should still update the report.
func (s *Session) live() bool {
	st := s.State()
	return st == Starting || st == Running
}

func (s *Session) runStarted() {
	if !s.live() {
		return
	}
	s.runStartedAt = time.Now()
	s.report("Compiling...", host.ToneNormal)
	s.model.Clear()
	s.model.FireChange(nil)
}

func (s *Session) runFinished(stats toolchain.Stats) {
	if !s.live() {
		return
	}
	s.report(stats.String(), host.ToneNormal)

	records := diagnostics.NormalizeAll(stats.Errors(), stats.Warnings())
	s.model.Clear()
	for _, item := range diagnostics.BuildTree(records, stats.ShortenRequest) {
		s.model.AddItem(item)
	}
	s.model.FireChange(nil)

	errCount, warnCount := len(stats.Errors()), len(stats.Warnings())
	tone := host.ToneNormal
	if errCount != 0 {
		tone = host.ToneError
	}
	s.report(fmt.Sprintf("%d errors", errCount), tone)

	rec := s.ctrl.recorder
	if !s.runStartedAt.IsZero() {
		rec.ObserveBuildDuration(time.Since(s.runStartedAt))
	}
	rec.IncBuildOutcome(metrics.OutcomeFor(errCount, warnCount))
	rec.SetReportCounts(errCount, warnCount)
	s.log.Debug("Report updated", logfields.Errors(errCount), logfields.Warnings(warnCount))
}

// report writes text to the output log and the status item.
func (s *Session) report(text string, tone host.Tone) {
	s.out.AppendLine(text)
	if s.status != nil {
		s.status.Set(text, tone)
	}
}
