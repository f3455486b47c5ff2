// Package switchyard embeds a multi-actor rendering engine in a single Go
// process: script and layout actors talk to a supervising loop over typed
// channels, and the embedder drives navigation, input, and shutdown
// through the Engine.
package switchyard

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/switchyard/core"
	"pkt.systems/switchyard/internal/diag"
	"pkt.systems/switchyard/internal/sim"
	"pkt.systems/switchyard/internal/statusapi"
	"pkt.systems/switchyard/schema"
)

// Engine runs the pipeline supervisor and its attendant services.
type Engine interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error

	// LoadURL navigates the top-level browsing context and returns the
	// new pipeline's id.
	LoadURL(ctx context.Context, load schema.LoadData) (schema.PipelineID, error)
	// Navigate traverses session history: the top-level context when
	// iframe is nil, otherwise the named iframe slot.
	Navigate(ctx context.Context, iframe *schema.IFrameRef, dir schema.NavigationDirection) error
	// InjectInput feeds a compositor-origin message to the supervisor.
	InjectInput(ctx context.Context, msg schema.ScriptMsg) error
	// Snapshot returns a copy of the registry state.
	Snapshot(ctx context.Context) (core.Snapshot, error)
	// Shutdown drains every pipeline and stops the engine.
	Shutdown(ctx context.Context) error
}

// Deps captures the embedder surfaces an engine is built around. Spawner
// is required; nil surfaces fall back to inert implementations.
type Deps struct {
	Spawner    core.PipelineSpawner
	Compositor core.Compositor
	Window     core.WindowSystem
	Clipboard  core.Clipboard
	Chrome     core.Chrome
	Viewport   core.ViewportConsumer
	Logger     pslog.Logger
}

// Option toggles engine components.
type Option func(*engineOptions)

type engineOptions struct {
	paint      core.PaintProvider
	sinks      []diag.Sink
	statusAddr string
}

// WithPaintProvider replaces the canvas and WebGL provider. The default
// provider is the sim one, driven by the config's GPU settings.
func WithPaintProvider(p core.PaintProvider) Option {
	return func(o *engineOptions) { o.paint = p }
}

// WithLogSink registers an extra consumer for attributed diagnostic
// records, alongside the engine's own aggregator.
func WithLogSink(sink diag.Sink) Option {
	return func(o *engineOptions) { o.sinks = append(o.sinks, sink) }
}

// WithStatusAPI serves the status endpoints on addr while the engine
// runs.
func WithStatusAPI(addr string) Option {
	return func(o *engineOptions) { o.statusAddr = addr }
}

// New builds an engine from a normalized config and the embedder
// surfaces.
func New(cfg schema.EngineConfig, deps Deps, opts ...Option) (Engine, error) {
	options := engineOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	cfg, err := schema.NormalizeEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Spawner == nil {
		return nil, errors.New("pipeline spawner is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	agg := diag.New(cfg.DiagnosticsRing, logger)
	var sink diag.Sink = agg
	if len(options.sinks) > 0 {
		sinks := make([]diag.Sink, 0, len(options.sinks)+1)
		sinks = append(sinks, agg)
		sinks = append(sinks, options.sinks...)
		sink = logFanout{sinks: sinks}
	}

	paint := options.paint
	if paint == nil {
		paint = sim.NewProvider(cfg, logger)
	}

	sup, err := core.New(cfg, core.Deps{
		Spawner:    deps.Spawner,
		Paint:      paint,
		Compositor: deps.Compositor,
		Window:     deps.Window,
		Clipboard:  deps.Clipboard,
		Chrome:     deps.Chrome,
		Viewport:   deps.Viewport,
		Diag:       sink,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &engine{
		cfg:        cfg,
		sup:        sup,
		agg:        agg,
		logger:     logger,
		statusAddr: options.statusAddr,
	}, nil
}

type engine struct {
	cfg        schema.EngineConfig
	sup        *core.Supervisor
	agg        *diag.Aggregator
	logger     pslog.Logger
	statusAddr string

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (e *engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		e.logger.Warn("engine start rejected", "reason", "already started")
		return errors.New("engine already started")
	}
	e.ctx, e.cancel = context.WithCancel(pslog.ContextWithLogger(ctx, e.logger))
	e.errCh = make(chan error, 1)
	e.started = true
	e.mu.Unlock()

	if e.cfg.DiagnosticsDir != "" {
		if err := e.agg.AttachFile(filepath.Join(e.cfg.DiagnosticsDir, "diagnostics.jsonl")); err != nil {
			e.cancel()
			return err
		}
	}
	if err := e.sup.Start(e.ctx); err != nil {
		e.cancel()
		return err
	}
	e.logger.Info("engine started",
		"gpu", e.cfg.GPUEnabled,
		"diagnostics_ring", e.cfg.DiagnosticsRing,
		"status_addr", e.statusAddr)
	if e.statusAddr != "" {
		status := statusapi.NewServer(e, e.agg)
		go func() {
			if err := statusapi.ListenAndServe(e.ctx, e.statusAddr, status.Handler()); err != nil {
				e.logger.Error("status api failed", "err", err)
				e.errCh <- err
			}
		}()
	}
	return nil
}

func (e *engine) Wait() error {
	e.mu.Lock()
	ctx := e.ctx
	errCh := e.errCh
	started := e.started
	e.mu.Unlock()
	if !started {
		return errors.New("engine not started")
	}

	select {
	case <-ctx.Done():
		e.sup.Wait()
		return nil
	case err := <-errCh:
		if err != nil {
			e.logger.Error("engine stopped", "err", err)
			_ = e.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (e *engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	cancel := e.cancel
	started := e.started
	e.mu.Unlock()
	if !started {
		return nil
	}
	log := e.logger
	log.Info("engine stop requested")
	err := e.sup.Stop(ctx)
	if err != nil {
		log.Warn("engine drain incomplete", "err", err)
	}
	if e.cfg.DiagnosticsDir != "" {
		path := filepath.Join(e.cfg.DiagnosticsDir, "diagnostics.json")
		if exportErr := e.agg.Export(path); exportErr != nil {
			log.Warn("diagnostics export failed", "err", exportErr)
		} else {
			log.Info("diagnostics exported", "path", path)
		}
	}
	_ = e.agg.Close()
	if cancel != nil {
		cancel()
	}
	if err != nil {
		return err
	}
	log.Info("engine stopped")
	return nil
}

func (e *engine) Shutdown(ctx context.Context) error {
	return e.Stop(ctx)
}

func (e *engine) LoadURL(ctx context.Context, load schema.LoadData) (schema.PipelineID, error) {
	return e.sup.LoadURL(ctx, load)
}

func (e *engine) Navigate(ctx context.Context, iframe *schema.IFrameRef, dir schema.NavigationDirection) error {
	return e.sup.Navigate(ctx, iframe, dir)
}

func (e *engine) InjectInput(ctx context.Context, msg schema.ScriptMsg) error {
	return e.sup.Inject(ctx, msg)
}

func (e *engine) Snapshot(ctx context.Context) (core.Snapshot, error) {
	return e.sup.Snapshot(ctx)
}
