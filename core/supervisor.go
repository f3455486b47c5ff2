// Package core implements the pipeline supervisor: the single consumer of
// every script and layout channel, owner of the pipeline registry and
// session history, and router between pipelines and the embedder surfaces.
package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"pkt.systems/pslog"

	"pkt.systems/switchyard/internal/diag"
	"pkt.systems/switchyard/internal/logx"
	"pkt.systems/switchyard/ipc"
	"pkt.systems/switchyard/schema"
)

// ErrNotStarted indicates a command was issued before Start.
var ErrNotStarted = errors.New("supervisor not started")

const (
	originScript    = "script"
	originLayout    = "layout"
	actorSupervisor = "supervisor"
)

// event is one unit of work for the supervisor loop: a pumped message, a
// channel-closure notice, or an injected command.
type event struct {
	pid    schema.PipelineID
	origin string
	script schema.ScriptMsg
	layout schema.LayoutMsg
	closed bool
	cmd    command
}

type command interface{ isCommand() }

type loadResult struct {
	id  schema.PipelineID
	err error
}

type loadCommand struct {
	load schema.LoadData
	res  chan loadResult
}

type navigateCommand struct {
	iframe *schema.IFrameRef
	dir    schema.NavigationDirection
	res    chan error
}

type snapshotCommand struct {
	res chan Snapshot
}

type shutdownCommand struct{}

type exitTimeoutCommand struct{}

func (loadCommand) isCommand()        {}
func (navigateCommand) isCommand()    {}
func (snapshotCommand) isCommand()    {}
func (shutdownCommand) isCommand()    {}
func (exitTimeoutCommand) isCommand() {}

// Supervisor routes every protocol message through one loop goroutine.
// Registry and history mutations happen only on that goroutine, so
// per-channel ordering turns into a total order over observed effects.
type Supervisor struct {
	cfg  schema.EngineConfig
	deps Deps
	log  pslog.Logger
	reg  *registry

	inboxTx ipc.Sender[event]
	inboxRx ipc.Receiver[event]

	started atomic.Bool
	done    chan struct{}

	shuttingDown bool
	pending      mapset.Set[schema.PipelineID]
	exitTimer    *time.Timer
}

// New builds a supervisor. The config is normalized; nil dependency slots
// are filled with inert implementations, except Spawner, which is
// required.
func New(cfg schema.EngineConfig, deps Deps) (*Supervisor, error) {
	cfg, err := schema.NormalizeEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Spawner == nil {
		return nil, errors.New("pipeline spawner is required")
	}
	if deps.Paint == nil {
		deps.Paint = noopPaint{}
	}
	if deps.Compositor == nil {
		deps.Compositor = noopCompositor{}
	}
	if deps.Window == nil {
		deps.Window = noopWindowSystem{size: cfg.DefaultWindowSize}
	}
	if deps.Clipboard == nil {
		deps.Clipboard = noopClipboard{}
	}
	if deps.Chrome == nil {
		deps.Chrome = noopChrome{}
	}
	if deps.Viewport == nil {
		deps.Viewport = noopViewport{}
	}
	if deps.Diag == nil {
		deps.Diag = noopDiag{}
	}
	log := deps.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	tx, rx := ipc.New[event]()
	return &Supervisor{
		cfg:     cfg,
		deps:    deps,
		log:     log,
		reg:     newRegistry(),
		inboxTx: tx,
		inboxRx: rx,
		done:    make(chan struct{}),
	}, nil
}

// Start launches the loop goroutine. Cancelling ctx requests shutdown the
// same way Stop does.
func (s *Supervisor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("supervisor already started")
	}
	ctx = pslog.ContextWithLogger(ctx, s.log)
	go s.run(ctx)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.inboxTx.Send(event{cmd: shutdownCommand{}})
		case <-s.done:
		}
	}()
	s.log.Info("supervisor started",
		"shutdown_timeout", s.cfg.ShutdownTimeout,
		"gpu", s.cfg.GPUEnabled)
	return nil
}

// Wait blocks until the loop has stopped.
func (s *Supervisor) Wait() {
	<-s.done
}

// Stop requests engine-wide shutdown and waits for the drain to finish or
// ctx to expire. The drain itself is bounded by ShutdownTimeout.
func (s *Supervisor) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.started.Load() {
		return ErrNotStarted
	}
	_ = s.inboxTx.Send(event{cmd: shutdownCommand{}})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadURL navigates the top-level browsing context, spawning a fresh
// pipeline for the document. Returns the new pipeline's id.
func (s *Supervisor) LoadURL(ctx context.Context, load schema.LoadData) (schema.PipelineID, error) {
	if ctx == nil {
		return 0, errors.New("missing context")
	}
	res := make(chan loadResult, 1)
	if err := s.post(event{cmd: loadCommand{load: load, res: res}}); err != nil {
		return 0, err
	}
	select {
	case r := <-res:
		return r.id, r.err
	case <-s.done:
		return 0, schema.ErrShuttingDown
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Navigate traverses session history: the top-level context when iframe is
// nil, otherwise the named iframe slot.
func (s *Supervisor) Navigate(ctx context.Context, iframe *schema.IFrameRef, dir schema.NavigationDirection) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	res := make(chan error, 1)
	if err := s.post(event{cmd: navigateCommand{iframe: iframe, dir: dir, res: res}}); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-s.done:
		return schema.ErrShuttingDown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inject feeds a message into the loop as if it arrived from outside any
// pipeline. Used by the embedder for input events and window queries;
// messages that require pipeline attribution are dropped with a warn
// record.
func (s *Supervisor) Inject(ctx context.Context, msg schema.ScriptMsg) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	if msg == nil {
		return errors.New("missing message")
	}
	return s.post(event{origin: originScript, script: msg})
}

// Snapshot returns a copy of the registry state.
func (s *Supervisor) Snapshot(ctx context.Context) (Snapshot, error) {
	if ctx == nil {
		return Snapshot{}, errors.New("missing context")
	}
	res := make(chan Snapshot, 1)
	if err := s.post(event{cmd: snapshotCommand{res: res}}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-res:
		return snap, nil
	case <-s.done:
		return Snapshot{}, schema.ErrShuttingDown
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Supervisor) post(ev event) error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	select {
	case <-s.done:
		return schema.ErrShuttingDown
	default:
	}
	if err := s.inboxTx.Send(ev); err != nil {
		return schema.ErrShuttingDown
	}
	return nil
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)
	for {
		ev, err := s.inboxRx.Receive()
		if err != nil {
			s.log.Warn("supervisor inbox closed", "err", err)
			return
		}
		s.handle(ctx, ev)
		if s.shuttingDown && s.drained() {
			if s.exitTimer != nil {
				s.exitTimer.Stop()
			}
			s.log.Info("supervisor stopped")
			return
		}
	}
}

func (s *Supervisor) drained() bool {
	return s.pending == nil || s.pending.Cardinality() == 0
}

func (s *Supervisor) handle(ctx context.Context, ev event) {
	switch {
	case ev.cmd != nil:
		s.handleCommand(ctx, ev.cmd)
	case ev.closed:
		s.handleClosed(ev)
	case ev.script != nil:
		s.dispatchScript(ctx, ev.pid, ev.script)
	case ev.layout != nil:
		s.dispatchLayout(ev.pid, ev.layout)
	}
}

func (s *Supervisor) handleCommand(ctx context.Context, c command) {
	switch cmd := c.(type) {
	case loadCommand:
		id, err := s.loadTopLevel(ctx, cmd.load)
		cmd.res <- loadResult{id: id, err: err}
	case navigateCommand:
		cmd.res <- s.traverse(ctx, cmd.iframe, cmd.dir)
	case snapshotCommand:
		cmd.res <- s.reg.snapshot(s.shuttingDown)
	case shutdownCommand:
		s.beginShutdown()
	case exitTimeoutCommand:
		s.forceShutdown()
	}
}

// handleClosed reacts to a pump observing channel closure. Closure of a
// pipeline that was not asked to exit is a crash and produces an error
// record; either way the pipeline is torn down.
func (s *Supervisor) handleClosed(ev event) {
	p := s.reg.lookup(ev.pid)
	if p == nil {
		s.log.Trace("pipeline pump detached", "pipeline", uint64(ev.pid), "origin", ev.origin)
		return
	}
	if p.State != schema.PipelineExitRequested {
		s.record(ev.pid, ev.origin, schema.ErrorEntry("pipeline channel closed without exit request"))
	}
	s.teardown(p)
}

// spawnPipeline builds the four channel pairs for a new pipeline,
// registers it, hands the actor-side ends to the spawner, and starts the
// pump goroutines. On spawner failure the registration is rolled back.
func (s *Supervisor) spawnPipeline(ctx context.Context, id, parent schema.PipelineID, subpage schema.SubpageID, load schema.LoadData, sandboxed bool) (*pipeline, error) {
	if s.shuttingDown {
		return nil, schema.ErrShuttingDown
	}
	scriptTx, scriptRx := ipc.New[schema.ScriptMsg]()
	layoutTx, layoutRx := ipc.New[schema.LayoutMsg]()
	controlTx, controlRx := ipc.New[schema.ControlMsg]()
	layoutControlTx, layoutControlRx := ipc.New[schema.LayoutControlMsg]()

	p := newPipeline(id, parent, subpage, load, sandboxed)
	p.control = controlTx
	p.layoutControl = layoutControlTx
	p.scriptRx = scriptRx
	p.layoutRx = layoutRx

	if err := s.reg.register(p); err != nil {
		s.log.Warn("pipeline register failed", "pipeline", uint64(id), "err", err)
		closePipelineEnds(p)
		return nil, err
	}
	spec := SpawnSpec{
		ID:            id,
		Parent:        parent,
		Subpage:       subpage,
		Load:          load,
		Sandboxed:     sandboxed,
		Script:        scriptTx,
		Layout:        layoutTx,
		Control:       controlRx,
		LayoutControl: layoutControlRx,
	}
	actorCtx := logx.ContextWithPipelineLogger(ctx, s.log.With("pipeline", uint64(id)), id)
	if err := s.deps.Spawner.Spawn(actorCtx, spec); err != nil {
		s.log.Warn("pipeline spawn failed", "pipeline", uint64(id), "url", load.URL, "err", err)
		s.reg.unregister(id)
		closePipelineEnds(p)
		return nil, err
	}
	go s.pumpScript(id, scriptRx)
	go s.pumpLayout(id, layoutRx)
	s.log.Info("pipeline spawned",
		"pipeline", uint64(id),
		"parent", uint64(parent),
		"url", load.URL)
	return p, nil
}

func closePipelineEnds(p *pipeline) {
	_ = p.control.Close()
	_ = p.layoutControl.Close()
	_ = p.scriptRx.Close()
	_ = p.layoutRx.Close()
}

func (s *Supervisor) pumpScript(id schema.PipelineID, rx ipc.Receiver[schema.ScriptMsg]) {
	for {
		msg, err := rx.Receive()
		if err != nil {
			_ = s.inboxTx.Send(event{pid: id, origin: originScript, closed: true})
			return
		}
		if err := s.inboxTx.Send(event{pid: id, origin: originScript, script: msg}); err != nil {
			return
		}
	}
}

func (s *Supervisor) pumpLayout(id schema.PipelineID, rx ipc.Receiver[schema.LayoutMsg]) {
	for {
		msg, err := rx.Receive()
		if err != nil {
			_ = s.inboxTx.Send(event{pid: id, origin: originLayout, closed: true})
			return
		}
		if err := s.inboxTx.Send(event{pid: id, origin: originLayout, layout: msg}); err != nil {
			return
		}
	}
}

// requestExit asks both actors of a pipeline to shut down. The pipeline
// stays registered until it reports PipelineExited or its channels close.
func (s *Supervisor) requestExit(p *pipeline) {
	if p.State == schema.PipelineExitRequested || p.State == schema.PipelineGone {
		return
	}
	p.transition(schema.PipelineExitRequested)
	_ = p.control.Send(schema.ExitPipeline{})
	_ = p.layoutControl.Send(schema.ExitNow{})
	s.log.Debug("pipeline exit requested", "pipeline", uint64(p.ID))
}

// teardown removes a pipeline from the registry and releases everything
// still referencing it: channel ends, paint actors, pending removal acks,
// its iframe children, the parent's child slot, focus, and the shutdown
// drain set. Idempotent.
func (s *Supervisor) teardown(p *pipeline) {
	if p.State == schema.PipelineGone {
		return
	}
	p.State = schema.PipelineGone

	closePipelineEnds(p)
	for _, canvas := range p.canvases {
		_ = canvas.Close()
	}
	p.canvases = nil
	for _, ack := range p.removeAcks {
		_ = ack.Resolve(schema.Ack{})
	}
	p.removeAcks = nil

	// Children go down with their parent; their slots die with them.
	for _, subpage := range p.children.ToSlice() {
		childKey := frameKey{parent: p.ID, subpage: subpage}
		cf := s.reg.slot(childKey)
		if cf == nil {
			continue
		}
		if child := s.reg.lookup(cf.current); child != nil {
			child.removeSlot = true
			s.requestExit(child)
		} else if cf.current == 0 {
			s.reg.dropSlot(childKey)
		}
	}

	key := p.frameKey()
	f := s.reg.slot(key)
	replaced := f != nil && f.current != 0 && f.current != p.ID
	if f != nil && f.current == p.ID {
		f.current = 0
		if p.removeSlot {
			s.reg.dropSlot(key)
		}
	}
	if p.Parent != 0 {
		if parent := s.reg.lookup(p.Parent); parent != nil {
			// A replacement already claimed the subpage; keep it mapped.
			if !replaced {
				parent.children.Remove(p.Subpage)
			}
			_ = parent.control.Send(schema.IFrameLoadEvent{Subpage: p.Subpage})
		}
	}
	s.reg.unregister(p.ID)
	if s.pending != nil {
		s.pending.Remove(p.ID)
	}
	s.log.Info("pipeline exited", "pipeline", uint64(p.ID))
}

// beginShutdown broadcasts exit to every registered pipeline and arms the
// drain timer. Further registrations and commands are refused.
func (s *Supervisor) beginShutdown() {
	if s.shuttingDown {
		return
	}
	s.shuttingDown = true
	s.pending = mapset.NewThreadUnsafeSet[schema.PipelineID]()
	for id, p := range s.reg.pipelines {
		s.pending.Add(id)
		s.requestExit(p)
	}
	s.log.Info("supervisor draining", "pipelines", s.pending.Cardinality())
	if s.pending.Cardinality() > 0 {
		s.exitTimer = time.AfterFunc(s.cfg.ShutdownTimeout, func() {
			_ = s.inboxTx.Send(event{cmd: exitTimeoutCommand{}})
		})
	}
}

// forceShutdown drops every pipeline still pending after the drain timer
// fired.
func (s *Supervisor) forceShutdown() {
	if !s.shuttingDown || s.pending == nil {
		return
	}
	for _, id := range s.pending.ToSlice() {
		p := s.reg.lookup(id)
		if p == nil {
			s.pending.Remove(id)
			continue
		}
		s.log.Warn("pipeline exit forced", "pipeline", uint64(id))
		s.teardown(p)
	}
}

// record forwards an attributed log entry to the diagnostics sink. The
// sink owns emission, retention, and fanout; delivery never fails the
// supervisor loop.
func (s *Supervisor) record(id schema.PipelineID, actor string, entry schema.LogEntry) {
	s.deps.Diag.OnLogEntry(diag.Record{Pipeline: id, Actor: actor, Entry: entry})
}
