// Package sim provides in-process stand-ins for everything outside the
// supervisor: script and layout actors behind spawned pipelines, a paint
// provider gated on configured GPU availability, and an embedder surface
// that records what a real browser shell would display. The supervisor
// cannot tell them from the real thing, which makes them the backbone of
// the sim command and the end-to-end tests.
package sim

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/switchyard/core"
	"pkt.systems/switchyard/internal/logx"
	"pkt.systems/switchyard/schema"
)

// Behavior configures what a spawned script actor does of its own accord.
// Behaviors are armed per load URL before the load is requested.
type Behavior struct {
	// Title is published after the document activates. Empty derives one
	// from the load URL.
	Title string
	// Favicon is published during the load sequence when non-empty.
	Favicon string
	// PanicReason makes the actor panic right after its load sequence,
	// which exercises the crash reporting path end to end.
	PanicReason string
	// Viewport, when set, is reported once by the layout actor.
	Viewport *schema.ViewportConstraints
	// Quiet suppresses the load sequence; the pipeline stays registered
	// until driven from outside.
	Quiet bool
}

// Spawner launches a script and a layout actor goroutine for every
// pipeline the supervisor registers. It implements core.PipelineSpawner.
type Spawner struct {
	log pslog.Logger

	mu     sync.Mutex
	actors map[schema.PipelineID]*Actor
	byURL  map[string]Behavior
}

// NewSpawner returns a Spawner logging through log, or a context default
// when log is nil.
func NewSpawner(log pslog.Logger) *Spawner {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Spawner{
		log:    log,
		actors: make(map[schema.PipelineID]*Actor),
		byURL:  make(map[string]Behavior),
	}
}

// BehaviorFor arms the behavior used by pipelines that load url. The URL
// is matched after load normalization.
func (s *Spawner) BehaviorFor(url string, b Behavior) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byURL[url] = b
}

// Spawn brings up the actor pair for spec and returns once both
// goroutines are running.
func (s *Spawner) Spawn(ctx context.Context, spec core.SpawnSpec) error {
	s.mu.Lock()
	behavior := s.byURL[spec.Load.URL]
	actor := &Actor{
		id:       spec.ID,
		load:     spec.Load,
		script:   spec.Script,
		control:  spec.Control,
		behavior: behavior,
		spawner:  s,
		log:      logx.WithPipelineActor(ctx, spec.ID, "script"),
	}
	s.actors[spec.ID] = actor
	s.mu.Unlock()

	layout := &layoutActor{
		id:       spec.ID,
		tx:       spec.Layout,
		control:  spec.LayoutControl,
		viewport: behavior.Viewport,
		log:      logx.WithPipelineActor(ctx, spec.ID, "layout"),
	}
	go actor.run()
	go layout.run()
	s.log.Debug("sim actors started", "pipeline", uint64(spec.ID), "url", spec.Load.URL)
	return nil
}

// Actor returns the live script actor for id, or nil once it has shut
// down.
func (s *Spawner) Actor(id schema.PipelineID) *Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actors[id]
}

// Live reports how many script actors are still running.
func (s *Spawner) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actors)
}

func (s *Spawner) forget(id schema.PipelineID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.actors, id)
}
