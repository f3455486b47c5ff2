package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/switchyard/core"
	"pkt.systems/switchyard/internal/sim"
	"pkt.systems/switchyard/schema"
)

// Driver is the engine surface the runner drives; the root package's
// Engine satisfies it.
type Driver interface {
	LoadURL(ctx context.Context, load schema.LoadData) (schema.PipelineID, error)
	Navigate(ctx context.Context, iframe *schema.IFrameRef, dir schema.NavigationDirection) error
	InjectInput(ctx context.Context, msg schema.ScriptMsg) error
	Snapshot(ctx context.Context) (core.Snapshot, error)
}

// Runner executes scenario steps against a running engine whose pipelines
// are animated by sim actors. It tracks the current root pipeline and the
// iframe children it created so later steps can address them.
type Runner struct {
	driver  Driver
	spawner *sim.Spawner
	log     pslog.Logger

	root     *sim.Actor
	children map[uint32]schema.PipelineID
}

// NewRunner binds a runner to the engine and the spawner animating it.
func NewRunner(driver Driver, spawner *sim.Spawner, log pslog.Logger) *Runner {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Runner{
		driver:   driver,
		spawner:  spawner,
		log:      log,
		children: make(map[uint32]schema.PipelineID),
	}
}

// Run drives every step in order. The engine keeps running afterwards;
// shutting it down is the caller's business.
func (r *Runner) Run(ctx context.Context, sc Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	r.log.Info("scenario started", "name", sc.Name, "steps", len(sc.Steps))
	for i, step := range sc.Steps {
		if err := r.step(ctx, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		r.log.Debug("scenario step done", "step", i+1, "action", step.Action)
	}
	r.log.Info("scenario finished", "name", sc.Name)
	return nil
}

func (r *Runner) step(ctx context.Context, st Step) error {
	switch st.Action {
	case ActionLoad:
		return r.load(ctx, st)
	case ActionIFrame:
		return r.iframe(ctx, st)
	case ActionCanvas:
		return r.canvas(st)
	case ActionWebGL:
		return r.webgl(st)
	case ActionAlert:
		return r.alert(st)
	case ActionKey:
		return r.key(ctx, st)
	case ActionHide:
		return r.setVisible(ctx, false)
	case ActionShow:
		return r.setVisible(ctx, true)
	case ActionScriptLoad:
		return r.scriptLoad(ctx, st)
	case ActionBack:
		return r.traverse(ctx, schema.NavigateBack)
	case ActionForward:
		return r.traverse(ctx, schema.NavigateForward)
	case ActionRemove:
		return r.remove(st)
	case ActionCrash:
		return r.crash(ctx, st)
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
}

func (r *Runner) load(ctx context.Context, st Step) error {
	norm, err := schema.NormalizeLoadData(schema.LoadData{URL: st.URL})
	if err != nil {
		return err
	}
	r.spawner.BehaviorFor(norm.URL, sim.Behavior{Title: st.Title, Favicon: st.Favicon})
	id, err := r.driver.LoadURL(ctx, norm)
	if err != nil {
		return err
	}
	actor, err := r.awaitActor(ctx, id)
	if err != nil {
		return err
	}
	r.root = actor
	return nil
}

func (r *Runner) iframe(ctx context.Context, st Step) error {
	root, err := r.current()
	if err != nil {
		return err
	}
	norm, err := schema.NormalizeLoadData(schema.LoadData{URL: st.URL})
	if err != nil {
		return err
	}
	if st.Title != "" || st.Favicon != "" {
		r.spawner.BehaviorFor(norm.URL, sim.Behavior{Title: st.Title, Favicon: st.Favicon})
	}
	child, err := root.LoadIFrame(schema.SubpageID(st.Subpage), norm.URL, st.Sandboxed)
	if err != nil {
		return err
	}
	if _, err := r.awaitActor(ctx, child); err != nil {
		return err
	}
	r.children[st.Subpage] = child
	return nil
}

func (r *Runner) canvas(st Step) error {
	root, err := r.current()
	if err != nil {
		return err
	}
	canvas, err := root.CreateCanvas(schema.CanvasSize{Width: st.Width, Height: st.Height})
	if err != nil {
		return fmt.Errorf("create canvas: %w", err)
	}
	fill := schema.Rect{Width: float32(st.Width), Height: float32(st.Height)}
	if err := canvas.Send(schema.FillRect{Rect: fill}); err != nil {
		return err
	}
	return canvas.Send(schema.CloseCanvas{})
}

func (r *Runner) webgl(st Step) error {
	root, err := r.current()
	if err != nil {
		return err
	}
	size := schema.CanvasSize{Width: st.Width, Height: st.Height}
	result, err := root.CreateWebGL(size, schema.GLContextAttributes{Antialias: true})
	if err != nil {
		return fmt.Errorf("create webgl: %w", err)
	}
	if result.Error != "" {
		r.log.Info("scenario webgl denied", "err", result.Error)
		return nil
	}
	r.log.Info("scenario webgl created", "max_texture_size", result.Limits.MaxTextureSize)
	return result.Canvas.Send(schema.CloseCanvas{})
}

func (r *Runner) alert(st Step) error {
	root, err := r.current()
	if err != nil {
		return err
	}
	shown, err := root.Alert(st.Message)
	if err != nil {
		return fmt.Errorf("alert: %w", err)
	}
	r.log.Info("scenario alert", "message", st.Message, "shown", shown)
	return nil
}

func (r *Runner) key(ctx context.Context, st Step) error {
	key := schema.Key(st.Char)
	press := schema.SendKeyEvent{Char: st.Char, Key: key, State: schema.KeyPressed}
	if err := r.driver.InjectInput(ctx, press); err != nil {
		return err
	}
	release := schema.SendKeyEvent{Char: st.Char, Key: key, State: schema.KeyReleased}
	return r.driver.InjectInput(ctx, release)
}

func (r *Runner) setVisible(ctx context.Context, visible bool) error {
	root, err := r.current()
	if err != nil {
		return err
	}
	return r.driver.InjectInput(ctx, schema.SetVisible{Pipeline: root.ID(), Visible: visible})
}

func (r *Runner) scriptLoad(ctx context.Context, st Step) error {
	root, err := r.current()
	if err != nil {
		return err
	}
	old := root.ID()
	if err := root.LoadURL(st.URL); err != nil {
		return err
	}
	return r.adoptRoot(ctx, old)
}

func (r *Runner) traverse(ctx context.Context, dir schema.NavigationDirection) error {
	var old schema.PipelineID
	if r.root != nil {
		old = r.root.ID()
	}
	if err := r.driver.Navigate(ctx, nil, dir); err != nil {
		return err
	}
	return r.adoptRoot(ctx, old)
}

func (r *Runner) remove(st Step) error {
	root, err := r.current()
	if err != nil {
		return err
	}
	child, ok := r.children[st.Subpage]
	if !ok {
		return fmt.Errorf("no iframe registered on subpage %d", st.Subpage)
	}
	if err := root.RemoveIFrame(child); err != nil {
		return fmt.Errorf("remove iframe: %w", err)
	}
	delete(r.children, st.Subpage)
	return nil
}

func (r *Runner) crash(ctx context.Context, st Step) error {
	target := r.root
	if st.Subpage != 0 {
		id, ok := r.children[st.Subpage]
		if !ok {
			return fmt.Errorf("no iframe registered on subpage %d", st.Subpage)
		}
		target = r.spawner.Actor(id)
	}
	if target == nil {
		return errors.New("no crash target")
	}
	id := target.ID()
	target.Crash(st.Reason)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := r.driver.Snapshot(ctx)
		if err != nil {
			return err
		}
		if !snapshotHas(snap, id) {
			if r.root != nil && r.root.ID() == id {
				r.root = nil
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
	return fmt.Errorf("pipeline %d still registered after crash", id)
}

func (r *Runner) current() (*sim.Actor, error) {
	if r.root == nil {
		return nil, errors.New("no page loaded yet")
	}
	return r.root, nil
}

// awaitActor polls for the actor behind a pipeline the supervisor spawns
// asynchronously.
func (r *Runner) awaitActor(ctx context.Context, id schema.PipelineID) (*sim.Actor, error) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if actor := r.spawner.Actor(id); actor != nil {
			return actor, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("pipeline %d actor never came up", id)
}

// adoptRoot waits for the root slot to move off old and rebinds to the
// actor behind the replacement.
func (r *Runner) adoptRoot(ctx context.Context, old schema.PipelineID) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := r.driver.Snapshot(ctx)
		if err != nil {
			return err
		}
		if snap.Root != 0 && snap.Root != old {
			actor, err := r.awaitActor(ctx, snap.Root)
			if err != nil {
				return err
			}
			r.root = actor
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
	return errors.New("root pipeline never replaced")
}

func snapshotHas(snap core.Snapshot, id schema.PipelineID) bool {
	for _, p := range snap.Pipelines {
		if p.ID == id {
			return true
		}
	}
	return false
}
