package sim

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/switchyard/ipc"
	"pkt.systems/switchyard/schema"
)

// Stats summarizes what a sim session did to the embedder surface.
type Stats struct {
	LoadsCompleted int
	AlertsShown    int
	KeysSeen       int
	Scrolls        int
	FaviconsSeen   int
	Cursor         schema.Cursor
}

type scrollKey struct {
	id    schema.PipelineID
	layer schema.LayerID
}

// Embedder is a recording stand-in for the surfaces a browser shell wires
// into the engine: compositing hints, window management, clipboard, and
// chrome. Every callback logs, and the counters feed the sim summary.
type Embedder struct {
	log pslog.Logger

	mu        sync.Mutex
	window    schema.ClientWindow
	clipboard string
	offsets   map[scrollKey]schema.Point
	titles    map[schema.PipelineID]string
	viewports map[schema.PipelineID]schema.ViewportConstraints
	stats     Stats
}

// NewEmbedder returns an Embedder presenting the given window geometry.
func NewEmbedder(window schema.ClientWindow, log pslog.Logger) *Embedder {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Embedder{
		log:       log,
		window:    window,
		offsets:   make(map[scrollKey]schema.Point),
		titles:    make(map[schema.PipelineID]string),
		viewports: make(map[schema.PipelineID]schema.ViewportConstraints),
	}
}

// Stats returns a copy of the session counters.
func (e *Embedder) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Title reports the last title published for a pipeline.
func (e *Embedder) Title(id schema.PipelineID) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	title, ok := e.titles[id]
	return title, ok
}

func (e *Embedder) SetCursor(cursor schema.Cursor) {
	e.mu.Lock()
	e.stats.Cursor = cursor
	e.mu.Unlock()
	e.log.Debug("sim cursor changed", "cursor", string(cursor))
}

func (e *Embedder) AnimationStateChanged(id schema.PipelineID, state schema.AnimationState) {
	e.log.Debug("sim animation state", "pipeline", uint64(id), "state", string(state))
}

func (e *Embedder) ScrollFragment(id schema.PipelineID, layer schema.LayerID, point schema.Point, smooth bool) {
	e.mu.Lock()
	e.offsets[scrollKey{id, layer}] = point
	e.stats.Scrolls++
	e.mu.Unlock()
	e.log.Debug("sim fragment scrolled", "pipeline", uint64(id), "layer", uint32(layer),
		"x", point.X, "y", point.Y, "smooth", smooth)
}

func (e *Embedder) ScrollOffset(id schema.PipelineID, layer schema.LayerID) schema.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offsets[scrollKey{id, layer}]
}

func (e *Embedder) TouchEventProcessed(result schema.EventResult) {
	e.log.Debug("sim touch processed", "result", string(result))
}

func (e *Embedder) KeyEvent(char string, key schema.Key, state schema.KeyState, modifiers schema.KeyModifiers) {
	e.mu.Lock()
	e.stats.KeysSeen++
	e.mu.Unlock()
	e.log.Debug("sim key fell through", "char", char, "key", string(key), "state", string(state),
		"modifiers", uint8(modifiers))
}

func (e *Embedder) ClientWindow() schema.ClientWindow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window
}

func (e *Embedder) MoveTo(point schema.WindowPoint) {
	e.mu.Lock()
	e.window.Origin = point
	e.mu.Unlock()
	e.log.Debug("sim window moved", "x", point.X, "y", point.Y)
}

func (e *Embedder) ResizeTo(size schema.WindowSize) {
	e.mu.Lock()
	e.window.Size = size
	e.mu.Unlock()
	e.log.Debug("sim window resized", "width", size.Width, "height", size.Height)
}

func (e *Embedder) Contents() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clipboard
}

func (e *Embedder) SetContents(contents string) {
	e.mu.Lock()
	e.clipboard = contents
	e.mu.Unlock()
	e.log.Debug("sim clipboard written", "bytes", len(contents))
}

func (e *Embedder) SetTitle(id schema.PipelineID, title *string) {
	e.mu.Lock()
	if title == nil {
		delete(e.titles, id)
	} else {
		e.titles[id] = *title
	}
	e.mu.Unlock()
	if title != nil {
		e.log.Info("sim title changed", "pipeline", uint64(id), "title", *title)
	}
}

func (e *Embedder) SetFavicon(id schema.PipelineID, url string) {
	e.mu.Lock()
	e.stats.FaviconsSeen++
	e.mu.Unlock()
	e.log.Debug("sim favicon changed", "pipeline", uint64(id), "url", url)
}

func (e *Embedder) NodeStatus(id schema.PipelineID, status *string) {
	if status == nil {
		e.log.Trace("sim status cleared", "pipeline", uint64(id))
		return
	}
	e.log.Trace("sim status", "pipeline", uint64(id), "status", *status)
}

func (e *Embedder) HeadParsed(id schema.PipelineID) {
	e.log.Debug("sim head parsed", "pipeline", uint64(id))
}

func (e *Embedder) DocumentLoaded(id schema.PipelineID) {
	e.log.Debug("sim document loaded", "pipeline", uint64(id))
}

func (e *Embedder) LoadComplete(id schema.PipelineID) {
	e.mu.Lock()
	e.stats.LoadsCompleted++
	e.mu.Unlock()
	e.log.Info("sim page loaded", "pipeline", uint64(id))
}

// Alert always shows and dismisses the prompt.
func (e *Embedder) Alert(id schema.PipelineID, message string, reply ipc.ReplyTo[bool]) {
	e.mu.Lock()
	e.stats.AlertsShown++
	e.mu.Unlock()
	e.log.Info("sim alert shown", "pipeline", uint64(id), "message", message)
	_ = reply.Resolve(true)
}

func (e *Embedder) BrowserEvent(parent schema.PipelineID, subpage schema.SubpageID, event schema.BrowserElementEvent) {
	e.log.Debug("sim browser event", "parent", uint64(parent), "subpage", uint32(subpage),
		"kind", string(event.Kind), "detail", event.Detail)
}

func (e *Embedder) ViewportConstrained(id schema.PipelineID, constraints schema.ViewportConstraints) {
	e.mu.Lock()
	e.viewports[id] = constraints
	e.mu.Unlock()
	e.log.Debug("sim viewport constrained", "pipeline", uint64(id),
		"width", constraints.Width, "height", constraints.Height)
}

// Viewport reports the last constraints received for a pipeline.
func (e *Embedder) Viewport(id schema.PipelineID) (schema.ViewportConstraints, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.viewports[id]
	return v, ok
}
