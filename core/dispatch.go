package core

import (
	"context"
	"fmt"

	"pkt.systems/switchyard/internal/logx"
	"pkt.systems/switchyard/schema"
)

// dispatchScript routes one script-direction message. from is the
// pipeline attributed by the channel the message arrived on, zero for
// embedder injections. Messages that cannot be routed are dropped with a
// warn record; the emitting pipeline is never failed.
func (s *Supervisor) dispatchScript(ctx context.Context, from schema.PipelineID, msg schema.ScriptMsg) {
	switch m := msg.(type) {
	case schema.ChangeRunningAnimationsState:
		s.animationsChanged(m.Pipeline, m.State)
	case schema.CreateCanvasPaintThread:
		s.createCanvas(from, m)
	case schema.CreateWebGLPaintThread:
		s.createWebGL(from, m)
	case schema.DOMLoad:
		if s.pipelineFor(m.Pipeline, schema.KindDOMLoad) != nil {
			s.deps.Chrome.DocumentLoaded(m.Pipeline)
		}
	case schema.Focus:
		if s.pipelineFor(m.Pipeline, schema.KindFocus) != nil {
			s.reg.focused = m.Pipeline
			s.log.Debug("pipeline focused", "pipeline", uint64(m.Pipeline))
		}
	case schema.ForwardMouseButtonEvent:
		if p := s.pipelineFor(m.Pipeline, schema.KindForwardMouseButtonEvent); p != nil {
			_ = p.control.Send(schema.MouseButtonEvent{Type: m.Type, Button: m.Button, Point: m.Point})
		}
	case schema.ForwardMouseMoveEvent:
		if p := s.pipelineFor(m.Pipeline, schema.KindForwardMouseMoveEvent); p != nil {
			_ = p.control.Send(schema.MouseMoveEvent{Point: m.Point})
		}
	case schema.GetClipboardContents:
		defer m.Reply.Abandon()
		_ = m.Reply.Resolve(s.deps.Clipboard.Contents())
	case schema.HeadParsed:
		if from == 0 {
			s.drop(0, schema.KindHeadParsed, "no pipeline attribution")
			return
		}
		if s.pipelineFor(from, schema.KindHeadParsed) != nil {
			s.deps.Chrome.HeadParsed(from)
		}
	case schema.LoadComplete:
		if s.pipelineFor(m.Pipeline, schema.KindLoadComplete) != nil {
			s.deps.Chrome.LoadComplete(m.Pipeline)
		}
	case schema.LoadURL:
		s.loadInContext(ctx, m)
	case schema.BrowserEvent:
		if p := s.pipelineFor(m.Parent, schema.KindBrowserEvent); p != nil {
			_ = p.control.Send(schema.BrowserEventFired{Subpage: m.Subpage, Event: m.Event})
			s.deps.Chrome.BrowserEvent(m.Parent, m.Subpage, m.Event)
		}
	case schema.Navigate:
		if err := s.traverse(ctx, m.IFrame, m.Direction); err != nil {
			s.drop(from, schema.KindNavigate, err.Error())
		}
	case schema.NewFavicon:
		if from == 0 {
			s.drop(0, schema.KindNewFavicon, "no pipeline attribution")
			return
		}
		if s.pipelineFor(from, schema.KindNewFavicon) != nil {
			s.deps.Chrome.SetFavicon(from, m.URL)
		}
	case schema.NodeStatus:
		if from == 0 {
			s.drop(0, schema.KindNodeStatus, "no pipeline attribution")
			return
		}
		if s.pipelineFor(from, schema.KindNodeStatus) != nil {
			s.deps.Chrome.NodeStatus(from, m.Status)
		}
	case schema.RemoveIFrame:
		s.removeIFrame(m)
	case schema.SetVisible:
		if p := s.pipelineFor(m.Pipeline, schema.KindSetVisible); p != nil {
			_ = p.control.Send(schema.VisibilityChange{Visible: m.Visible})
		}
	case schema.VisibilityChangeComplete:
		if p := s.pipelineFor(m.Pipeline, schema.KindVisibilityChangeComplete); p != nil {
			p.Visible = m.Visible
			if m.Visible {
				p.transition(schema.PipelineActive)
			} else {
				p.transition(schema.PipelineHidden)
			}
		}
	case schema.ScriptLoadedURLInIFrame:
		s.loadIFrame(ctx, from, m.Info)
	case schema.SetClipboardContents:
		s.deps.Clipboard.SetContents(m.Contents)
	case schema.ActivateDocument:
		if p := s.pipelineFor(m.Pipeline, schema.KindActivateDocument); p != nil {
			p.transition(schema.PipelineActive)
		}
	case schema.SetDocumentState:
		if p := s.pipelineFor(m.Pipeline, schema.KindSetDocumentState); p != nil {
			p.Document = m.State
		}
	case schema.SetFinalURL:
		if p := s.pipelineFor(m.Pipeline, schema.KindSetFinalURL); p != nil {
			p.URL = m.URL
		}
	case schema.Alert:
		if s.pipelineFor(m.Pipeline, schema.KindAlert) == nil {
			_ = m.Reply.Abandon()
			return
		}
		s.deps.Chrome.Alert(m.Pipeline, m.Message, m.Reply)
	case schema.ScrollFragmentPoint:
		if s.pipelineFor(m.Pipeline, schema.KindScrollFragmentPoint) != nil {
			s.deps.Compositor.ScrollFragment(m.Pipeline, m.Layer, m.Point, m.Smooth)
		}
	case schema.SetTitle:
		if p := s.pipelineFor(m.Pipeline, schema.KindSetTitle); p != nil {
			p.Title = m.Title
			s.deps.Chrome.SetTitle(m.Pipeline, m.Title)
		}
	case schema.SendKeyEvent:
		s.routeKeyEvent(from, m)
	case schema.GetClientWindow:
		defer m.Reply.Abandon()
		_ = m.Reply.Resolve(s.deps.Window.ClientWindow())
	case schema.MoveTo:
		s.deps.Window.MoveTo(m.Point)
	case schema.ResizeTo:
		s.deps.Window.ResizeTo(m.Size)
	case schema.TouchEventProcessed:
		s.deps.Compositor.TouchEventProcessed(m.Result)
	case schema.GetScrollOffset:
		defer m.Reply.Abandon()
		if s.pipelineFor(m.Pipeline, schema.KindGetScrollOffset) == nil {
			return
		}
		_ = m.Reply.Resolve(s.deps.Compositor.ScrollOffset(m.Pipeline, m.Layer))
	case schema.ReportLog:
		pid := from
		if m.Pipeline != nil {
			pid = *m.Pipeline
		}
		s.record(pid, m.Actor, m.Entry)
	case schema.PipelineExited:
		s.pipelineExited(m.Pipeline)
	case schema.Exit:
		s.beginShutdown()
	default:
		s.drop(from, msg.ScriptKind(), "unhandled message")
	}
}

// dispatchLayout routes one layout-direction message.
func (s *Supervisor) dispatchLayout(from schema.PipelineID, msg schema.LayoutMsg) {
	switch m := msg.(type) {
	case schema.ChangeRunningAnimationsState:
		s.animationsChanged(m.Pipeline, m.State)
	case schema.SetCursor:
		s.deps.Compositor.SetCursor(m.Cursor)
	case schema.ViewportConstrained:
		if s.lookupLayout(m.Pipeline, schema.LayoutKindViewportConstrained) != nil {
			s.deps.Viewport.ViewportConstrained(m.Pipeline, m.Constraints)
		}
	default:
		s.dropKind(from, string(msg.LayoutKind()), "unhandled message")
	}
}

// pipelineFor resolves a pipeline referenced by a script message, dropping
// the message with a warn record when the id is not registered.
func (s *Supervisor) pipelineFor(id schema.PipelineID, kind schema.ScriptKind) *pipeline {
	p := s.reg.lookup(id)
	if p == nil {
		s.drop(id, kind, schema.ErrPipelineNotFound.Error())
	}
	return p
}

func (s *Supervisor) lookupLayout(id schema.PipelineID, kind schema.LayoutKind) *pipeline {
	p := s.reg.lookup(id)
	if p == nil {
		s.dropKind(id, string(kind), schema.ErrPipelineNotFound.Error())
	}
	return p
}

func (s *Supervisor) drop(id schema.PipelineID, kind schema.ScriptKind, reason string) {
	s.dropKind(id, string(kind), reason)
}

func (s *Supervisor) dropKind(id schema.PipelineID, kind, reason string) {
	s.record(id, actorSupervisor, schema.WarnEntry(fmt.Sprintf("drop %s: %s", kind, reason)))
}

func (s *Supervisor) animationsChanged(id schema.PipelineID, state schema.AnimationState) {
	p := s.reg.lookup(id)
	if p == nil {
		s.dropKind(id, string(schema.KindChangeRunningAnimationsState), schema.ErrPipelineNotFound.Error())
		return
	}
	p.Animations = state
	s.deps.Compositor.AnimationStateChanged(id, state)
}

// createCanvas answers a 2D paint actor request. The reply is resolved
// with the actor's command sender, or abandoned when the provider fails
// so the requester observes closure instead of hanging.
func (s *Supervisor) createCanvas(from schema.PipelineID, m schema.CreateCanvasPaintThread) {
	defer m.Reply.Abandon()
	if from == 0 {
		s.drop(0, schema.KindCreateCanvasPaintThread, "no pipeline attribution")
		return
	}
	p := s.pipelineFor(from, schema.KindCreateCanvasPaintThread)
	if p == nil {
		return
	}
	canvas, err := s.deps.Paint.CreateCanvas(m.Size)
	if err != nil {
		s.drop(from, schema.KindCreateCanvasPaintThread, err.Error())
		return
	}
	p.canvases = append(p.canvases, canvas)
	_ = m.Reply.Resolve(schema.CanvasCreated{Canvas: canvas})
	s.log.Debug("canvas paint actor created", "pipeline", uint64(from),
		"width", m.Size.Width, "height", m.Size.Height)
}

// createWebGL answers a WebGL paint actor request. Unlike 2D canvases the
// reply always resolves, carrying Error when context creation fails.
func (s *Supervisor) createWebGL(from schema.PipelineID, m schema.CreateWebGLPaintThread) {
	defer m.Reply.Abandon()
	if from == 0 {
		s.drop(0, schema.KindCreateWebGLPaintThread, "no pipeline attribution")
		return
	}
	p := s.pipelineFor(from, schema.KindCreateWebGLPaintThread)
	if p == nil {
		return
	}
	canvas, limits, err := s.deps.Paint.CreateWebGL(m.Size, m.Attributes)
	if err != nil {
		_ = m.Reply.Resolve(schema.WebGLCreateResult{Error: err.Error()})
		return
	}
	p.canvases = append(p.canvases, canvas)
	_ = m.Reply.Resolve(schema.WebGLCreateResult{Canvas: canvas, Limits: limits})
	s.log.Debug("webgl paint actor created", "pipeline", uint64(from),
		"width", m.Size.Width, "height", m.Size.Height)
}

// routeKeyEvent applies the focus rules: an embedder-injected key goes to
// the focused pipeline's script actor, falling back to the compositor;
// a key handed back by a script actor always goes to the compositor.
func (s *Supervisor) routeKeyEvent(from schema.PipelineID, m schema.SendKeyEvent) {
	if from == 0 && s.reg.focused != 0 {
		if p := s.reg.lookup(s.reg.focused); p != nil {
			_ = p.control.Send(schema.KeyEvent{Char: m.Char, Key: m.Key, State: m.State, Modifiers: m.Modifiers})
			return
		}
	}
	s.deps.Compositor.KeyEvent(m.Char, m.Key, m.State, m.Modifiers)
}

// removeIFrame tears down an iframe child pipeline. The optional reply is
// parked on the entry and resolved once teardown finishes.
func (s *Supervisor) removeIFrame(m schema.RemoveIFrame) {
	p := s.reg.lookup(m.Pipeline)
	if p == nil {
		s.drop(m.Pipeline, schema.KindRemoveIFrame, schema.ErrPipelineNotFound.Error())
		if m.Reply != nil {
			_ = m.Reply.Abandon()
		}
		return
	}
	if p.Parent == 0 {
		s.drop(m.Pipeline, schema.KindRemoveIFrame, "pipeline is not an iframe child")
		if m.Reply != nil {
			_ = m.Reply.Abandon()
		}
		return
	}
	if m.Reply != nil {
		p.removeAcks = append(p.removeAcks, m.Reply)
	}
	p.removeSlot = true
	s.requestExit(p)
}

// pipelineExited handles the cooperative exit report. Reports for ids
// already gone are routine during teardown races and only traced.
func (s *Supervisor) pipelineExited(id schema.PipelineID) {
	p := s.reg.lookup(id)
	if p == nil {
		s.log.Trace("pipeline exit report ignored", "pipeline", uint64(id))
		return
	}
	s.teardown(p)
}

// loadTopLevel navigates the top-level browsing context from the embedder
// side: a fresh history entry, a fresh pipeline, exit for the one it
// replaces.
func (s *Supervisor) loadTopLevel(ctx context.Context, load schema.LoadData) (schema.PipelineID, error) {
	if s.shuttingDown {
		return 0, schema.ErrShuttingDown
	}
	norm, err := schema.NormalizeLoadData(load)
	if err != nil {
		return 0, err
	}
	f := s.reg.ensureSlot(frameKey{})
	return s.replaceInSlot(ctx, frameKey{}, f, norm, true)
}

// loadInContext handles the script-side LoadURL request: same replacement
// flow, but the target slot is the one owned by the named pipeline.
func (s *Supervisor) loadInContext(ctx context.Context, m schema.LoadURL) {
	p := s.pipelineFor(m.Pipeline, schema.KindLoadURL)
	if p == nil {
		return
	}
	norm, err := schema.NormalizeLoadData(m.Load)
	if err != nil {
		s.drop(m.Pipeline, schema.KindLoadURL, err.Error())
		return
	}
	key := p.frameKey()
	f := s.reg.ensureSlot(key)
	if _, err := s.replaceInSlot(ctx, key, f, norm, true); err != nil {
		s.drop(m.Pipeline, schema.KindLoadURL, err.Error())
	}
}

// traverse moves an existing browsing context through its session
// history. iframe nil selects the top-level context.
func (s *Supervisor) traverse(ctx context.Context, iframe *schema.IFrameRef, dir schema.NavigationDirection) error {
	if s.shuttingDown {
		return schema.ErrShuttingDown
	}
	key := frameKey{}
	if iframe != nil {
		key = frameKey{parent: iframe.Pipeline, subpage: iframe.Subpage}
	}
	f := s.reg.slot(key)
	if f == nil {
		return schema.ErrNoHistory
	}
	var next int
	switch dir {
	case schema.NavigateForward:
		next = f.index + 1
	case schema.NavigateBack:
		next = f.index - 1
	default:
		return fmt.Errorf("unknown navigation direction %q", dir)
	}
	if next < 0 || next >= len(f.history) {
		return schema.ErrNoHistory
	}
	prev := f.index
	f.index = next
	if _, err := s.replaceInSlot(ctx, key, f, f.history[next], false); err != nil {
		f.index = prev
		return err
	}
	s.log.Info("history traversed", "direction", string(dir), "index", next, "url", f.history[next].URL)
	return nil
}

// replaceInSlot spawns a replacement pipeline for a browsing-context slot
// and retires the one currently filling it. With appendHistory the load
// becomes a new history entry, truncating any forward entries first; the
// failed-spawn path leaves slot and incumbent untouched.
func (s *Supervisor) replaceInSlot(ctx context.Context, key frameKey, f *frame, load schema.LoadData, appendHistory bool) (schema.PipelineID, error) {
	id := schema.NewPipelineID()
	if _, err := s.spawnPipeline(ctx, id, key.parent, key.subpage, load, f.sandboxed); err != nil {
		return 0, err
	}
	if appendHistory {
		f.history = append(f.history[:f.index+1], load)
		f.index = len(f.history) - 1
	}
	old := f.current
	f.current = id
	if key.parent == 0 {
		s.reg.root = id
	} else if parent := s.reg.lookup(key.parent); parent != nil {
		parent.children.Add(key.subpage)
	}
	if s.reg.focused == old || (key.parent == 0 && s.reg.focused == 0) {
		s.reg.focused = id
	}
	if old != 0 && old != id {
		if op := s.reg.lookup(old); op != nil {
			s.requestExit(op)
		}
	}
	return id, nil
}

// loadIFrame registers the child pipeline a parent's script actor created
// for an iframe slot. The child's id was minted by the parent; a slot
// already holding a live child rejects the registration and keeps it.
func (s *Supervisor) loadIFrame(ctx context.Context, from schema.PipelineID, info schema.IFrameLoadInfo) {
	if from == 0 {
		s.drop(0, schema.KindScriptLoadedURLInIFrame, "no pipeline attribution")
		return
	}
	if from != info.Parent {
		s.drop(from, schema.KindScriptLoadedURLInIFrame,
			fmt.Sprintf("parent mismatch: channel %d, payload %d", from, info.Parent))
		return
	}
	parent := s.pipelineFor(info.Parent, schema.KindScriptLoadedURLInIFrame)
	if parent == nil {
		return
	}
	if parent.children.Contains(info.Subpage) {
		s.drop(info.Parent, schema.KindScriptLoadedURLInIFrame, schema.ErrSubpageInUse.Error())
		return
	}
	if s.reg.lookup(info.NewPipeline) != nil {
		s.drop(info.NewPipeline, schema.KindScriptLoadedURLInIFrame, schema.ErrPipelineExists.Error())
		return
	}
	norm, err := schema.NormalizeLoadData(info.Load)
	if err != nil {
		s.drop(info.Parent, schema.KindScriptLoadedURLInIFrame, err.Error())
		return
	}
	if _, err := s.spawnPipeline(ctx, info.NewPipeline, info.Parent, info.Subpage, norm, info.Sandboxed); err != nil {
		s.drop(info.Parent, schema.KindScriptLoadedURLInIFrame, err.Error())
		return
	}
	parent.children.Add(info.Subpage)
	key := frameKey{parent: info.Parent, subpage: info.Subpage}
	f := s.reg.ensureSlot(key)
	f.history = []schema.LoadData{norm}
	f.index = 0
	f.current = info.NewPipeline
	f.sandboxed = info.Sandboxed
	logx.WithLoad(logx.WithIFrame(s.log, info.Parent, info.Subpage), norm).Info(
		"iframe child registered", "pipeline", uint64(info.NewPipeline), "sandboxed", info.Sandboxed)
}
