package sim

import (
	"fmt"
	"net/url"
	"runtime/debug"
	"sync/atomic"

	"pkt.systems/pslog"
	"pkt.systems/switchyard/ipc"
	"pkt.systems/switchyard/schema"
)

// Actor is the script-side driver of one pipeline. The supervisor talks
// to it over the control channel; scenarios poke it through its methods,
// each of which sends on the pipeline's script channel exactly like page
// script would.
type Actor struct {
	id       schema.PipelineID
	load     schema.LoadData
	script   ipc.Sender[schema.ScriptMsg]
	control  ipc.Receiver[schema.ControlMsg]
	behavior Behavior
	spawner  *Spawner
	log      pslog.Logger
	fault    atomic.Pointer[string]
}

// ID is the pipeline this actor animates.
func (a *Actor) ID() schema.PipelineID { return a.id }

func (a *Actor) run() {
	defer a.shield()
	if !a.behavior.Quiet {
		a.playLoad()
	}
	if a.behavior.PanicReason != "" {
		panic(a.behavior.PanicReason)
	}
	for {
		msg, err := a.control.Receive()
		if err != nil {
			if reason := a.fault.Load(); reason != nil {
				panic(*reason)
			}
			a.log.Debug("sim control channel closed")
			return
		}
		if a.handle(msg) {
			return
		}
	}
}

// playLoad walks the message sequence a page emits while it loads:
// activation, head, title, then the load events.
func (a *Actor) playLoad() {
	title := a.behavior.Title
	if title == "" {
		title = titleFor(a.load.URL)
	}
	a.send(schema.ActivateDocument{Pipeline: a.id})
	a.send(schema.HeadParsed{})
	a.send(schema.SetTitle{Pipeline: a.id, Title: &title})
	if a.behavior.Favicon != "" {
		a.send(schema.NewFavicon{URL: a.behavior.Favicon})
	}
	a.send(schema.DOMLoad{Pipeline: a.id})
	a.send(schema.SetDocumentState{Pipeline: a.id, State: schema.DocumentIdle})
	a.send(schema.LoadComplete{Pipeline: a.id})
	a.log.Debug("sim load sequence played", "url", a.load.URL, "title", title)
}

func (a *Actor) handle(msg schema.ControlMsg) (done bool) {
	switch m := msg.(type) {
	case schema.ExitPipeline:
		a.send(schema.PipelineExited{Pipeline: a.id})
		a.log.Debug("sim script actor exiting")
		return true
	case schema.VisibilityChange:
		a.send(schema.VisibilityChangeComplete{Pipeline: a.id, Visible: m.Visible})
		a.log.Debug("sim visibility acknowledged", "visible", m.Visible)
	case schema.KeyEvent:
		a.log.Debug("sim key event", "key", string(m.Key), "state", string(m.State))
	case schema.MouseButtonEvent:
		a.log.Debug("sim mouse button", "type", string(m.Type), "button", string(m.Button))
	case schema.MouseMoveEvent:
		a.log.Trace("sim mouse move", "x", m.Point.X, "y", m.Point.Y)
	case schema.IFrameLoadEvent:
		a.log.Debug("sim iframe slot changed", "subpage", uint32(m.Subpage))
	case schema.BrowserEventFired:
		a.log.Debug("sim browser event", "subpage", uint32(m.Subpage), "kind", string(m.Event.Kind))
	default:
		a.log.Trace("sim control message ignored", "kind", string(msg.ControlKind()))
	}
	return false
}

// shield reports a panicking actor before its channels close, so the
// supervisor records the fault and then observes the closure.
func (a *Actor) shield() {
	if r := recover(); r != nil {
		id := a.id
		a.send(schema.ReportLog{
			Pipeline: &id,
			Actor:    "script",
			Entry:    schema.PanicEntry(fmt.Sprint(r), string(debug.Stack())),
		})
		a.log.Error("sim script actor panicked", "reason", fmt.Sprint(r))
	}
	_ = a.script.Close()
	_ = a.control.Close()
	a.spawner.forget(a.id)
}

func (a *Actor) send(msg schema.ScriptMsg) {
	if err := a.script.Send(msg); err != nil {
		a.log.Trace("sim script send after close", "kind", string(msg.ScriptKind()))
	}
}

// Crash makes the actor loop panic with reason the next time it wakes,
// closing the pipeline's channels without an exit handshake.
func (a *Actor) Crash(reason string) {
	a.fault.Store(&reason)
	_ = a.control.Close()
}

// LoadIFrame registers a child pipeline in an iframe slot and returns the
// id the parent minted for it.
func (a *Actor) LoadIFrame(subpage schema.SubpageID, rawURL string, sandboxed bool) (schema.PipelineID, error) {
	child := schema.NewPipelineID()
	err := a.script.Send(schema.ScriptLoadedURLInIFrame{Info: schema.IFrameLoadInfo{
		Parent:      a.id,
		Subpage:     subpage,
		NewPipeline: child,
		Load:        schema.LoadData{URL: rawURL},
		Sandboxed:   sandboxed,
	}})
	if err != nil {
		return 0, err
	}
	return child, nil
}

// RemoveIFrame tears down a child pipeline and waits for the supervisor's
// acknowledgement.
func (a *Actor) RemoveIFrame(child schema.PipelineID) error {
	reply, rx := ipc.NewReply[schema.Ack]()
	if err := a.script.Send(schema.RemoveIFrame{Pipeline: child, Reply: &reply}); err != nil {
		return err
	}
	_, err := rx.Receive()
	return err
}

// CreateCanvas requests a 2D paint actor and returns its command sender.
func (a *Actor) CreateCanvas(size schema.CanvasSize) (ipc.Sender[schema.CanvasCommand], error) {
	reply, rx := ipc.NewReply[schema.CanvasCreated]()
	if err := a.script.Send(schema.CreateCanvasPaintThread{Size: size, Reply: reply}); err != nil {
		return ipc.Sender[schema.CanvasCommand]{}, err
	}
	created, err := rx.Receive()
	if err != nil {
		return ipc.Sender[schema.CanvasCommand]{}, err
	}
	return created.Canvas, nil
}

// CreateWebGL requests a WebGL paint actor. Provider failures come back
// inside the result, not as an error.
func (a *Actor) CreateWebGL(size schema.CanvasSize, attrs schema.GLContextAttributes) (schema.WebGLCreateResult, error) {
	reply, rx := ipc.NewReply[schema.WebGLCreateResult]()
	if err := a.script.Send(schema.CreateWebGLPaintThread{Size: size, Attributes: attrs, Reply: reply}); err != nil {
		return schema.WebGLCreateResult{}, err
	}
	return rx.Receive()
}

// Alert raises a modal prompt and reports whether the embedder showed it.
func (a *Actor) Alert(message string) (bool, error) {
	reply, rx := ipc.NewReply[bool]()
	if err := a.script.Send(schema.Alert{Pipeline: a.id, Message: message, Reply: reply}); err != nil {
		return false, err
	}
	return rx.Receive()
}

// LoadURL navigates this actor's own browsing context.
func (a *Actor) LoadURL(rawURL string) error {
	return a.script.Send(schema.LoadURL{Pipeline: a.id, Load: schema.LoadData{URL: rawURL}})
}

// Focus asks the supervisor to move input focus to this pipeline.
func (a *Actor) Focus() error {
	return a.script.Send(schema.Focus{Pipeline: a.id})
}

func titleFor(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}
