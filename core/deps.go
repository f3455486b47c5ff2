package core

import (
	"context"
	"errors"

	"pkt.systems/pslog"
	"pkt.systems/switchyard/internal/diag"
	"pkt.systems/switchyard/ipc"
	"pkt.systems/switchyard/schema"
)

// Compositor receives the display-affecting notifications the supervisor
// routes out of the message streams.
type Compositor interface {
	SetCursor(cursor schema.Cursor)
	AnimationStateChanged(id schema.PipelineID, state schema.AnimationState)
	ScrollFragment(id schema.PipelineID, layer schema.LayerID, point schema.Point, smooth bool)
	ScrollOffset(id schema.PipelineID, layer schema.LayerID) schema.Point
	TouchEventProcessed(result schema.EventResult)
	KeyEvent(char string, key schema.Key, state schema.KeyState, modifiers schema.KeyModifiers)
}

// WindowSystem answers geometry queries and applies window placement
// requests.
type WindowSystem interface {
	ClientWindow() schema.ClientWindow
	MoveTo(point schema.WindowPoint)
	ResizeTo(size schema.WindowSize)
}

// Clipboard is the embedder's clipboard surface.
type Clipboard interface {
	Contents() string
	SetContents(contents string)
}

// Chrome receives user-visible browser chrome updates and modal prompts.
// Alert hands over the reply pipe; the implementation must resolve or
// abandon it.
type Chrome interface {
	SetTitle(id schema.PipelineID, title *string)
	SetFavicon(id schema.PipelineID, url string)
	NodeStatus(id schema.PipelineID, status *string)
	HeadParsed(id schema.PipelineID)
	DocumentLoaded(id schema.PipelineID)
	LoadComplete(id schema.PipelineID)
	Alert(id schema.PipelineID, message string, reply ipc.ReplyTo[bool])
	BrowserEvent(parent schema.PipelineID, subpage schema.SubpageID, event schema.BrowserElementEvent)
}

// ViewportConsumer receives evaluated viewport constraints for window
// sizing negotiation.
type ViewportConsumer interface {
	ViewportConstrained(id schema.PipelineID, constraints schema.ViewportConstraints)
}

// PaintProvider creates paint actors on demand. The returned sender is the
// actor's command channel; closing it shuts the actor down.
type PaintProvider interface {
	CreateCanvas(size schema.CanvasSize) (ipc.Sender[schema.CanvasCommand], error)
	CreateWebGL(size schema.CanvasSize, attrs schema.GLContextAttributes) (ipc.Sender[schema.CanvasCommand], schema.GLLimits, error)
}

// SpawnSpec bundles the actor-side channel ends and the navigation target
// of a pipeline being brought up.
type SpawnSpec struct {
	ID            schema.PipelineID
	Parent        schema.PipelineID
	Subpage       schema.SubpageID
	Load          schema.LoadData
	Sandboxed     bool
	Script        ipc.Sender[schema.ScriptMsg]
	Layout        ipc.Sender[schema.LayoutMsg]
	Control       ipc.Receiver[schema.ControlMsg]
	LayoutControl ipc.Receiver[schema.LayoutControlMsg]
}

// PipelineSpawner materializes the actors behind a newly registered
// pipeline. A returned error rolls the registration back.
type PipelineSpawner interface {
	Spawn(ctx context.Context, spec SpawnSpec) error
}

// Deps captures the supervisor's collaborators. Nil entries default to
// inert implementations so the message loop never stalls on an absent
// embedder surface; Spawner is required.
type Deps struct {
	Spawner    PipelineSpawner
	Paint      PaintProvider
	Compositor Compositor
	Window     WindowSystem
	Clipboard  Clipboard
	Chrome     Chrome
	Viewport   ViewportConsumer
	Diag       diag.Sink
	Logger     pslog.Logger
}

type noopCompositor struct{}

func (noopCompositor) SetCursor(schema.Cursor)                                              {}
func (noopCompositor) AnimationStateChanged(schema.PipelineID, schema.AnimationState)       {}
func (noopCompositor) ScrollFragment(schema.PipelineID, schema.LayerID, schema.Point, bool) {}
func (noopCompositor) ScrollOffset(schema.PipelineID, schema.LayerID) schema.Point {
	return schema.Point{}
}
func (noopCompositor) TouchEventProcessed(schema.EventResult)                            {}
func (noopCompositor) KeyEvent(string, schema.Key, schema.KeyState, schema.KeyModifiers) {}

type noopWindowSystem struct {
	size schema.WindowSize
}

func (w noopWindowSystem) ClientWindow() schema.ClientWindow {
	return schema.ClientWindow{Size: w.size}
}
func (noopWindowSystem) MoveTo(schema.WindowPoint)  {}
func (noopWindowSystem) ResizeTo(schema.WindowSize) {}

type noopClipboard struct{}

func (noopClipboard) Contents() string   { return "" }
func (noopClipboard) SetContents(string) {}

type noopChrome struct{}

func (noopChrome) SetTitle(schema.PipelineID, *string)      {}
func (noopChrome) SetFavicon(schema.PipelineID, string)     {}
func (noopChrome) NodeStatus(schema.PipelineID, *string)    {}
func (noopChrome) HeadParsed(schema.PipelineID)             {}
func (noopChrome) DocumentLoaded(schema.PipelineID)         {}
func (noopChrome) LoadComplete(schema.PipelineID)           {}
func (noopChrome) Alert(_ schema.PipelineID, _ string, reply ipc.ReplyTo[bool]) {
	_ = reply.Resolve(false)
}
func (noopChrome) BrowserEvent(schema.PipelineID, schema.SubpageID, schema.BrowserElementEvent) {}

type noopViewport struct{}

func (noopViewport) ViewportConstrained(schema.PipelineID, schema.ViewportConstraints) {}

type noopPaint struct{}

func (noopPaint) CreateCanvas(schema.CanvasSize) (ipc.Sender[schema.CanvasCommand], error) {
	return ipc.Sender[schema.CanvasCommand]{}, errors.New("no paint provider")
}

func (noopPaint) CreateWebGL(schema.CanvasSize, schema.GLContextAttributes) (ipc.Sender[schema.CanvasCommand], schema.GLLimits, error) {
	return ipc.Sender[schema.CanvasCommand]{}, schema.GLLimits{}, schema.ErrGPUUnavailable
}

type noopDiag struct{}

func (noopDiag) OnLogEntry(diag.Record) {}
