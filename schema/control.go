package schema

// ControlMsg is a message the supervisor delivers into a script actor over
// that pipeline's control channel. The target pipeline is implied by the
// channel itself.
type ControlMsg interface {
	ControlKind() ControlKind
}

// ControlKind is the wire discriminant of a ControlMsg variant.
type ControlKind string

const (
	ControlKindMouseButtonEvent  ControlKind = "mouse_button_event"
	ControlKindMouseMoveEvent    ControlKind = "mouse_move_event"
	ControlKindKeyEvent          ControlKind = "key_event"
	ControlKindIFrameLoadEvent   ControlKind = "iframe_load_event"
	ControlKindBrowserEventFired ControlKind = "browser_event_fired"
	ControlKindVisibilityChange  ControlKind = "visibility_change"
	ControlKindExitPipeline      ControlKind = "exit_pipeline"
)

// MouseButtonEvent delivers a forwarded mouse button event.
type MouseButtonEvent struct {
	Type   MouseEventType `json:"type"`
	Button MouseButton    `json:"button"`
	Point  Point          `json:"point"`
}

func (MouseButtonEvent) ControlKind() ControlKind { return ControlKindMouseButtonEvent }

// MouseMoveEvent delivers a forwarded mouse move event.
type MouseMoveEvent struct {
	Point Point `json:"point"`
}

func (MouseMoveEvent) ControlKind() ControlKind { return ControlKindMouseMoveEvent }

// KeyEvent delivers a key event to the focused pipeline's script actor.
type KeyEvent struct {
	Char      string       `json:"char,omitempty"`
	Key       Key          `json:"key"`
	State     KeyState     `json:"state"`
	Modifiers KeyModifiers `json:"modifiers,omitempty"`
}

func (KeyEvent) ControlKind() ControlKind { return ControlKindKeyEvent }

// IFrameLoadEvent tells a parent script actor to fire the synthetic load
// event for the named iframe slot.
type IFrameLoadEvent struct {
	Subpage SubpageID `json:"subpage"`
}

func (IFrameLoadEvent) ControlKind() ControlKind { return ControlKindIFrameLoadEvent }

// BrowserEventFired delivers an embedder browser-element event to the
// parent script actor owning the iframe slot.
type BrowserEventFired struct {
	Subpage SubpageID           `json:"subpage"`
	Event   BrowserElementEvent `json:"event"`
}

func (BrowserEventFired) ControlKind() ControlKind { return ControlKindBrowserEventFired }

// VisibilityChange tells the script actor its pipeline's visibility
// changed so it can throttle or resume timers. The actor acknowledges
// with VisibilityChangeComplete.
type VisibilityChange struct {
	Visible bool `json:"visible"`
}

func (VisibilityChange) ControlKind() ControlKind { return ControlKindVisibilityChange }

// ExitPipeline orders the script actor to shut down. The actor is expected
// to report PipelineExited and close its channels.
type ExitPipeline struct{}

func (ExitPipeline) ControlKind() ControlKind { return ControlKindExitPipeline }

// LayoutControlMsg is a message the supervisor delivers into a layout actor.
type LayoutControlMsg interface {
	LayoutControlKind() LayoutControlKind
}

// LayoutControlKind is the wire discriminant of a LayoutControlMsg variant.
type LayoutControlKind string

const (
	LayoutControlKindExitNow        LayoutControlKind = "exit_now"
	LayoutControlKindTickAnimations LayoutControlKind = "tick_animations"
)

// ExitNow orders the layout actor to shut down immediately.
type ExitNow struct{}

func (ExitNow) LayoutControlKind() LayoutControlKind { return LayoutControlKindExitNow }

// TickAnimations asks the layout actor to advance its running animations by
// one frame.
type TickAnimations struct{}

func (TickAnimations) LayoutControlKind() LayoutControlKind { return LayoutControlKindTickAnimations }
