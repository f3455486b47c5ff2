package schema

import "sync/atomic"

// PipelineID identifies one script+layout pair backing a single browsing
// context. Values are allocated from a process-wide counter and are never
// reused while the process runs.
type PipelineID uint64

// SubpageID identifies an iframe slot within its parent pipeline. Allocated
// by the parent's script actor, unique within that parent.
type SubpageID uint32

// LayerID identifies a compositing layer used for scroll and paint
// addressing.
type LayerID uint32

var pipelineCounter atomic.Uint64

// NewPipelineID returns the next pipeline id. Safe to call from any actor;
// ids are unique for the lifetime of the process.
func NewPipelineID() PipelineID {
	return PipelineID(pipelineCounter.Add(1))
}

// AnimationState reports whether a pipeline currently has running
// animations.
type AnimationState string

const (
	AnimationsRunning AnimationState = "running"
	AnimationsIdle    AnimationState = "idle"
)

// DocumentState is the coarse document lifecycle marker read by screenshot
// and test tooling.
type DocumentState string

const (
	DocumentIdle    DocumentState = "idle"
	DocumentPending DocumentState = "pending"
)

// EventResult reports whether content called preventDefault on a forwarded
// input event.
type EventResult string

const (
	EventDefaultAllowed   EventResult = "allowed"
	EventDefaultPrevented EventResult = "prevented"
)

// PipelineState is the lifecycle state of a registered pipeline. PipelineGone
// is terminal.
type PipelineState string

const (
	PipelineUninitialized PipelineState = "uninitialized"
	PipelineRegistered    PipelineState = "registered"
	PipelineActive        PipelineState = "active"
	PipelineHidden        PipelineState = "hidden"
	PipelineExitRequested PipelineState = "exit_requested"
	PipelineGone          PipelineState = "exited"
)

// MouseEventType distinguishes forwarded mouse button events.
type MouseEventType string

const (
	MouseEventClick MouseEventType = "click"
	MouseEventDown  MouseEventType = "mousedown"
	MouseEventUp    MouseEventType = "mouseup"
)

// MouseButton names the pressed button of a forwarded mouse event.
type MouseButton string

const (
	MouseButtonLeft   MouseButton = "left"
	MouseButtonMiddle MouseButton = "middle"
	MouseButtonRight  MouseButton = "right"
)

// Key is the named key of a keyboard event ("a", "enter", "escape", ...).
type Key string

// KeyState distinguishes press, repeat, and release.
type KeyState string

const (
	KeyPressed  KeyState = "pressed"
	KeyRepeated KeyState = "repeated"
	KeyReleased KeyState = "released"
)

// KeyModifiers is a bitset of modifier keys held during a keyboard event.
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// NavigationDirection selects a session-history traversal direction.
type NavigationDirection string

const (
	NavigateForward NavigationDirection = "forward"
	NavigateBack    NavigationDirection = "back"
)

// Cursor names the pointer cursor the compositor should display. Forwarded
// verbatim, so any CSS cursor keyword is valid.
type Cursor string

const (
	CursorDefault   Cursor = "default"
	CursorPointer   Cursor = "pointer"
	CursorText      Cursor = "text"
	CursorMove      Cursor = "move"
	CursorWait      Cursor = "wait"
	CursorCrosshair Cursor = "crosshair"
	CursorGrab      Cursor = "grab"
	CursorGrabbing  Cursor = "grabbing"
)

// Point is a position in fractional CSS pixels.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Rect is an axis-aligned rectangle in fractional CSS pixels.
type Rect struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// WindowPoint is a top-level window position in device pixels.
type WindowPoint struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// WindowSize is a top-level window size in device pixels.
type WindowSize struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// CanvasSize is the pixel size of a canvas or WebGL drawing surface.
type CanvasSize struct {
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// ClientWindow describes the embedding window's size and screen origin.
type ClientWindow struct {
	Size   WindowSize  `json:"size"`
	Origin WindowPoint `json:"origin"`
}

// LoadData describes one navigation request. Constructed by the requester,
// consumed once.
type LoadData struct {
	URL      string            `json:"url"`
	Method   string            `json:"method,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	Body     []byte            `json:"body,omitempty"`
	Referrer string            `json:"referrer,omitempty"`
}

// IFrameLoadInfo bundles a new iframe's navigation target with its parent
// linkage. The supervisor consumes it exactly once to materialize a child
// pipeline.
type IFrameLoadInfo struct {
	Parent      PipelineID `json:"parent"`
	Subpage     SubpageID  `json:"subpage"`
	NewPipeline PipelineID `json:"new_pipeline"`
	Load        LoadData   `json:"load"`
	Sandboxed   bool       `json:"sandboxed,omitempty"`
}

// ViewportConstraints carries the result of viewport rule evaluation for
// window sizing negotiation.
type ViewportConstraints struct {
	Width        float32 `json:"width"`
	Height       float32 `json:"height"`
	InitialZoom  float32 `json:"initial_zoom"`
	MinZoom      float32 `json:"min_zoom,omitempty"`
	MaxZoom      float32 `json:"max_zoom,omitempty"`
	UserZoomable bool    `json:"user_zoomable"`
}

// GLContextAttributes selects the capabilities of a requested WebGL context.
type GLContextAttributes struct {
	Alpha                 bool `json:"alpha"`
	Depth                 bool `json:"depth"`
	Stencil               bool `json:"stencil"`
	Antialias             bool `json:"antialias"`
	PremultipliedAlpha    bool `json:"premultiplied_alpha"`
	PreserveDrawingBuffer bool `json:"preserve_drawing_buffer"`
}

// GLLimits describes the capability limits of a created WebGL context.
type GLLimits struct {
	MaxTextureSize               uint32 `json:"max_texture_size"`
	MaxCubeMapTextureSize        uint32 `json:"max_cube_map_texture_size"`
	MaxCombinedTextureImageUnits uint32 `json:"max_combined_texture_image_units"`
	MaxRenderbufferSize          uint32 `json:"max_renderbuffer_size"`
	MaxVertexAttribs             uint32 `json:"max_vertex_attribs"`
}

// DefaultGLLimits returns conservative limits for simulated contexts.
func DefaultGLLimits() GLLimits {
	return GLLimits{
		MaxTextureSize:               4096,
		MaxCubeMapTextureSize:        4096,
		MaxCombinedTextureImageUnits: 32,
		MaxRenderbufferSize:          4096,
		MaxVertexAttribs:             16,
	}
}

// BrowserEventKind names an embedder browser-element event.
type BrowserEventKind string

const (
	BrowserEventClose          BrowserEventKind = "close"
	BrowserEventContextMenu    BrowserEventKind = "contextmenu"
	BrowserEventError          BrowserEventKind = "error"
	BrowserEventLoadStart      BrowserEventKind = "loadstart"
	BrowserEventLoadEnd        BrowserEventKind = "loadend"
	BrowserEventLocationChange BrowserEventKind = "locationchange"
	BrowserEventTitleChange    BrowserEventKind = "titlechange"
	BrowserEventSecurityChange BrowserEventKind = "securitychange"
)

// BrowserElementEvent is an embedder-visible event raised on behalf of a
// browser iframe element.
type BrowserElementEvent struct {
	Kind   BrowserEventKind `json:"kind"`
	Detail string           `json:"detail,omitempty"`
}
