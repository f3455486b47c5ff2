package schema

import "pkt.systems/switchyard/ipc"

// ScriptMsg is a message emitted by a pipeline's script actor toward the
// supervisor. The set of variants is closed; every variant carries a fixed
// payload shape and is serializable through the envelope codec.
//
// Requests that need an answer embed a single-use reply pipe in their
// payload; the supervisor either resolves the pipe exactly once or abandons
// it so the requester observes closure instead of hanging.
type ScriptMsg interface {
	ScriptKind() ScriptKind
}

// ScriptKind is the wire discriminant of a ScriptMsg variant.
type ScriptKind string

const (
	KindChangeRunningAnimationsState ScriptKind = "change_running_animations_state"
	KindCreateCanvasPaintThread      ScriptKind = "create_canvas_paint_thread"
	KindCreateWebGLPaintThread       ScriptKind = "create_webgl_paint_thread"
	KindDOMLoad                      ScriptKind = "dom_load"
	KindFocus                        ScriptKind = "focus"
	KindForwardMouseButtonEvent      ScriptKind = "forward_mouse_button_event"
	KindForwardMouseMoveEvent        ScriptKind = "forward_mouse_move_event"
	KindGetClipboardContents         ScriptKind = "get_clipboard_contents"
	KindHeadParsed                   ScriptKind = "head_parsed"
	KindLoadComplete                 ScriptKind = "load_complete"
	KindLoadURL                      ScriptKind = "load_url"
	KindBrowserEvent                 ScriptKind = "browser_event"
	KindNavigate                     ScriptKind = "navigate"
	KindNewFavicon                   ScriptKind = "new_favicon"
	KindNodeStatus                   ScriptKind = "node_status"
	KindRemoveIFrame                 ScriptKind = "remove_iframe"
	KindSetVisible                   ScriptKind = "set_visible"
	KindVisibilityChangeComplete     ScriptKind = "visibility_change_complete"
	KindScriptLoadedURLInIFrame      ScriptKind = "script_loaded_url_in_iframe"
	KindSetClipboardContents         ScriptKind = "set_clipboard_contents"
	KindActivateDocument             ScriptKind = "activate_document"
	KindSetDocumentState             ScriptKind = "set_document_state"
	KindSetFinalURL                  ScriptKind = "set_final_url"
	KindAlert                        ScriptKind = "alert"
	KindScrollFragmentPoint          ScriptKind = "scroll_fragment_point"
	KindSetTitle                     ScriptKind = "set_title"
	KindSendKeyEvent                 ScriptKind = "send_key_event"
	KindGetClientWindow              ScriptKind = "get_client_window"
	KindMoveTo                       ScriptKind = "move_to"
	KindResizeTo                     ScriptKind = "resize_to"
	KindTouchEventProcessed          ScriptKind = "touch_event_processed"
	KindGetScrollOffset              ScriptKind = "get_scroll_offset"
	KindReportLog                    ScriptKind = "report_log"
	KindPipelineExited               ScriptKind = "pipeline_exited"
	KindExit                         ScriptKind = "exit"
)

// Ack is the empty payload of completion replies.
type Ack struct{}

// IFrameRef names an iframe slot by its containing pipeline and subpage.
type IFrameRef struct {
	Pipeline PipelineID `json:"pipeline"`
	Subpage  SubpageID  `json:"subpage"`
}

// CanvasCreated is the reply payload of a 2D canvas creation request. The
// requester draws by sending commands through the returned sender.
type CanvasCreated struct {
	Canvas ipc.Sender[CanvasCommand] `json:"canvas"`
}

// WebGLCreateResult is the reply payload of a WebGL creation request.
// Either Error is set, or Canvas and Limits are.
type WebGLCreateResult struct {
	Canvas ipc.Sender[CanvasCommand] `json:"canvas,omitzero"`
	Limits GLLimits                  `json:"limits,omitzero"`
	Error  string                    `json:"error,omitempty"`
}

// ChangeRunningAnimationsState updates the registry's animation state for a
// pipeline so the compositor can gate its tick scheduling. Emitted by both
// script and layout actors.
type ChangeRunningAnimationsState struct {
	Pipeline PipelineID     `json:"pipeline"`
	State    AnimationState `json:"state"`
}

func (ChangeRunningAnimationsState) ScriptKind() ScriptKind {
	return KindChangeRunningAnimationsState
}

func (ChangeRunningAnimationsState) LayoutKind() LayoutKind {
	return LayoutKindChangeRunningAnimationsState
}

// CreateCanvasPaintThread asks the supervisor to spawn a 2D canvas paint
// actor. On success the reply carries the actor's command sender; on
// provider failure the pipe is abandoned.
type CreateCanvasPaintThread struct {
	Size  CanvasSize                 `json:"size"`
	Reply ipc.ReplyTo[CanvasCreated] `json:"reply"`
}

func (CreateCanvasPaintThread) ScriptKind() ScriptKind { return KindCreateCanvasPaintThread }

// CreateWebGLPaintThread asks the supervisor to spawn a WebGL paint actor.
// The reply always arrives as a WebGLCreateResult, with Error set when GPU
// context creation fails. Concurrent requests are never deduplicated; each
// spawns its own actor.
type CreateWebGLPaintThread struct {
	Size       CanvasSize                     `json:"size"`
	Attributes GLContextAttributes            `json:"attributes"`
	Reply      ipc.ReplyTo[WebGLCreateResult] `json:"reply"`
}

func (CreateWebGLPaintThread) ScriptKind() ScriptKind { return KindCreateWebGLPaintThread }

// DOMLoad reports that the pipeline's document fired its load event.
type DOMLoad struct {
	Pipeline PipelineID `json:"pipeline"`
}

func (DOMLoad) ScriptKind() ScriptKind { return KindDOMLoad }

// Focus asks the supervisor to record the pipeline as the input focus.
type Focus struct {
	Pipeline PipelineID `json:"pipeline"`
}

func (Focus) ScriptKind() ScriptKind { return KindFocus }

// ForwardMouseButtonEvent asks the supervisor to deliver a mouse button
// event into the named pipeline's script actor.
type ForwardMouseButtonEvent struct {
	Pipeline PipelineID     `json:"pipeline"`
	Type     MouseEventType `json:"type"`
	Button   MouseButton    `json:"button"`
	Point    Point          `json:"point"`
}

func (ForwardMouseButtonEvent) ScriptKind() ScriptKind { return KindForwardMouseButtonEvent }

// ForwardMouseMoveEvent asks the supervisor to deliver a mouse move event
// into the named pipeline's script actor.
type ForwardMouseMoveEvent struct {
	Pipeline PipelineID `json:"pipeline"`
	Point    Point      `json:"point"`
}

func (ForwardMouseMoveEvent) ScriptKind() ScriptKind { return KindForwardMouseMoveEvent }

// GetClipboardContents reads the OS clipboard through the supervisor.
type GetClipboardContents struct {
	Reply ipc.ReplyTo[string] `json:"reply"`
}

func (GetClipboardContents) ScriptKind() ScriptKind { return KindGetClipboardContents }

// HeadParsed reports that the document head finished parsing. Attributed to
// the emitting pipeline by the channel it arrived on.
type HeadParsed struct{}

func (HeadParsed) ScriptKind() ScriptKind { return KindHeadParsed }

// LoadComplete reports that all deferred loads of the document finished.
type LoadComplete struct {
	Pipeline PipelineID `json:"pipeline"`
}

func (LoadComplete) ScriptKind() ScriptKind { return KindLoadComplete }

// LoadURL asks the supervisor to navigate the browsing context owned by the
// named pipeline to a new document.
type LoadURL struct {
	Pipeline PipelineID `json:"pipeline"`
	Load     LoadData   `json:"load"`
}

func (LoadURL) ScriptKind() ScriptKind { return KindLoadURL }

// BrowserEvent raises an embedder browser-element event on the iframe slot
// (Parent, Subpage). The supervisor delivers it to the parent's script
// actor and mirrors it to the chrome sink.
type BrowserEvent struct {
	Parent  PipelineID          `json:"parent"`
	Subpage SubpageID           `json:"subpage"`
	Event   BrowserElementEvent `json:"event"`
}

func (BrowserEvent) ScriptKind() ScriptKind { return KindBrowserEvent }

// Navigate traverses the session history of an iframe slot, or of the
// top-level browsing context when IFrame is nil.
type Navigate struct {
	IFrame    *IFrameRef          `json:"iframe,omitempty"`
	Direction NavigationDirection `json:"direction"`
}

func (Navigate) ScriptKind() ScriptKind { return KindNavigate }

// NewFavicon announces a new favicon URL for the emitting pipeline.
type NewFavicon struct {
	URL string `json:"url"`
}

func (NewFavicon) ScriptKind() ScriptKind { return KindNewFavicon }

// NodeStatus publishes the status-bar text of the hovered node, nil to
// clear it.
type NodeStatus struct {
	Status *string `json:"status,omitempty"`
}

func (NodeStatus) ScriptKind() ScriptKind { return KindNodeStatus }

// RemoveIFrame asks the supervisor to tear down the iframe child pipeline.
// The optional reply is resolved after the child is unregistered.
type RemoveIFrame struct {
	Pipeline PipelineID        `json:"pipeline"`
	Reply    *ipc.ReplyTo[Ack] `json:"reply,omitempty"`
}

func (RemoveIFrame) ScriptKind() ScriptKind { return KindRemoveIFrame }

// SetVisible requests a visibility change for the named pipeline.
type SetVisible struct {
	Pipeline PipelineID `json:"pipeline"`
	Visible  bool       `json:"visible"`
}

func (SetVisible) ScriptKind() ScriptKind { return KindSetVisible }

// VisibilityChangeComplete acknowledges that the pipeline finished its
// visibility transition.
type VisibilityChangeComplete struct {
	Pipeline PipelineID `json:"pipeline"`
	Visible  bool       `json:"visible"`
}

func (VisibilityChangeComplete) ScriptKind() ScriptKind { return KindVisibilityChangeComplete }

// ScriptLoadedURLInIFrame registers a brand-new child pipeline for an
// iframe slot. A duplicate subpage registration is rejected with a warn
// record and leaves the existing child untouched.
type ScriptLoadedURLInIFrame struct {
	Info IFrameLoadInfo `json:"info"`
}

func (ScriptLoadedURLInIFrame) ScriptKind() ScriptKind { return KindScriptLoadedURLInIFrame }

// SetClipboardContents writes the OS clipboard through the supervisor.
type SetClipboardContents struct {
	Contents string `json:"contents"`
}

func (SetClipboardContents) ScriptKind() ScriptKind { return KindSetClipboardContents }

// ActivateDocument marks the pipeline's document as the active one for its
// browsing context.
type ActivateDocument struct {
	Pipeline PipelineID `json:"pipeline"`
}

func (ActivateDocument) ScriptKind() ScriptKind { return KindActivateDocument }

// SetDocumentState publishes the coarse document lifecycle marker used by
// screenshot tooling.
type SetDocumentState struct {
	Pipeline PipelineID    `json:"pipeline"`
	State    DocumentState `json:"state"`
}

func (SetDocumentState) ScriptKind() ScriptKind { return KindSetDocumentState }

// SetFinalURL records the post-redirect URL of the pipeline's document.
type SetFinalURL struct {
	Pipeline PipelineID `json:"pipeline"`
	URL      string     `json:"url"`
}

func (SetFinalURL) ScriptKind() ScriptKind { return KindSetFinalURL }

// Alert asks the embedder to display a modal alert. The reply reports
// whether the dialog was shown and dismissed.
type Alert struct {
	Pipeline PipelineID        `json:"pipeline"`
	Message  string            `json:"message"`
	Reply    ipc.ReplyTo[bool] `json:"reply"`
}

func (Alert) ScriptKind() ScriptKind { return KindAlert }

// ScrollFragmentPoint asks the compositor to scroll a layer to a fragment
// anchor point.
type ScrollFragmentPoint struct {
	Pipeline PipelineID `json:"pipeline"`
	Layer    LayerID    `json:"layer"`
	Point    Point      `json:"point"`
	Smooth   bool       `json:"smooth"`
}

func (ScrollFragmentPoint) ScriptKind() ScriptKind { return KindScrollFragmentPoint }

// SetTitle publishes the document title, nil to clear it.
type SetTitle struct {
	Pipeline PipelineID `json:"pipeline"`
	Title    *string    `json:"title,omitempty"`
}

func (SetTitle) ScriptKind() ScriptKind { return KindSetTitle }

// SendKeyEvent hands a key event back to the supervisor after content
// declined it. Char is the printable character, empty for control keys.
type SendKeyEvent struct {
	Char      string       `json:"char,omitempty"`
	Key       Key          `json:"key"`
	State     KeyState     `json:"state"`
	Modifiers KeyModifiers `json:"modifiers,omitempty"`
}

func (SendKeyEvent) ScriptKind() ScriptKind { return KindSendKeyEvent }

// GetClientWindow queries the embedding window's size and origin.
type GetClientWindow struct {
	Reply ipc.ReplyTo[ClientWindow] `json:"reply"`
}

func (GetClientWindow) ScriptKind() ScriptKind { return KindGetClientWindow }

// MoveTo asks the window system to move the top-level window.
type MoveTo struct {
	Point WindowPoint `json:"point"`
}

func (MoveTo) ScriptKind() ScriptKind { return KindMoveTo }

// ResizeTo asks the window system to resize the top-level window.
type ResizeTo struct {
	Size WindowSize `json:"size"`
}

func (ResizeTo) ScriptKind() ScriptKind { return KindResizeTo }

// TouchEventProcessed reports whether content consumed a forwarded touch
// event, so default behavior such as scrolling can proceed or be
// suppressed.
type TouchEventProcessed struct {
	Result EventResult `json:"result"`
}

func (TouchEventProcessed) ScriptKind() ScriptKind { return KindTouchEventProcessed }

// GetScrollOffset queries the compositor-side scroll offset of a layer.
type GetScrollOffset struct {
	Pipeline PipelineID         `json:"pipeline"`
	Layer    LayerID            `json:"layer"`
	Reply    ipc.ReplyTo[Point] `json:"reply"`
}

func (GetScrollOffset) ScriptKind() ScriptKind { return KindGetScrollOffset }

// ReportLog carries a diagnostic record to the central sink. Pipeline and
// Actor are optional attribution tags; delivery never fails the pipeline.
type ReportLog struct {
	Pipeline *PipelineID `json:"pipeline,omitempty"`
	Actor    string      `json:"actor,omitempty"`
	Entry    LogEntry    `json:"entry"`
}

func (ReportLog) ScriptKind() ScriptKind { return KindReportLog }

// PipelineExited reports that the pipeline's actors have shut down. The
// supervisor runs full teardown for the id.
type PipelineExited struct {
	Pipeline PipelineID `json:"pipeline"`
}

func (PipelineExited) ScriptKind() ScriptKind { return KindPipelineExited }

// Exit requests engine-wide shutdown. The supervisor broadcasts exit to
// every registered pipeline and stops once all of them acknowledge or their
// channels close.
type Exit struct{}

func (Exit) ScriptKind() ScriptKind { return KindExit }
