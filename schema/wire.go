package schema

import (
	"encoding/json"
	"fmt"
)

// Direction tags which closed message set an envelope belongs to.
type Direction string

const (
	DirScript        Direction = "script"
	DirLayout        Direction = "layout"
	DirControl       Direction = "control"
	DirLayoutControl Direction = "layout_control"
	DirCanvas        Direction = "canvas"
)

// Envelope is the wire form of any protocol message: a direction, a variant
// discriminant, and the variant's fixed-shape payload. Decoding an envelope
// yields a value equal to the one encoded, including channel endpoints,
// which travel as process-local handle references.
type Envelope struct {
	Dir     Direction       `json:"dir"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			return v, err
		}
	}
	return v, nil
}

func encodeEnvelope(dir Direction, kind string, msg any) (Envelope, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s %s: %w", dir, kind, err)
	}
	return Envelope{Dir: dir, Kind: kind, Payload: raw}, nil
}

// EncodeScript wraps a ScriptMsg in its envelope.
func EncodeScript(m ScriptMsg) (Envelope, error) {
	return encodeEnvelope(DirScript, string(m.ScriptKind()), m)
}

// DecodeScript unwraps a script-direction envelope.
func DecodeScript(env Envelope) (ScriptMsg, error) {
	if env.Dir != DirScript {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrWrongDirection, env.Dir, DirScript)
	}
	dec, ok := scriptDecoders[ScriptKind(env.Kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownKind, env.Dir, env.Kind)
	}
	return dec(env.Payload)
}

func scriptDecoder[T ScriptMsg](raw json.RawMessage) (ScriptMsg, error) {
	return decodeAs[T](raw)
}

var scriptDecoders = map[ScriptKind]func(json.RawMessage) (ScriptMsg, error){
	KindChangeRunningAnimationsState: scriptDecoder[ChangeRunningAnimationsState],
	KindCreateCanvasPaintThread:      scriptDecoder[CreateCanvasPaintThread],
	KindCreateWebGLPaintThread:       scriptDecoder[CreateWebGLPaintThread],
	KindDOMLoad:                      scriptDecoder[DOMLoad],
	KindFocus:                        scriptDecoder[Focus],
	KindForwardMouseButtonEvent:      scriptDecoder[ForwardMouseButtonEvent],
	KindForwardMouseMoveEvent:        scriptDecoder[ForwardMouseMoveEvent],
	KindGetClipboardContents:         scriptDecoder[GetClipboardContents],
	KindHeadParsed:                   scriptDecoder[HeadParsed],
	KindLoadComplete:                 scriptDecoder[LoadComplete],
	KindLoadURL:                      scriptDecoder[LoadURL],
	KindBrowserEvent:                 scriptDecoder[BrowserEvent],
	KindNavigate:                     scriptDecoder[Navigate],
	KindNewFavicon:                   scriptDecoder[NewFavicon],
	KindNodeStatus:                   scriptDecoder[NodeStatus],
	KindRemoveIFrame:                 scriptDecoder[RemoveIFrame],
	KindSetVisible:                   scriptDecoder[SetVisible],
	KindVisibilityChangeComplete:     scriptDecoder[VisibilityChangeComplete],
	KindScriptLoadedURLInIFrame:      scriptDecoder[ScriptLoadedURLInIFrame],
	KindSetClipboardContents:         scriptDecoder[SetClipboardContents],
	KindActivateDocument:             scriptDecoder[ActivateDocument],
	KindSetDocumentState:             scriptDecoder[SetDocumentState],
	KindSetFinalURL:                  scriptDecoder[SetFinalURL],
	KindAlert:                        scriptDecoder[Alert],
	KindScrollFragmentPoint:          scriptDecoder[ScrollFragmentPoint],
	KindSetTitle:                     scriptDecoder[SetTitle],
	KindSendKeyEvent:                 scriptDecoder[SendKeyEvent],
	KindGetClientWindow:              scriptDecoder[GetClientWindow],
	KindMoveTo:                       scriptDecoder[MoveTo],
	KindResizeTo:                     scriptDecoder[ResizeTo],
	KindTouchEventProcessed:          scriptDecoder[TouchEventProcessed],
	KindGetScrollOffset:              scriptDecoder[GetScrollOffset],
	KindReportLog:                    scriptDecoder[ReportLog],
	KindPipelineExited:               scriptDecoder[PipelineExited],
	KindExit:                         scriptDecoder[Exit],
}

// EncodeLayout wraps a LayoutMsg in its envelope.
func EncodeLayout(m LayoutMsg) (Envelope, error) {
	return encodeEnvelope(DirLayout, string(m.LayoutKind()), m)
}

// DecodeLayout unwraps a layout-direction envelope.
func DecodeLayout(env Envelope) (LayoutMsg, error) {
	if env.Dir != DirLayout {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrWrongDirection, env.Dir, DirLayout)
	}
	dec, ok := layoutDecoders[LayoutKind(env.Kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownKind, env.Dir, env.Kind)
	}
	return dec(env.Payload)
}

func layoutDecoder[T LayoutMsg](raw json.RawMessage) (LayoutMsg, error) {
	return decodeAs[T](raw)
}

var layoutDecoders = map[LayoutKind]func(json.RawMessage) (LayoutMsg, error){
	LayoutKindChangeRunningAnimationsState: layoutDecoder[ChangeRunningAnimationsState],
	LayoutKindSetCursor:                    layoutDecoder[SetCursor],
	LayoutKindViewportConstrained:          layoutDecoder[ViewportConstrained],
}

// EncodeControl wraps a ControlMsg in its envelope.
func EncodeControl(m ControlMsg) (Envelope, error) {
	return encodeEnvelope(DirControl, string(m.ControlKind()), m)
}

// DecodeControl unwraps a control-direction envelope.
func DecodeControl(env Envelope) (ControlMsg, error) {
	if env.Dir != DirControl {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrWrongDirection, env.Dir, DirControl)
	}
	dec, ok := controlDecoders[ControlKind(env.Kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownKind, env.Dir, env.Kind)
	}
	return dec(env.Payload)
}

func controlDecoder[T ControlMsg](raw json.RawMessage) (ControlMsg, error) {
	return decodeAs[T](raw)
}

var controlDecoders = map[ControlKind]func(json.RawMessage) (ControlMsg, error){
	ControlKindMouseButtonEvent:  controlDecoder[MouseButtonEvent],
	ControlKindMouseMoveEvent:    controlDecoder[MouseMoveEvent],
	ControlKindKeyEvent:          controlDecoder[KeyEvent],
	ControlKindIFrameLoadEvent:   controlDecoder[IFrameLoadEvent],
	ControlKindBrowserEventFired: controlDecoder[BrowserEventFired],
	ControlKindVisibilityChange:  controlDecoder[VisibilityChange],
	ControlKindExitPipeline:      controlDecoder[ExitPipeline],
}

// EncodeLayoutControl wraps a LayoutControlMsg in its envelope.
func EncodeLayoutControl(m LayoutControlMsg) (Envelope, error) {
	return encodeEnvelope(DirLayoutControl, string(m.LayoutControlKind()), m)
}

// DecodeLayoutControl unwraps a layout-control-direction envelope.
func DecodeLayoutControl(env Envelope) (LayoutControlMsg, error) {
	if env.Dir != DirLayoutControl {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrWrongDirection, env.Dir, DirLayoutControl)
	}
	dec, ok := layoutControlDecoders[LayoutControlKind(env.Kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownKind, env.Dir, env.Kind)
	}
	return dec(env.Payload)
}

func layoutControlDecoder[T LayoutControlMsg](raw json.RawMessage) (LayoutControlMsg, error) {
	return decodeAs[T](raw)
}

var layoutControlDecoders = map[LayoutControlKind]func(json.RawMessage) (LayoutControlMsg, error){
	LayoutControlKindExitNow:        layoutControlDecoder[ExitNow],
	LayoutControlKindTickAnimations: layoutControlDecoder[TickAnimations],
}

// EncodeCanvas wraps a CanvasCommand in its envelope.
func EncodeCanvas(m CanvasCommand) (Envelope, error) {
	return encodeEnvelope(DirCanvas, string(m.CanvasKind()), m)
}

// DecodeCanvas unwraps a canvas-direction envelope.
func DecodeCanvas(env Envelope) (CanvasCommand, error) {
	if env.Dir != DirCanvas {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrWrongDirection, env.Dir, DirCanvas)
	}
	dec, ok := canvasDecoders[CanvasKind(env.Kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownKind, env.Dir, env.Kind)
	}
	return dec(env.Payload)
}

func canvasDecoder[T CanvasCommand](raw json.RawMessage) (CanvasCommand, error) {
	return decodeAs[T](raw)
}

var canvasDecoders = map[CanvasKind]func(json.RawMessage) (CanvasCommand, error){
	CanvasKindFillRect:  canvasDecoder[FillRect],
	CanvasKindClearRect: canvasDecoder[ClearRect],
	CanvasKindRecreate:  canvasDecoder[Recreate],
	CanvasKindClose:     canvasDecoder[CloseCanvas],
}
