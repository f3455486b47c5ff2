package schema

// LayoutMsg is a message emitted by a pipeline's layout actor toward the
// supervisor.
type LayoutMsg interface {
	LayoutKind() LayoutKind
}

// LayoutKind is the wire discriminant of a LayoutMsg variant.
type LayoutKind string

const (
	LayoutKindChangeRunningAnimationsState LayoutKind = "change_running_animations_state"
	LayoutKindSetCursor                    LayoutKind = "set_cursor"
	LayoutKindViewportConstrained          LayoutKind = "viewport_constrained"
)

// SetCursor asks the compositor to change the pointer cursor. Forwarded
// verbatim.
type SetCursor struct {
	Cursor Cursor `json:"cursor"`
}

func (SetCursor) LayoutKind() LayoutKind { return LayoutKindSetCursor }

// ViewportConstrained reports the evaluated viewport constraints of a
// pipeline for window sizing negotiation.
type ViewportConstrained struct {
	Pipeline    PipelineID          `json:"pipeline"`
	Constraints ViewportConstraints `json:"constraints"`
}

func (ViewportConstrained) LayoutKind() LayoutKind { return LayoutKindViewportConstrained }
