package schema

// CanvasCommand is a drawing command consumed by a paint actor. The
// supervisor never interprets these; it only brokers the channel that
// carries them.
type CanvasCommand interface {
	CanvasKind() CanvasKind
}

// CanvasKind is the wire discriminant of a CanvasCommand variant.
type CanvasKind string

const (
	CanvasKindFillRect  CanvasKind = "fill_rect"
	CanvasKindClearRect CanvasKind = "clear_rect"
	CanvasKindRecreate  CanvasKind = "recreate"
	CanvasKindClose     CanvasKind = "close"
)

// FillRect fills a rectangle with the current fill style.
type FillRect struct {
	Rect Rect `json:"rect"`
}

func (FillRect) CanvasKind() CanvasKind { return CanvasKindFillRect }

// ClearRect clears a rectangle to transparent black.
type ClearRect struct {
	Rect Rect `json:"rect"`
}

func (ClearRect) CanvasKind() CanvasKind { return CanvasKindClearRect }

// Recreate resizes the drawing surface, discarding its contents.
type Recreate struct {
	Size CanvasSize `json:"size"`
}

func (Recreate) CanvasKind() CanvasKind { return CanvasKindRecreate }

// CloseCanvas shuts the paint actor down.
type CloseCanvas struct{}

func (CloseCanvas) CanvasKind() CanvasKind { return CanvasKindClose }
