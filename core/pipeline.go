package core

import (
	mapset "github.com/deckarep/golang-set/v2"

	"pkt.systems/switchyard/ipc"
	"pkt.systems/switchyard/schema"
)

// pipeline tracks the state of a single script+layout pair.
type pipeline struct {
	ID         schema.PipelineID
	Parent     schema.PipelineID
	Subpage    schema.SubpageID
	State      schema.PipelineState
	Animations schema.AnimationState
	Document   schema.DocumentState
	Title      *string
	URL        string
	Visible    bool
	Sandboxed  bool

	control       ipc.Sender[schema.ControlMsg]
	layoutControl ipc.Sender[schema.LayoutControlMsg]
	scriptRx      ipc.Receiver[schema.ScriptMsg]
	layoutRx      ipc.Receiver[schema.LayoutMsg]

	children   mapset.Set[schema.SubpageID]
	canvases   []ipc.Sender[schema.CanvasCommand]
	removeAcks []*ipc.ReplyTo[schema.Ack]
	removeSlot bool
}

// PipelineSnapshot is a copy of one registry entry, safe to hand outside
// the supervisor loop.
type PipelineSnapshot struct {
	ID         schema.PipelineID     `json:"id"`
	Parent     schema.PipelineID     `json:"parent,omitempty"`
	Subpage    schema.SubpageID      `json:"subpage,omitempty"`
	State      schema.PipelineState  `json:"state"`
	Animations schema.AnimationState `json:"animations"`
	Document   schema.DocumentState  `json:"document"`
	Title      *string               `json:"title,omitempty"`
	URL        string                `json:"url,omitempty"`
	Visible    bool                  `json:"visible"`
	Children   []schema.SubpageID    `json:"children,omitempty"`
	Canvases   int                   `json:"canvases,omitempty"`
}

// Snapshot is the supervisor's answer to a snapshot query.
type Snapshot struct {
	Pipelines    []PipelineSnapshot `json:"pipelines"`
	Focused      schema.PipelineID  `json:"focused,omitempty"`
	Root         schema.PipelineID  `json:"root,omitempty"`
	ShuttingDown bool               `json:"shutting_down,omitempty"`
}

func newPipeline(id, parent schema.PipelineID, subpage schema.SubpageID, load schema.LoadData, sandboxed bool) *pipeline {
	return &pipeline{
		ID:         id,
		Parent:     parent,
		Subpage:    subpage,
		State:      schema.PipelineUninitialized,
		Animations: schema.AnimationsIdle,
		Document:   schema.DocumentPending,
		URL:        load.URL,
		Visible:    true,
		Sandboxed:  sandboxed,
		children:   mapset.NewThreadUnsafeSet[schema.SubpageID](),
	}
}

// transition moves the lifecycle forward. Returns false when the step is
// not allowed, leaving the state untouched; the exited state is terminal.
func (p *pipeline) transition(next schema.PipelineState) bool {
	if p.State == next {
		return true
	}
	if !stateStepAllowed(p.State, next) {
		return false
	}
	p.State = next
	return true
}

func stateStepAllowed(from, to schema.PipelineState) bool {
	switch from {
	case schema.PipelineUninitialized:
		return to == schema.PipelineRegistered
	case schema.PipelineRegistered:
		return to == schema.PipelineActive || to == schema.PipelineHidden ||
			to == schema.PipelineExitRequested || to == schema.PipelineGone
	case schema.PipelineActive:
		return to == schema.PipelineHidden || to == schema.PipelineExitRequested ||
			to == schema.PipelineGone
	case schema.PipelineHidden:
		return to == schema.PipelineActive || to == schema.PipelineExitRequested ||
			to == schema.PipelineGone
	case schema.PipelineExitRequested:
		return to == schema.PipelineGone
	default:
		return false
	}
}

// frameKey returns the browsing-context slot this pipeline fills.
func (p *pipeline) frameKey() frameKey {
	return frameKey{parent: p.Parent, subpage: p.Subpage}
}

// snapshot deep-copies the entry.
func (p *pipeline) snapshot() PipelineSnapshot {
	var title *string
	if p.Title != nil {
		t := *p.Title
		title = &t
	}
	var children []schema.SubpageID
	if p.children != nil && p.children.Cardinality() > 0 {
		children = p.children.ToSlice()
	}
	return PipelineSnapshot{
		ID:         p.ID,
		Parent:     p.Parent,
		Subpage:    p.Subpage,
		State:      p.State,
		Animations: p.Animations,
		Document:   p.Document,
		Title:      title,
		URL:        p.URL,
		Visible:    p.Visible,
		Children:   children,
		Canvases:   len(p.canvases),
	}
}
