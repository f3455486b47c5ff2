package core

import (
	"sort"

	"pkt.systems/switchyard/schema"
)

// frameKey names one browsing-context slot. The zero key is the
// top-level context; iframe slots are keyed by the parent pipeline and
// the subpage id the parent assigned.
type frameKey struct {
	parent  schema.PipelineID
	subpage schema.SubpageID
}

// frame is the session history of one browsing context. The sandboxed
// flag set at slot creation carries over to every traversal replacement.
type frame struct {
	history   []schema.LoadData
	index     int
	current   schema.PipelineID
	sandboxed bool
}

func (f *frame) currentLoad() schema.LoadData {
	if f.index < 0 || f.index >= len(f.history) {
		return schema.LoadData{}
	}
	return f.history[f.index]
}

// registry is the supervisor's view of every live pipeline and every
// browsing-context slot. Not safe for concurrent use; only the
// supervisor loop touches it.
type registry struct {
	pipelines map[schema.PipelineID]*pipeline
	frames    map[frameKey]*frame
	focused   schema.PipelineID
	root      schema.PipelineID
}

func newRegistry() *registry {
	return &registry{
		pipelines: make(map[schema.PipelineID]*pipeline),
		frames:    make(map[frameKey]*frame),
	}
}

func (r *registry) register(p *pipeline) error {
	if _, ok := r.pipelines[p.ID]; ok {
		return schema.ErrPipelineExists
	}
	p.transition(schema.PipelineRegistered)
	r.pipelines[p.ID] = p
	return nil
}

// lookup returns nil when the id is not registered.
func (r *registry) lookup(id schema.PipelineID) *pipeline {
	return r.pipelines[id]
}

func (r *registry) unregister(id schema.PipelineID) {
	delete(r.pipelines, id)
	if r.focused == id {
		r.focused = 0
	}
	if r.root == id {
		r.root = 0
	}
}

// slot returns nil when no history exists for the key.
func (r *registry) slot(key frameKey) *frame {
	return r.frames[key]
}

func (r *registry) ensureSlot(key frameKey) *frame {
	f, ok := r.frames[key]
	if !ok {
		f = &frame{index: -1}
		r.frames[key] = f
	}
	return f
}

func (r *registry) dropSlot(key frameKey) {
	delete(r.frames, key)
}

func (r *registry) snapshot(shuttingDown bool) Snapshot {
	ids := make([]schema.PipelineID, 0, len(r.pipelines))
	for id := range r.pipelines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	snap := Snapshot{
		Pipelines:    make([]PipelineSnapshot, 0, len(ids)),
		Focused:      r.focused,
		Root:         r.root,
		ShuttingDown: shuttingDown,
	}
	for _, id := range ids {
		snap.Pipelines = append(snap.Pipelines, r.pipelines[id].snapshot())
	}
	return snap
}
