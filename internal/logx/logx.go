// Package logx annotates pslog loggers with the identifiers that recur
// across supervisor and actor log lines.
package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/switchyard/schema"
)

type contextKey int

const pipelineKey contextKey = iota

// WithPipeline annotates the logger with the pipeline id if present.
func WithPipeline(ctx context.Context, id schema.PipelineID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id != 0 {
		if current, ok := ctx.Value(pipelineKey).(schema.PipelineID); ok && current == id {
			return log
		}
		log = log.With("pipeline", uint64(id))
	}
	return log
}

// WithPipelineActor annotates the logger with pipeline and actor identifiers.
func WithPipelineActor(ctx context.Context, id schema.PipelineID, actor string) pslog.Logger {
	log := WithPipeline(ctx, id)
	if actor != "" {
		log = log.With("actor", actor)
	}
	return log
}

// WithIFrame annotates the logger with frame coordinates when available.
func WithIFrame(log pslog.Logger, parent schema.PipelineID, subpage schema.SubpageID) pslog.Logger {
	if parent != 0 {
		log = log.With("parent", uint64(parent))
	}
	log = log.With("subpage", uint32(subpage))
	return log
}

// WithLoad annotates the logger with load metadata when available.
func WithLoad(log pslog.Logger, load schema.LoadData) pslog.Logger {
	if load.URL != "" {
		log = log.With("url", load.URL)
	}
	if load.Method != "" && load.Method != "GET" {
		log = log.With("method", load.Method)
	}
	return log
}

// ContextWithPipeline stores the pipeline marker on the context so later
// WithPipeline calls do not repeat the field.
func ContextWithPipeline(ctx context.Context, id schema.PipelineID) context.Context {
	if ctx == nil || id == 0 {
		return ctx
	}
	return context.WithValue(ctx, pipelineKey, id)
}

// ContextWithPipelineLogger attaches the logger and pipeline marker to the
// context handed to a pipeline's actors.
func ContextWithPipelineLogger(ctx context.Context, log pslog.Logger, id schema.PipelineID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithPipeline(ctx, id)
}
