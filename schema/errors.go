package schema

import "errors"

var (
	// ErrPipelineNotFound indicates a message referenced an unregistered or
	// already exited pipeline.
	ErrPipelineNotFound = errors.New("pipeline not found")
	// ErrPipelineExists indicates an attempt to register an id twice.
	ErrPipelineExists = errors.New("pipeline already registered")
	// ErrSubpageInUse indicates an iframe slot already has a registered child.
	ErrSubpageInUse = errors.New("subpage already in use")
	// ErrEmptyURL indicates load data without a target URL.
	ErrEmptyURL = errors.New("load data has no url")
	// ErrUnknownKind indicates an envelope whose discriminant names no
	// variant of its direction.
	ErrUnknownKind = errors.New("unknown message kind")
	// ErrWrongDirection indicates an envelope decoded against the wrong
	// message direction.
	ErrWrongDirection = errors.New("wrong message direction")
	// ErrShuttingDown indicates the supervisor no longer accepts new
	// pipelines or commands.
	ErrShuttingDown = errors.New("supervisor shutting down")
	// ErrGPUUnavailable indicates the paint provider cannot create GPU
	// contexts.
	ErrGPUUnavailable = errors.New("gpu unavailable")
	// ErrNoHistory indicates a history traversal past either end of a
	// browsing context's session history.
	ErrNoHistory = errors.New("no history entry in that direction")
)
