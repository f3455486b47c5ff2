package ipc

// NewReply returns the two halves of a single-use reply pipe. The request
// carries the ReplyTo; the requester blocks on the ReplyRx. The pipe
// answers at most once: Resolve delivers the value and closes it, Abandon
// closes it empty, and whichever runs second is a no-op or error, never a
// second delivery.
func NewReply[T any]() (ReplyTo[T], ReplyRx[T]) {
	st := newState[T](true)
	return ReplyTo[T]{st: st}, ReplyRx[T]{rx: Receiver[T]{st: st}}
}

// ReplyTo is the answering half of a reply pipe, embedded in request
// payloads. The zero value is disconnected.
type ReplyTo[T any] struct {
	st *state[T]
	px *proxy
}

// Resolve delivers the reply and closes the pipe. A second Resolve fails
// with ErrAlreadyReplied; resolving after the requester dropped its half
// fails with ErrDisconnected.
func (r ReplyTo[T]) Resolve(v T) error {
	if r.px != nil {
		return proxyResolveValue(r.px, v)
	}
	if r.st == nil {
		return ErrDisconnected
	}
	return resolveValue(r.st, v)
}

// Abandon closes the pipe without a value, so the requester observes
// disconnection instead of hanging. Safe to defer: after a Resolve it does
// nothing.
func (r ReplyTo[T]) Abandon() error {
	if r.px != nil {
		return r.px.close()
	}
	if r.st == nil {
		return nil
	}
	return abandonReply(r.st)
}

// ReplyRx is the requester's half of a reply pipe.
type ReplyRx[T any] struct {
	rx Receiver[T]
}

// Receive blocks until the reply arrives or the pipe closes.
func (r ReplyRx[T]) Receive() (T, error) {
	return r.rx.Receive()
}

// TryReceive polls for the reply without blocking.
func (r ReplyRx[T]) TryReceive() (T, bool, error) {
	return r.rx.TryReceive()
}

// Close drops the requester half, typically during teardown of the actor
// that issued the request. A later Resolve observes ErrDisconnected.
func (r ReplyRx[T]) Close() error {
	return r.rx.Close()
}
