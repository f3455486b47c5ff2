// Package ipc provides the typed channel substrate the protocol runs on:
// one-directional, in-order, at-most-once endpoint pairs whose sends never
// block, plus single-use reply pipes and a bridge for carrying both across
// byte-stream boundaries. Endpoints embedded in message payloads serialize
// as process-local handle references.
package ipc

import (
	"errors"
	"sync"
)

var (
	// ErrDisconnected signals that the peer endpoint is gone: the sender
	// half was closed (observed by receivers once drained) or the receiver
	// half was dropped (observed by senders immediately).
	ErrDisconnected = errors.New("channel disconnected")
	// ErrAlreadyReplied signals a second resolve of a single-use reply
	// pipe.
	ErrAlreadyReplied = errors.New("reply pipe already resolved")
	// ErrHandleUnknown signals a wire handle with no live endpoint behind
	// it.
	ErrHandleUnknown = errors.New("unknown channel handle")
	// ErrHandleMismatch signals a wire handle resolving to an endpoint of a
	// different payload type.
	ErrHandleMismatch = errors.New("channel handle type mismatch")
)

// state is shared by the two endpoints of one channel.
type state[T any] struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      []T
	sendClosed bool
	recvClosed bool
	oneshot    bool
	consumed   bool
	handle     uint64
}

func newState[T any](oneshot bool) *state[T] {
	st := &state[T]{oneshot: oneshot}
	st.cond = sync.NewCond(&st.mu)
	return st
}

// New returns the sender and receiver endpoints of a channel. Values sent
// on one channel arrive in send order; nothing is guaranteed across
// channels.
func New[T any]() (Sender[T], Receiver[T]) {
	st := newState[T](false)
	return Sender[T]{st: st}, Receiver[T]{st: st}
}

// Sender is the emitting endpoint of a channel. The zero value is
// disconnected.
type Sender[T any] struct {
	st *state[T]
	px *proxy
}

// Send enqueues v for the paired receiver. It never blocks; it fails with
// ErrDisconnected once either endpoint is closed.
func (s Sender[T]) Send(v T) error {
	if s.px != nil {
		return proxySendValue(s.px, v)
	}
	if s.st == nil {
		return ErrDisconnected
	}
	return sendValue(s.st, v)
}

// Close drops the sender half. Pending values stay readable; afterwards the
// receiver observes ErrDisconnected. Idempotent.
func (s Sender[T]) Close() error {
	if s.px != nil {
		return s.px.close()
	}
	if s.st == nil {
		return nil
	}
	closeSend(s.st)
	return nil
}

// Receiver is the consuming endpoint of a channel. The zero value is
// disconnected.
type Receiver[T any] struct {
	st *state[T]
}

// Receive blocks until a value is available or the channel is
// disconnected. A closed sender is observed only after the queue drains.
func (r Receiver[T]) Receive() (T, error) {
	var zero T
	if r.st == nil {
		return zero, ErrDisconnected
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for len(r.st.queue) == 0 {
		if r.st.sendClosed || r.st.recvClosed {
			return zero, ErrDisconnected
		}
		r.st.cond.Wait()
	}
	v := r.st.queue[0]
	r.st.queue = r.st.queue[1:]
	return v, nil
}

// TryReceive returns the next value without blocking. ok is false when the
// queue is empty; err is ErrDisconnected once the channel is closed and
// drained.
func (r Receiver[T]) TryReceive() (v T, ok bool, err error) {
	if r.st == nil {
		return v, false, ErrDisconnected
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if len(r.st.queue) == 0 {
		if r.st.sendClosed || r.st.recvClosed {
			return v, false, ErrDisconnected
		}
		return v, false, nil
	}
	v = r.st.queue[0]
	r.st.queue = r.st.queue[1:]
	return v, true, nil
}

// Close drops the receiver half. Queued values are discarded and future
// sends fail with ErrDisconnected. Idempotent.
func (r Receiver[T]) Close() error {
	if r.st == nil {
		return nil
	}
	r.st.mu.Lock()
	r.st.recvClosed = true
	r.st.queue = nil
	r.st.cond.Broadcast()
	h := r.st.handle
	r.st.mu.Unlock()
	dropHandle(h)
	return nil
}

func sendValue[T any](st *state[T], v T) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.sendClosed || st.recvClosed {
		return ErrDisconnected
	}
	st.queue = append(st.queue, v)
	st.cond.Signal()
	return nil
}

func closeSend[T any](st *state[T]) {
	st.mu.Lock()
	st.sendClosed = true
	st.cond.Broadcast()
	h := st.handle
	st.mu.Unlock()
	dropHandle(h)
}

// resolveValue delivers the single value of a one-shot pipe and closes it.
func resolveValue[T any](st *state[T], v T) error {
	st.mu.Lock()
	if st.consumed {
		st.mu.Unlock()
		return ErrAlreadyReplied
	}
	st.consumed = true
	disconnected := st.recvClosed
	if !disconnected {
		st.queue = append(st.queue, v)
	}
	st.sendClosed = true
	st.cond.Broadcast()
	h := st.handle
	st.mu.Unlock()
	dropHandle(h)
	if disconnected {
		return ErrDisconnected
	}
	return nil
}

// abandonReply closes a one-shot pipe without a value. No-op after a
// resolve.
func abandonReply[T any](st *state[T]) error {
	st.mu.Lock()
	if st.consumed {
		st.mu.Unlock()
		return nil
	}
	st.consumed = true
	st.sendClosed = true
	st.cond.Broadcast()
	h := st.handle
	st.mu.Unlock()
	dropHandle(h)
	return nil
}
