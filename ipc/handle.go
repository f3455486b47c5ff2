package ipc

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// The handle table maps wire references to live endpoints, so a channel
// embedded in a message payload survives encode/decode within the process
// and can be proxied by a bridge beyond it. Ids are random to stay unique
// across cooperating processes.
var handleTable sync.Map // uint64 -> endpoint (*state[T] or *proxy)

func newHandleID() uint64 {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic(fmt.Sprintf("ipc: handle id entropy: %v", err))
		}
		id := binary.BigEndian.Uint64(buf[:])
		if id == 0 {
			continue
		}
		if _, loaded := handleTable.LoadOrStore(id, nil); !loaded {
			return id
		}
	}
}

func (st *state[T]) ensureHandle() uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.handle == 0 {
		st.handle = newHandleID()
		handleTable.Store(st.handle, st)
	}
	return st.handle
}

func dropHandle(h uint64) {
	if h != 0 {
		handleTable.Delete(h)
	}
}

// deliverRaw lets a bridge hand remote traffic to a local endpoint without
// knowing its payload type.
type rawDeliverer interface {
	deliverRaw(raw json.RawMessage, closeAfter bool) error
}

func (st *state[T]) deliverRaw(raw json.RawMessage, closeAfter bool) error {
	if len(raw) > 0 {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode channel value: %w", err)
		}
		if st.oneshot {
			if err := resolveValue(st, v); err != nil {
				return err
			}
			return nil
		}
		if err := sendValue(st, v); err != nil {
			return err
		}
	}
	if closeAfter {
		if st.oneshot {
			return abandonReply(st)
		}
		closeSend(st)
	}
	return nil
}

type wireHandle struct {
	Chan  string `json:"$chan,omitempty"`
	Reply string `json:"$reply,omitempty"`
}

func parseHandle(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrHandleUnknown, s)
	}
	return id, nil
}

func formatHandle(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// MarshalJSON encodes the sender as a handle reference.
func (s Sender[T]) MarshalJSON() ([]byte, error) {
	if s.px != nil {
		return json.Marshal(wireHandle{Chan: formatHandle(s.px.id)})
	}
	if s.st == nil {
		return []byte("null"), nil
	}
	return json.Marshal(wireHandle{Chan: formatHandle(s.st.ensureHandle())})
}

// UnmarshalJSON resolves a handle reference back to its live endpoint.
func (s *Sender[T]) UnmarshalJSON(b []byte) error {
	*s = Sender[T]{}
	if string(b) == "null" {
		return nil
	}
	var wh wireHandle
	if err := json.Unmarshal(b, &wh); err != nil {
		return err
	}
	id, err := parseHandle(wh.Chan)
	if err != nil {
		return err
	}
	ep, ok := handleTable.Load(id)
	if !ok || ep == nil {
		return fmt.Errorf("%w: %d", ErrHandleUnknown, id)
	}
	if st, ok := ep.(*state[T]); ok {
		s.st = st
		return nil
	}
	if px, ok := ep.(*proxy); ok {
		s.px = px
		return nil
	}
	return fmt.Errorf("%w: %d", ErrHandleMismatch, id)
}

// MarshalJSON encodes the reply pipe as a handle reference.
func (r ReplyTo[T]) MarshalJSON() ([]byte, error) {
	if r.px != nil {
		return json.Marshal(wireHandle{Reply: formatHandle(r.px.id)})
	}
	if r.st == nil {
		return []byte("null"), nil
	}
	return json.Marshal(wireHandle{Reply: formatHandle(r.st.ensureHandle())})
}

// UnmarshalJSON resolves a handle reference back to its live reply pipe.
func (r *ReplyTo[T]) UnmarshalJSON(b []byte) error {
	*r = ReplyTo[T]{}
	if string(b) == "null" {
		return nil
	}
	var wh wireHandle
	if err := json.Unmarshal(b, &wh); err != nil {
		return err
	}
	id, err := parseHandle(wh.Reply)
	if err != nil {
		return err
	}
	ep, ok := handleTable.Load(id)
	if !ok || ep == nil {
		return fmt.Errorf("%w: %d", ErrHandleUnknown, id)
	}
	if st, ok := ep.(*state[T]); ok {
		r.st = st
		return nil
	}
	if px, ok := ep.(*proxy); ok {
		r.px = px
		return nil
	}
	return fmt.Errorf("%w: %d", ErrHandleMismatch, id)
}

func proxySendValue[T any](px *proxy, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode channel value: %w", err)
	}
	return px.send(raw)
}

func proxyResolveValue[T any](px *proxy, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode reply value: %w", err)
	}
	return px.resolve(raw)
}
