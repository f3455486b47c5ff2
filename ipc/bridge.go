package ipc

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"pkt.systems/pslog"
)

const maxFrame = 16 << 20

// Bridge carries message envelopes across a byte stream and keeps the
// channel endpoints embedded in them working: handle references crossing
// the bridge become proxies whose traffic is routed back in tx frames.
// When the stream dies, every endpoint exported over it is closed, so
// peers observe the standard disconnection signal rather than hanging.
type Bridge struct {
	rw      io.ReadWriteCloser
	log     pslog.Logger
	writeMu sync.Mutex
	in      Sender[json.RawMessage]
	inbox   Receiver[json.RawMessage]
	closed  atomic.Bool
	once    sync.Once

	refMu    sync.Mutex
	imported map[uint64]*proxy
	exported map[uint64]struct{}
}

type frame struct {
	T     string          `json:"t"`
	H     string          `json:"h,omitempty"`
	Close bool            `json:"close,omitempty"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

// NewBridge wraps rw and starts its read loop. The caller owns rw's
// lifetime through Close.
func NewBridge(rw io.ReadWriteCloser, logger pslog.Logger) *Bridge {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	in, inbox := New[json.RawMessage]()
	b := &Bridge{
		rw:       rw,
		log:      logger,
		in:       in,
		inbox:    inbox,
		imported: make(map[uint64]*proxy),
		exported: make(map[uint64]struct{}),
	}
	go b.readLoop()
	return b
}

// Send transmits one envelope, already encoded as JSON. Handle references
// inside it are noted so the peer's replies find their way back.
func (b *Bridge) Send(envJSON json.RawMessage) error {
	if b.closed.Load() {
		return ErrDisconnected
	}
	b.noteHandles(envJSON, true)
	return b.writeFrame(frame{T: "body", Raw: envJSON})
}

// Inbox returns the receiver of envelopes arriving from the peer.
func (b *Bridge) Inbox() Receiver[json.RawMessage] {
	return b.inbox
}

// Close tears the bridge down: the stream is closed, the inbox
// disconnects, imported proxies die, and every endpoint exported over this
// bridge is closed as if its remote holder crashed.
func (b *Bridge) Close() error {
	var err error
	b.once.Do(func() {
		b.closed.Store(true)
		err = b.rw.Close()
		b.in.Close()
		b.releaseRefs()
	})
	return err
}

func (b *Bridge) releaseRefs() {
	b.refMu.Lock()
	imported := b.imported
	exported := b.exported
	b.imported = map[uint64]*proxy{}
	b.exported = map[uint64]struct{}{}
	b.refMu.Unlock()
	for id := range imported {
		handleTable.Delete(id)
	}
	for id := range exported {
		ep, ok := handleTable.Load(id)
		if !ok {
			continue
		}
		if d, ok := ep.(rawDeliverer); ok {
			_ = d.deliverRaw(nil, true)
		}
	}
}

func (b *Bridge) writeFrame(f frame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode bridge frame: %w", err)
	}
	if len(raw) > maxFrame {
		return fmt.Errorf("bridge frame too large: %d bytes", len(raw))
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(raw)))
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if b.closed.Load() {
		return ErrDisconnected
	}
	if _, err := b.rw.Write(hdr[:]); err != nil {
		return fmt.Errorf("write bridge frame: %w", err)
	}
	if _, err := b.rw.Write(raw); err != nil {
		return fmt.Errorf("write bridge frame: %w", err)
	}
	return nil
}

func (b *Bridge) writeTx(id uint64, raw json.RawMessage, closeAfter bool) error {
	if b.closed.Load() {
		return ErrDisconnected
	}
	return b.writeFrame(frame{T: "tx", H: formatHandle(id), Close: closeAfter, Raw: raw})
}

func (b *Bridge) readLoop() {
	defer func() {
		b.closed.Store(true)
		b.in.Close()
		b.releaseRefs()
	}()
	var hdr [4]byte
	for {
		if _, err := io.ReadFull(b.rw, hdr[:]); err != nil {
			if err != io.EOF {
				b.log.Trace("bridge read ended", "err", err)
			}
			return
		}
		n := binary.BigEndian.Uint32(hdr[:])
		if n == 0 || n > maxFrame {
			b.log.Warn("bridge frame length out of range", "len", n)
			return
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(b.rw, buf); err != nil {
			b.log.Trace("bridge read ended", "err", err)
			return
		}
		var f frame
		if err := json.Unmarshal(buf, &f); err != nil {
			b.log.Warn("bridge frame decode failed", "err", err)
			return
		}
		switch f.T {
		case "body":
			b.noteHandles(f.Raw, false)
			if err := b.in.Send(f.Raw); err != nil {
				return
			}
		case "tx":
			b.handleTx(f)
		default:
			b.log.Warn("bridge frame kind unknown", "kind", f.T)
		}
	}
}

func (b *Bridge) handleTx(f frame) {
	id, err := parseHandle(f.H)
	if err != nil {
		b.log.Warn("bridge tx handle invalid", "handle", f.H)
		return
	}
	ep, ok := handleTable.Load(id)
	if !ok || ep == nil {
		b.log.Warn("bridge tx for unknown handle", "handle", id)
		return
	}
	d, ok := ep.(rawDeliverer)
	if !ok {
		b.log.Warn("bridge tx for non-local handle", "handle", id)
		return
	}
	if err := d.deliverRaw(f.Raw, f.Close); err != nil {
		b.log.Trace("bridge tx delivery failed", "handle", id, "err", err)
	}
}

// noteHandles walks an envelope for handle references. On the send side it
// records exports for closure propagation; on the receive side it imports
// unknown handles as proxies.
func (b *Bridge) noteHandles(raw json.RawMessage, sending bool) {
	if len(raw) == 0 {
		return
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	b.walkHandles(v, sending)
}

func (b *Bridge) walkHandles(v any, sending bool) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			if s, ok := t["$reply"].(string); ok {
				b.noteHandle(s, sending)
				return
			}
			if s, ok := t["$chan"].(string); ok {
				b.noteHandle(s, sending)
				return
			}
		}
		for _, vv := range t {
			b.walkHandles(vv, sending)
		}
	case []any:
		for _, vv := range t {
			b.walkHandles(vv, sending)
		}
	}
}

func (b *Bridge) noteHandle(s string, sending bool) {
	id, err := parseHandle(s)
	if err != nil {
		return
	}
	b.refMu.Lock()
	defer b.refMu.Unlock()
	if sending {
		if _, ok := handleTable.Load(id); ok {
			b.exported[id] = struct{}{}
		}
		return
	}
	if _, ok := handleTable.Load(id); ok {
		return
	}
	px := &proxy{id: id, br: b}
	if _, loaded := handleTable.LoadOrStore(id, px); !loaded {
		b.imported[id] = px
	}
}

// proxy stands in for an endpoint living across a bridge.
type proxy struct {
	id       uint64
	br       *Bridge
	mu       sync.Mutex
	consumed bool
}

func (p *proxy) send(raw json.RawMessage) error {
	p.mu.Lock()
	if p.consumed {
		p.mu.Unlock()
		return ErrDisconnected
	}
	p.mu.Unlock()
	return p.br.writeTx(p.id, raw, false)
}

func (p *proxy) resolve(raw json.RawMessage) error {
	p.mu.Lock()
	if p.consumed {
		p.mu.Unlock()
		return ErrAlreadyReplied
	}
	p.consumed = true
	p.mu.Unlock()
	return p.br.writeTx(p.id, raw, true)
}

func (p *proxy) close() error {
	p.mu.Lock()
	if p.consumed {
		p.mu.Unlock()
		return nil
	}
	p.consumed = true
	p.mu.Unlock()
	return p.br.writeTx(p.id, nil, true)
}
