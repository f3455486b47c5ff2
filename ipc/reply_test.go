package ipc

import (
	"errors"
	"testing"
	"time"
)

func TestReplyResolveDeliversOnce(t *testing.T) {
	reply, rx := NewReply[int]()
	if err := reply.Resolve(42); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	v, err := rx.Receive()
	if err != nil || v != 42 {
		t.Fatalf("unexpected reply: %d, %v", v, err)
	}
	if _, err := rx.Receive(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected the pipe to close after the reply, got %v", err)
	}
}

func TestReplyResolveTwice(t *testing.T) {
	reply, rx := NewReply[string]()
	if err := reply.Resolve("first"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := reply.Resolve("second"); !errors.Is(err, ErrAlreadyReplied) {
		t.Fatalf("expected second resolve to fail, got %v", err)
	}
	v, err := rx.Receive()
	if err != nil || v != "first" {
		t.Fatalf("unexpected reply: %q, %v", v, err)
	}
}

func TestReplyAbandon(t *testing.T) {
	reply, rx := NewReply[int]()
	if err := reply.Abandon(); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if err := reply.Abandon(); err != nil {
		t.Fatalf("second abandon: %v", err)
	}
	if err := reply.Resolve(1); !errors.Is(err, ErrAlreadyReplied) {
		t.Fatalf("expected resolve after abandon to fail, got %v", err)
	}
	if _, err := rx.Receive(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected abandonment to surface as disconnection, got %v", err)
	}
}

func TestReplyAbandonAfterResolve(t *testing.T) {
	reply, rx := NewReply[int]()
	if err := reply.Resolve(7); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := reply.Abandon(); err != nil {
		t.Fatalf("abandon after resolve: %v", err)
	}
	v, err := rx.Receive()
	if err != nil || v != 7 {
		t.Fatalf("abandon discarded the reply: %d, %v", v, err)
	}
}

func TestReplyResolveAfterRequesterGone(t *testing.T) {
	reply, rx := NewReply[int]()
	if err := rx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := reply.Resolve(9); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected resolve into a closed pipe to fail, got %v", err)
	}
}

func TestReplyWakesBlockedReceive(t *testing.T) {
	reply, rx := NewReply[string]()
	type result struct {
		v   string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := rx.Receive()
		ch <- result{v: v, err: err}
	}()
	time.Sleep(10 * time.Millisecond)
	if err := reply.Resolve("late"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	select {
	case res := <-ch:
		if res.err != nil || res.v != "late" {
			t.Fatalf("unexpected reply: %q, %v", res.v, res.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("resolve did not wake the receiver")
	}
}

func TestReplyTryReceive(t *testing.T) {
	reply, rx := NewReply[int]()
	if _, ok, err := rx.TryReceive(); ok || err != nil {
		t.Fatalf("expected empty poll, got ok=%v err=%v", ok, err)
	}
	if err := reply.Resolve(3); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	v, ok, err := rx.TryReceive()
	if !ok || err != nil || v != 3 {
		t.Fatalf("unexpected poll result: %d, %v, %v", v, ok, err)
	}
	if _, ok, err := rx.TryReceive(); ok || !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected the pipe to be consumed, got ok=%v err=%v", ok, err)
	}
}

func TestZeroValueReply(t *testing.T) {
	var reply ReplyTo[int]
	if err := reply.Resolve(1); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected zero reply endpoint to be disconnected, got %v", err)
	}
	if err := reply.Abandon(); err != nil {
		t.Fatalf("zero abandon: %v", err)
	}
	var rx ReplyRx[int]
	if _, err := rx.Receive(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected zero reply receiver to be disconnected, got %v", err)
	}
}
