package ipc

import (
	"errors"
	"testing"
	"time"
)

func TestSendReceiveOrder(t *testing.T) {
	tx, rx := New[int]()
	for i := 0; i < 100; i++ {
		if err := tx.Send(i); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	for i := 0; i < 100; i++ {
		v, err := rx.Receive()
		if err != nil {
			t.Fatalf("receive %d: %v", i, err)
		}
		if v != i {
			t.Fatalf("out of order: got %d at position %d", v, i)
		}
	}
}

func TestSendNeverBlocks(t *testing.T) {
	tx, rx := New[int]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			if err := tx.Send(i); err != nil {
				t.Errorf("send %d: %v", i, err)
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sends blocked without a reader")
	}
	v, err := rx.Receive()
	if err != nil || v != 0 {
		t.Fatalf("unexpected first value: %d, %v", v, err)
	}
}

func TestTryReceive(t *testing.T) {
	tx, rx := New[string]()
	if _, ok, err := rx.TryReceive(); ok || err != nil {
		t.Fatalf("expected empty poll, got ok=%v err=%v", ok, err)
	}
	if err := tx.Send("one"); err != nil {
		t.Fatalf("send: %v", err)
	}
	v, ok, err := rx.TryReceive()
	if !ok || err != nil || v != "one" {
		t.Fatalf("unexpected poll result: %q, %v, %v", v, ok, err)
	}
	if err := tx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok, err := rx.TryReceive(); ok || !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected disconnection after close, got ok=%v err=%v", ok, err)
	}
}

func TestSenderCloseDrainsBeforeDisconnect(t *testing.T) {
	tx, rx := New[int]()
	for i := 1; i <= 3; i++ {
		if err := tx.Send(i); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if err := tx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := tx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := tx.Send(4); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected send after close to fail, got %v", err)
	}
	for i := 1; i <= 3; i++ {
		v, err := rx.Receive()
		if err != nil || v != i {
			t.Fatalf("drain %d: got %d, %v", i, v, err)
		}
	}
	if _, err := rx.Receive(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected disconnection after drain, got %v", err)
	}
}

func TestReceiverCloseDiscardsQueue(t *testing.T) {
	tx, rx := New[int]()
	if err := tx.Send(1); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := rx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := tx.Send(2); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected send after receiver close to fail, got %v", err)
	}
	if _, ok, err := rx.TryReceive(); ok || !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected the queue to be gone, got ok=%v err=%v", ok, err)
	}
}

func TestCloseWakesBlockedReceive(t *testing.T) {
	for name, closeFn := range map[string]func(Sender[int], Receiver[int]) error{
		"sender":   func(tx Sender[int], _ Receiver[int]) error { return tx.Close() },
		"receiver": func(_ Sender[int], rx Receiver[int]) error { return rx.Close() },
	} {
		tx, rx := New[int]()
		errCh := make(chan error, 1)
		go func() {
			_, err := rx.Receive()
			errCh <- err
		}()
		time.Sleep(10 * time.Millisecond)
		if err := closeFn(tx, rx); err != nil {
			t.Fatalf("%s close: %v", name, err)
		}
		select {
		case err := <-errCh:
			if !errors.Is(err, ErrDisconnected) {
				t.Fatalf("%s close: expected disconnection, got %v", name, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s close did not wake the receiver", name)
		}
	}
}

func TestZeroValueEndpoints(t *testing.T) {
	var tx Sender[int]
	if err := tx.Send(1); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected zero sender to be disconnected, got %v", err)
	}
	if err := tx.Close(); err != nil {
		t.Fatalf("zero sender close: %v", err)
	}
	var rx Receiver[int]
	if _, err := rx.Receive(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected zero receiver to be disconnected, got %v", err)
	}
	if _, ok, err := rx.TryReceive(); ok || !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected zero receiver poll to fail, got ok=%v err=%v", ok, err)
	}
	if err := rx.Close(); err != nil {
		t.Fatalf("zero receiver close: %v", err)
	}
}

func receiveOrTimeout[T any](t *testing.T, rx Receiver[T]) T {
	t.Helper()
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := rx.Receive()
		ch <- result{v: v, err: err}
	}()
	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("receive: %v", res.err)
		}
		return res.v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a value")
	}
	panic("unreachable")
}

func expectDisconnected[T any](t *testing.T, rx Receiver[T]) {
	t.Helper()
	ch := make(chan error, 1)
	go func() {
		_, err := rx.Receive()
		ch <- err
	}()
	select {
	case err := <-ch:
		if !errors.Is(err, ErrDisconnected) {
			t.Fatalf("expected disconnection, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for disconnection")
	}
}
