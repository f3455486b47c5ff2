package ipc

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestSenderHandleRoundTrip(t *testing.T) {
	tx, rx := New[string]()
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(data, []byte(`"$chan"`)) {
		t.Fatalf("expected a channel handle, got %s", data)
	}
	again, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("second marshal: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("handle is not stable: %s vs %s", data, again)
	}
	var tx2 Sender[string]
	if err := json.Unmarshal(data, &tx2); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := tx2.Send("via handle"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if v := receiveOrTimeout(t, rx); v != "via handle" {
		t.Fatalf("unexpected value: %q", v)
	}
}

func TestReplyHandleRoundTrip(t *testing.T) {
	reply, rx := NewReply[int]()
	data, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(data, []byte(`"$reply"`)) {
		t.Fatalf("expected a reply handle, got %s", data)
	}
	var reply2 ReplyTo[int]
	if err := json.Unmarshal(data, &reply2); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := reply2.Resolve(11); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := reply.Resolve(12); !errors.Is(err, ErrAlreadyReplied) {
		t.Fatalf("expected both endpoints to share the pipe, got %v", err)
	}
	v, err := rx.Receive()
	if err != nil || v != 11 {
		t.Fatalf("unexpected reply: %d, %v", v, err)
	}
}

func TestHandleInsideEnvelope(t *testing.T) {
	type loadRequest struct {
		URL  string          `json:"url"`
		Done ReplyTo[string] `json:"done"`
	}
	reply, rx := NewReply[string]()
	data, err := json.Marshal(loadRequest{URL: "https://example.test/", Done: reply})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded loadRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.URL != "https://example.test/" {
		t.Fatalf("unexpected url: %q", decoded.URL)
	}
	if err := decoded.Done.Resolve("loaded"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	v, err := rx.Receive()
	if err != nil || v != "loaded" {
		t.Fatalf("unexpected reply: %q, %v", v, err)
	}
}

func TestZeroEndpointsMarshalNull(t *testing.T) {
	var tx Sender[int]
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "null" {
		t.Fatalf("expected null, got %s", data)
	}
	var tx2 Sender[int]
	if err := json.Unmarshal([]byte("null"), &tx2); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := tx2.Send(1); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected a null handle to stay disconnected, got %v", err)
	}
}

func TestUnknownHandle(t *testing.T) {
	for _, data := range []string{
		`{"$chan":"42"}`,
		`{"$chan":"0"}`,
		`{"$chan":"notanumber"}`,
		`{"bogus":"42"}`,
	} {
		var tx Sender[int]
		if err := json.Unmarshal([]byte(data), &tx); !errors.Is(err, ErrHandleUnknown) {
			t.Fatalf("%s: expected an unknown handle error, got %v", data, err)
		}
	}
}

func TestHandleTypeMismatch(t *testing.T) {
	tx, _ := New[int]()
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wrong Sender[string]
	if err := json.Unmarshal(data, &wrong); !errors.Is(err, ErrHandleMismatch) {
		t.Fatalf("expected a mismatch error, got %v", err)
	}
}

func TestClosedEndpointHandleExpires(t *testing.T) {
	tx, rx := New[int]()
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := rx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	var tx2 Sender[int]
	if err := json.Unmarshal(data, &tx2); !errors.Is(err, ErrHandleUnknown) {
		t.Fatalf("expected the handle to expire with the channel, got %v", err)
	}
}
