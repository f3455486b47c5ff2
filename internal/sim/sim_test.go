package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/switchyard/core"
	"pkt.systems/switchyard/ipc"
	"pkt.systems/switchyard/schema"
)

func TestSpawnerPlaysLoadSequence(t *testing.T) {
	sp := NewSpawner(nil)
	h := newHarness(t, 1, "https://example.test/page")
	if err := sp.Spawn(context.Background(), h.spec); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if _, ok := nextScript(t, h.scriptRx).(schema.ActivateDocument); !ok {
		t.Fatalf("expected activation first")
	}
	if _, ok := nextScript(t, h.scriptRx).(schema.HeadParsed); !ok {
		t.Fatalf("expected head parsed second")
	}
	title, ok := nextScript(t, h.scriptRx).(schema.SetTitle)
	if !ok || title.Title == nil || *title.Title != "example.test" {
		t.Fatalf("expected derived title, got %#v", title)
	}
	if _, ok := nextScript(t, h.scriptRx).(schema.DOMLoad); !ok {
		t.Fatalf("expected dom load")
	}
	state, ok := nextScript(t, h.scriptRx).(schema.SetDocumentState)
	if !ok || state.State != schema.DocumentIdle {
		t.Fatalf("expected idle document state, got %#v", state)
	}
	if _, ok := nextScript(t, h.scriptRx).(schema.LoadComplete); !ok {
		t.Fatalf("expected load complete")
	}
}

func TestActorExitHandshake(t *testing.T) {
	sp := NewSpawner(nil)
	h := newHarness(t, 2, "https://example.test/")
	sp.BehaviorFor("https://example.test/", Behavior{Quiet: true})
	if err := sp.Spawn(context.Background(), h.spec); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if sp.Actor(2) == nil {
		t.Fatalf("expected live actor")
	}

	if err := h.controlTx.Send(schema.ExitPipeline{}); err != nil {
		t.Fatalf("send exit: %v", err)
	}
	exited, ok := nextScript(t, h.scriptRx).(schema.PipelineExited)
	if !ok || exited.Pipeline != 2 {
		t.Fatalf("expected exit report, got %#v", exited)
	}
	expectScriptClosed(t, h.scriptRx)
	waitLive(t, sp.Live, 0)
	if sp.Actor(2) != nil {
		t.Fatalf("expected actor forgotten after exit")
	}
}

func TestActorPanicBehaviorReportsThenCloses(t *testing.T) {
	sp := NewSpawner(nil)
	h := newHarness(t, 3, "https://crash.test/")
	sp.BehaviorFor("https://crash.test/", Behavior{Quiet: true, PanicReason: "scripted fault"})
	if err := sp.Spawn(context.Background(), h.spec); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	msg := nextScript(t, h.scriptRx)
	report, ok := msg.(schema.ReportLog)
	if !ok {
		t.Fatalf("expected panic report, got %#v", msg)
	}
	if report.Pipeline == nil || *report.Pipeline != 3 || report.Actor != "script" {
		t.Fatalf("unexpected report attribution: %+v", report)
	}
	if report.Entry.Kind != schema.LogPanic || report.Entry.Reason != "scripted fault" {
		t.Fatalf("unexpected entry: %+v", report.Entry)
	}
	if report.Entry.Backtrace == "" {
		t.Fatalf("expected a backtrace")
	}
	expectScriptClosed(t, h.scriptRx)
	waitLive(t, sp.Live, 0)
}

func TestActorCrashInjection(t *testing.T) {
	sp := NewSpawner(nil)
	h := newHarness(t, 4, "https://example.test/")
	sp.BehaviorFor("https://example.test/", Behavior{Quiet: true})
	if err := sp.Spawn(context.Background(), h.spec); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	sp.Actor(4).Crash("injected fault")
	report, ok := nextScript(t, h.scriptRx).(schema.ReportLog)
	if !ok || report.Entry.Reason != "injected fault" {
		t.Fatalf("expected injected fault report, got %#v", report)
	}
	expectScriptClosed(t, h.scriptRx)
}

func TestActorAcknowledgesVisibility(t *testing.T) {
	sp := NewSpawner(nil)
	h := newHarness(t, 5, "https://example.test/")
	sp.BehaviorFor("https://example.test/", Behavior{Quiet: true})
	if err := sp.Spawn(context.Background(), h.spec); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if err := h.controlTx.Send(schema.VisibilityChange{Visible: false}); err != nil {
		t.Fatalf("send visibility: %v", err)
	}
	done, ok := nextScript(t, h.scriptRx).(schema.VisibilityChangeComplete)
	if !ok || done.Pipeline != 5 || done.Visible {
		t.Fatalf("expected hide acknowledgement, got %#v", done)
	}
}

func TestLayoutActorReportsViewport(t *testing.T) {
	sp := NewSpawner(nil)
	h := newHarness(t, 6, "https://mobile.test/")
	sp.BehaviorFor("https://mobile.test/", Behavior{
		Quiet:    true,
		Viewport: &schema.ViewportConstraints{Width: 980, Height: 1743, InitialZoom: 1},
	})
	if err := sp.Spawn(context.Background(), h.spec); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	msg := nextLayout(t, h.layoutRx)
	vc, ok := msg.(schema.ViewportConstrained)
	if !ok || vc.Pipeline != 6 || vc.Constraints.Width != 980 {
		t.Fatalf("expected viewport report, got %#v", msg)
	}
	if err := h.layoutControlTx.Send(schema.ExitNow{}); err != nil {
		t.Fatalf("send exit now: %v", err)
	}
	if _, err := h.layoutRx.Receive(); !errors.Is(err, ipc.ErrDisconnected) {
		t.Fatalf("expected layout channel closed, got %v", err)
	}
}

func TestProviderCanvasLifecycle(t *testing.T) {
	p := NewProvider(schema.EngineConfig{}, nil)
	canvas, err := p.CreateCanvas(schema.CanvasSize{Width: 300, Height: 150})
	if err != nil {
		t.Fatalf("create canvas: %v", err)
	}
	waitLive(t, p.Live, 1)
	if err := canvas.Send(schema.FillRect{Rect: schema.Rect{Width: 10, Height: 10}}); err != nil {
		t.Fatalf("send fill: %v", err)
	}
	if err := canvas.Send(schema.CloseCanvas{}); err != nil {
		t.Fatalf("send close: %v", err)
	}
	waitLive(t, p.Live, 0)
}

func TestProviderHonorsGPUAvailability(t *testing.T) {
	off := NewProvider(schema.EngineConfig{}, nil)
	if _, _, err := off.CreateWebGL(schema.CanvasSize{}, schema.GLContextAttributes{}); !errors.Is(err, schema.ErrGPUUnavailable) {
		t.Fatalf("expected gpu unavailable, got %v", err)
	}

	on := NewProvider(schema.EngineConfig{GPUEnabled: true, GPULimits: schema.GLLimits{MaxTextureSize: 2048}}, nil)
	canvas, limits, err := on.CreateWebGL(schema.CanvasSize{Width: 64, Height: 64}, schema.GLContextAttributes{})
	if err != nil {
		t.Fatalf("create webgl: %v", err)
	}
	if limits.MaxTextureSize != 2048 {
		t.Fatalf("unexpected limits: %+v", limits)
	}
	canvas.Close()
	waitLive(t, on.Live, 0)
}

func TestEmbedderRecordsSession(t *testing.T) {
	e := NewEmbedder(schema.ClientWindow{Size: schema.WindowSize{Width: 800, Height: 600}}, nil)

	reply, rx := ipc.NewReply[bool]()
	e.Alert(1, "hello", reply)
	shown, err := rx.Receive()
	if err != nil || !shown {
		t.Fatalf("expected alert shown, got %v %v", shown, err)
	}

	e.SetContents("clip")
	if e.Contents() != "clip" {
		t.Fatalf("clipboard round trip failed")
	}

	e.ScrollFragment(1, 2, schema.Point{X: 0, Y: 42}, false)
	if off := e.ScrollOffset(1, 2); off.Y != 42 {
		t.Fatalf("expected recorded offset, got %+v", off)
	}
	if off := e.ScrollOffset(1, 3); off != (schema.Point{}) {
		t.Fatalf("expected zero offset for unknown layer, got %+v", off)
	}

	title := "Example"
	e.SetTitle(1, &title)
	if got, ok := e.Title(1); !ok || got != "Example" {
		t.Fatalf("expected recorded title, got %q %v", got, ok)
	}
	e.SetTitle(1, nil)
	if _, ok := e.Title(1); ok {
		t.Fatalf("expected title cleared")
	}

	e.MoveTo(schema.WindowPoint{X: 10, Y: 20})
	e.ResizeTo(schema.WindowSize{Width: 1024, Height: 768})
	win := e.ClientWindow()
	if win.Origin.X != 10 || win.Size.Width != 1024 {
		t.Fatalf("unexpected window: %+v", win)
	}

	e.LoadComplete(1)
	e.KeyEvent("a", "a", schema.KeyPressed, 0)
	stats := e.Stats()
	if stats.AlertsShown != 1 || stats.LoadsCompleted != 1 || stats.KeysSeen != 1 || stats.Scrolls != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

type harness struct {
	spec            core.SpawnSpec
	scriptRx        ipc.Receiver[schema.ScriptMsg]
	layoutRx        ipc.Receiver[schema.LayoutMsg]
	controlTx       ipc.Sender[schema.ControlMsg]
	layoutControlTx ipc.Sender[schema.LayoutControlMsg]
}

func newHarness(t *testing.T, id schema.PipelineID, url string) harness {
	t.Helper()
	scriptTx, scriptRx := ipc.New[schema.ScriptMsg]()
	layoutTx, layoutRx := ipc.New[schema.LayoutMsg]()
	controlTx, controlRx := ipc.New[schema.ControlMsg]()
	lcTx, lcRx := ipc.New[schema.LayoutControlMsg]()
	return harness{
		spec: core.SpawnSpec{
			ID:            id,
			Load:          schema.LoadData{URL: url, Method: "GET"},
			Script:        scriptTx,
			Layout:        layoutTx,
			Control:       controlRx,
			LayoutControl: lcRx,
		},
		scriptRx:        scriptRx,
		layoutRx:        layoutRx,
		controlTx:       controlTx,
		layoutControlTx: lcTx,
	}
}

func nextScript(t *testing.T, rx ipc.Receiver[schema.ScriptMsg]) schema.ScriptMsg {
	t.Helper()
	type result struct {
		msg schema.ScriptMsg
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := rx.Receive()
		ch <- result{msg, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("script receive: %v", r.err)
		}
		return r.msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a script message")
	}
	panic("unreachable")
}

func nextLayout(t *testing.T, rx ipc.Receiver[schema.LayoutMsg]) schema.LayoutMsg {
	t.Helper()
	type result struct {
		msg schema.LayoutMsg
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := rx.Receive()
		ch <- result{msg, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("layout receive: %v", r.err)
		}
		return r.msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a layout message")
	}
	panic("unreachable")
}

func expectScriptClosed(t *testing.T, rx ipc.Receiver[schema.ScriptMsg]) {
	t.Helper()
	ch := make(chan error, 1)
	go func() {
		_, err := rx.Receive()
		ch <- err
	}()
	select {
	case err := <-ch:
		if !errors.Is(err, ipc.ErrDisconnected) {
			t.Fatalf("expected closed script channel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for script channel closure")
	}
}

func waitLive(t *testing.T, count func() int, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d live actors, have %d", want, count())
}
