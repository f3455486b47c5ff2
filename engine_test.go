package switchyard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/switchyard/internal/diag"
	"pkt.systems/switchyard/internal/sim"
	"pkt.systems/switchyard/schema"
)

func TestEngineSessionEndToEnd(t *testing.T) {
	spawner := sim.NewSpawner(nil)
	embedder := sim.NewEmbedder(schema.ClientWindow{
		Size: schema.WindowSize{Width: 800, Height: 600},
	}, nil)
	extra := diag.New(32, nil)
	dir := t.TempDir()

	eng, err := New(
		schema.EngineConfig{
			ShutdownTimeout: 200 * time.Millisecond,
			DiagnosticsRing: 64,
			DiagnosticsDir:  dir,
		},
		Deps{
			Spawner:    spawner,
			Compositor: embedder,
			Window:     embedder,
			Clipboard:  embedder,
			Chrome:     embedder,
			Viewport:   embedder,
		},
		WithLogSink(extra),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = eng.Stop(stopCtx)
	})

	spawner.BehaviorFor("https://example.test/", sim.Behavior{Title: "Example"})
	rootID, err := eng.LoadURL(ctx, schema.LoadData{URL: "https://example.test/"})
	if err != nil {
		t.Fatalf("LoadURL: %v", err)
	}
	waitFor(t, func() bool { return embedder.Stats().LoadsCompleted >= 1 })
	waitFor(t, func() bool { title, _ := embedder.Title(rootID); return title == "Example" })

	snap, err := eng.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Root != rootID || snap.Focused != rootID {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	root := spawner.Actor(rootID)
	if root == nil {
		t.Fatalf("expected a live root actor")
	}
	childID, err := root.LoadIFrame(1, "https://frames.test/ad", true)
	if err != nil {
		t.Fatalf("LoadIFrame: %v", err)
	}
	waitFor(t, func() bool {
		snap, err := eng.Snapshot(ctx)
		return err == nil && len(snap.Pipelines) == 2
	})

	ok, err := root.Alert("hello")
	if err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if !ok {
		t.Fatalf("expected the embedder to accept the alert")
	}
	if got := embedder.Stats().AlertsShown; got != 1 {
		t.Fatalf("expected one alert, got %d", got)
	}

	child := spawner.Actor(childID)
	if child == nil {
		t.Fatalf("expected a live child actor")
	}
	child.Crash("engine test fault")
	waitFor(t, func() bool {
		snap, err := eng.Snapshot(ctx)
		return err == nil && len(snap.Pipelines) == 1
	})

	var panics, crashes int
	for _, rec := range extra.Snapshot() {
		switch rec.Entry.Kind {
		case schema.LogPanic:
			panics++
		case schema.LogError:
			crashes++
		}
	}
	if panics != 1 || crashes != 1 {
		t.Fatalf("expected one panic and one crash record in the extra sink, got %d and %d", panics, crashes)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := eng.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	for _, name := range []string{"diagnostics.jsonl", "diagnostics.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s after stop: %v", name, err)
		}
	}
	records, err := diag.ReadFile(filepath.Join(dir, "diagnostics.jsonl"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(records) == 0 {
		t.Fatalf("expected attached diagnostics to capture the crash")
	}
}

func TestEngineStartStopLifecycle(t *testing.T) {
	eng, err := New(
		schema.EngineConfig{ShutdownTimeout: 100 * time.Millisecond},
		Deps{Spawner: sim.NewSpawner(nil)},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := eng.Stop(context.Background()); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}
	if err := eng.Wait(); err == nil {
		t.Fatalf("expected Wait before Start to fail")
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.Start(context.Background()); err == nil {
		t.Fatalf("expected the second start to be rejected")
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := eng.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := eng.Wait(); err != nil {
		t.Fatalf("Wait after Stop: %v", err)
	}
	if err := eng.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestEngineShutdownDrainsPipelines(t *testing.T) {
	spawner := sim.NewSpawner(nil)
	eng, err := New(
		schema.EngineConfig{ShutdownTimeout: time.Second},
		Deps{Spawner: spawner},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.LoadURL(ctx, schema.LoadData{URL: "https://drain.test/"}); err != nil {
		t.Fatalf("LoadURL: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	waitFor(t, func() bool { return spawner.Live() == 0 })
}

func TestEngineRequiresSpawner(t *testing.T) {
	if _, err := New(schema.EngineConfig{}, Deps{}); err == nil {
		t.Fatalf("expected an error without a spawner")
	}
}

func TestEngineDefaultPaintHonorsGPUConfig(t *testing.T) {
	spawner := sim.NewSpawner(nil)
	limits := schema.GLLimits{
		MaxTextureSize:               2048,
		MaxCubeMapTextureSize:        1024,
		MaxCombinedTextureImageUnits: 16,
		MaxRenderbufferSize:          2048,
		MaxVertexAttribs:             8,
	}
	eng, err := New(
		schema.EngineConfig{
			ShutdownTimeout: 200 * time.Millisecond,
			GPUEnabled:      true,
			GPULimits:       limits,
		},
		Deps{Spawner: spawner},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Stop(stopCtx)
	})

	rootID, err := eng.LoadURL(ctx, schema.LoadData{URL: "https://gpu.test/"})
	if err != nil {
		t.Fatalf("LoadURL: %v", err)
	}
	root := spawner.Actor(rootID)
	if root == nil {
		t.Fatalf("expected a live root actor")
	}
	result, err := root.CreateWebGL(schema.CanvasSize{Width: 64, Height: 64}, schema.GLContextAttributes{})
	if err != nil {
		t.Fatalf("CreateWebGL: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("expected a context, got error %q", result.Error)
	}
	if result.Limits != limits {
		t.Fatalf("unexpected limits: %+v", result.Limits)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}
