package scenario

import (
	"context"
	"testing"
	"time"

	"pkt.systems/switchyard/core"
	"pkt.systems/switchyard/internal/diag"
	"pkt.systems/switchyard/internal/sim"
	"pkt.systems/switchyard/schema"
)

func TestRunnerDrivesDefaultScenario(t *testing.T) {
	spawner := sim.NewSpawner(nil)
	embedder := sim.NewEmbedder(schema.ClientWindow{Size: schema.WindowSize{Width: 1024, Height: 768}}, nil)
	provider := sim.NewProvider(schema.EngineConfig{}, nil)
	agg := diag.New(64, nil)

	sup, err := core.New(schema.EngineConfig{ShutdownTimeout: 200 * time.Millisecond}, core.Deps{
		Spawner:    spawner,
		Paint:      provider,
		Compositor: embedder,
		Window:     embedder,
		Clipboard:  embedder,
		Chrome:     embedder,
		Viewport:   embedder,
		Diag:       agg,
	})
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("start supervisor: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Stop(ctx)
	}()

	sc, err := Default()
	if err != nil {
		t.Fatalf("default scenario: %v", err)
	}
	runner := NewRunner(supervisorDriver{sup}, spawner, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runner.Run(ctx, sc); err != nil {
		t.Fatalf("run scenario: %v", err)
	}

	stats := embedder.Stats()
	if stats.AlertsShown != 1 {
		t.Fatalf("expected one alert, got %+v", stats)
	}
	// example.test, the iframe, the script load, and the back traversal
	// all complete a load.
	if stats.LoadsCompleted < 4 {
		t.Fatalf("expected at least four completed loads, got %+v", stats)
	}
	if stats.FaviconsSeen == 0 {
		t.Fatalf("expected a favicon, got %+v", stats)
	}

	var panics, faults int
	for _, rec := range agg.Snapshot() {
		switch rec.Entry.Kind {
		case schema.LogPanic:
			panics++
			if rec.Entry.Reason != "scripted fault" {
				t.Fatalf("unexpected panic reason: %+v", rec.Entry)
			}
		case schema.LogError:
			faults++
		}
	}
	if panics != 1 || faults != 1 {
		t.Fatalf("expected one panic and one closure fault, got %d and %d", panics, faults)
	}

	snap, err := sup.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Pipelines) != 0 {
		t.Fatalf("expected empty registry after the crash, got %+v", snap.Pipelines)
	}
}

func TestRunnerRejectsStepsBeforeLoad(t *testing.T) {
	runner := NewRunner(supervisorDriver{}, sim.NewSpawner(nil), nil)
	sc := Scenario{Version: 1, Steps: []Step{{Action: ActionAlert, Message: "hi"}}}
	if err := runner.Run(context.Background(), sc); err == nil {
		t.Fatal("expected validation to reject the scenario")
	}
}

// supervisorDriver adapts the core supervisor to the Driver surface the
// runner drives in production through the engine.
type supervisorDriver struct {
	sup *core.Supervisor
}

func (d supervisorDriver) LoadURL(ctx context.Context, load schema.LoadData) (schema.PipelineID, error) {
	return d.sup.LoadURL(ctx, load)
}

func (d supervisorDriver) Navigate(ctx context.Context, iframe *schema.IFrameRef, dir schema.NavigationDirection) error {
	return d.sup.Navigate(ctx, iframe, dir)
}

func (d supervisorDriver) InjectInput(ctx context.Context, msg schema.ScriptMsg) error {
	return d.sup.Inject(ctx, msg)
}

func (d supervisorDriver) Snapshot(ctx context.Context) (core.Snapshot, error) {
	return d.sup.Snapshot(ctx)
}
