package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/switchyard"
	"pkt.systems/switchyard/internal/appconfig"
	"pkt.systems/switchyard/internal/diag"
	"pkt.systems/switchyard/internal/scenario"
	"pkt.systems/switchyard/internal/sim"
	"pkt.systems/switchyard/schema"
)

func newSimCmd() *cobra.Command {
	var cfgPath string
	var scenarioPath string
	var dump bool
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run a scripted session against simulated actors",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := loadConfigOrDefault(cfgPath)
			if err != nil {
				return err
			}
			sc, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			engineCfg := cfg.EngineConfig()

			spawner := sim.NewSpawner(logger)
			embedder := sim.NewEmbedder(schema.ClientWindow{
				Size: schema.WindowSize{Width: cfg.Window.Width, Height: cfg.Window.Height},
			}, logger)
			// The engine's own aggregator does the live emission; this
			// copy only feeds the end-of-run summary.
			quiet := pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
			records := diag.New(engineCfg.DiagnosticsRing, quiet)

			opts := []switchyard.Option{switchyard.WithLogSink(records)}
			if cfg.Status.Addr != "" {
				opts = append(opts, switchyard.WithStatusAPI(cfg.Status.Addr))
			}
			eng, err := switchyard.New(engineCfg, switchyard.Deps{
				Spawner:    spawner,
				Compositor: embedder,
				Window:     embedder,
				Clipboard:  embedder,
				Chrome:     embedder,
				Viewport:   embedder,
				Logger:     logger,
			}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := eng.Start(ctx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := eng.Stop(stopCtx); err != nil {
					logger.Warn("engine stop failed", "err", err)
				}
			}()

			runner := scenario.NewRunner(eng, spawner, logger)
			if err := runner.Run(ctx, sc); err != nil {
				return err
			}

			snap, err := eng.Snapshot(ctx)
			if err != nil {
				return err
			}
			stats := embedder.Stats()
			logger.Info("sim session finished",
				"scenario", sc.Name,
				"loads", stats.LoadsCompleted,
				"alerts", stats.AlertsShown,
				"favicons", stats.FaviconsSeen,
				"pipelines", len(snap.Pipelines))
			for _, rec := range records.Recent(10) {
				logger.Info("sim diagnostic",
					"seq", rec.Seq,
					"pipeline", rec.Pipeline,
					"actor", rec.Actor,
					"kind", rec.Entry.Kind,
					"reason", rec.Entry.Reason)
			}
			if dump {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), litter.Sdump(snap))
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to a scenario yaml (default: embedded showcase)")
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the final snapshot")
	return cmd
}

// loadConfigOrDefault falls back to built-in defaults when no explicit
// path was given and the default config file does not exist.
func loadConfigOrDefault(path string) (appconfig.Config, error) {
	cfg, err := appconfig.Load(path)
	if err != nil && path == "" && os.IsNotExist(err) {
		return appconfig.DefaultConfig()
	}
	return cfg, err
}
