package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/switchyard"
	"pkt.systems/switchyard/internal/appconfig"
	"pkt.systems/switchyard/internal/sim"
	"pkt.systems/switchyard/schema"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	var probeTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run switchyard diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())

			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				path, err := appconfig.DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			logger.Info("doctor start", "config", configPath)

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("config not readable at %s (run `switchyard config init`): %w", configPath, err)
				}
				return err
			}
			logger.Info("doctor config ok", "version", cfg.ConfigVersion)

			for _, dir := range []struct {
				name string
				path string
			}{
				{name: "state_dir", path: cfg.StateDir},
				{name: "diagnostics.dir", path: cfg.Diagnostics.Dir},
			} {
				if strings.TrimSpace(dir.path) == "" {
					continue
				}
				if err := checkWritable(dir.path); err != nil {
					return fmt.Errorf("doctor %s: %w", dir.name, err)
				}
				logger.Info("doctor directory ok", "name", dir.name, "path", dir.path)
			}

			engineCfg, err := schema.NormalizeEngineConfig(cfg.EngineConfig())
			if err != nil {
				return err
			}
			if engineCfg.GPUEnabled {
				limits := engineCfg.GPULimits
				if limits.MaxCubeMapTextureSize > limits.MaxTextureSize {
					return fmt.Errorf("gpu.max_cube_map_texture_size %d exceeds gpu.max_texture_size %d",
						limits.MaxCubeMapTextureSize, limits.MaxTextureSize)
				}
				logger.Info("doctor gpu ok",
					"max_texture_size", limits.MaxTextureSize,
					"max_renderbuffer_size", limits.MaxRenderbufferSize)
			} else {
				logger.Info("doctor gpu disabled")
			}

			if err := runDoctorProbe(cmd.Context(), logger, engineCfg, probeTimeout); err != nil {
				return err
			}
			logger.Info("doctor complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().DurationVar(&probeTimeout, "probe-timeout", 15*time.Second, "timeout for the engine probe")
	return cmd
}

// runDoctorProbe boots an engine with simulated actors, loads one page,
// and drains it again.
func runDoctorProbe(ctx context.Context, logger pslog.Logger, cfg schema.EngineConfig, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cfg.DiagnosticsDir = ""
	spawner := sim.NewSpawner(logger)
	eng, err := switchyard.New(cfg, switchyard.Deps{Spawner: spawner, Logger: logger})
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = eng.Stop(ctx) }()

	id, err := eng.LoadURL(ctx, schema.LoadData{URL: "https://doctor.invalid/"})
	if err != nil {
		return fmt.Errorf("doctor probe load: %w", err)
	}
	snap, err := eng.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("doctor probe snapshot: %w", err)
	}
	if snap.Root != id || len(snap.Pipelines) != 1 {
		return fmt.Errorf("doctor probe registry mismatch: %+v", snap)
	}
	if err := eng.Shutdown(ctx); err != nil {
		return fmt.Errorf("doctor probe drain: %w", err)
	}
	logger.Info("doctor engine ok", "pipeline", id)
	return nil
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
