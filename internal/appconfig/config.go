package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/switchyard/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int               `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string            `mapstructure:"state_dir" yaml:"state_dir"`
	Engine        EngineConfig      `mapstructure:"engine" yaml:"engine"`
	GPU           GPUConfig         `mapstructure:"gpu" yaml:"gpu"`
	Window        WindowConfig      `mapstructure:"window" yaml:"window"`
	Diagnostics   DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	Status        StatusConfig      `mapstructure:"status" yaml:"status"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// EngineConfig controls supervisor behavior.
type EngineConfig struct {
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// GPUConfig gates WebGL context creation and its reported limits.
type GPUConfig struct {
	Enabled                      bool   `mapstructure:"enabled" yaml:"enabled"`
	MaxTextureSize               uint32 `mapstructure:"max_texture_size" yaml:"max_texture_size"`
	MaxCubeMapTextureSize        uint32 `mapstructure:"max_cube_map_texture_size" yaml:"max_cube_map_texture_size"`
	MaxCombinedTextureImageUnits uint32 `mapstructure:"max_combined_texture_image_units" yaml:"max_combined_texture_image_units"`
	MaxRenderbufferSize          uint32 `mapstructure:"max_renderbuffer_size" yaml:"max_renderbuffer_size"`
}

// WindowConfig seeds the window geometry reported before the window system
// has answered a query.
type WindowConfig struct {
	Width  uint32 `mapstructure:"width" yaml:"width"`
	Height uint32 `mapstructure:"height" yaml:"height"`
}

// DiagnosticsConfig controls the attributed log record store.
type DiagnosticsConfig struct {
	Ring int    `mapstructure:"ring" yaml:"ring"`
	Dir  string `mapstructure:"dir" yaml:"dir"`
}

// StatusConfig configures the status HTTP listener. An empty addr disables
// it.
type StatusConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	limits := schema.DefaultGLLimits()
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".switchyard", "state"),
		Engine: EngineConfig{
			ShutdownTimeoutSeconds: int(schema.DefaultShutdownTimeout / time.Second),
		},
		GPU: GPUConfig{
			Enabled:                      false,
			MaxTextureSize:               limits.MaxTextureSize,
			MaxCubeMapTextureSize:        limits.MaxCubeMapTextureSize,
			MaxCombinedTextureImageUnits: limits.MaxCombinedTextureImageUnits,
			MaxRenderbufferSize:          limits.MaxRenderbufferSize,
		},
		Window: WindowConfig{
			Width:  1024,
			Height: 768,
		},
		Diagnostics: DiagnosticsConfig{
			Ring: schema.DefaultDiagnosticsRing,
			Dir:  filepath.Join(home, ".switchyard", "diagnostics"),
		},
		Status: StatusConfig{
			Addr: ":27490",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".switchyard", "config.yaml"), nil
}

// EngineConfig converts the file-level settings into the engine's runtime
// config.
func (c Config) EngineConfig() schema.EngineConfig {
	return schema.EngineConfig{
		ShutdownTimeout: time.Duration(c.Engine.ShutdownTimeoutSeconds) * time.Second,
		DiagnosticsRing: c.Diagnostics.Ring,
		DiagnosticsDir:  c.Diagnostics.Dir,
		GPUEnabled:      c.GPU.Enabled,
		GPULimits: schema.GLLimits{
			MaxTextureSize:               c.GPU.MaxTextureSize,
			MaxCubeMapTextureSize:        c.GPU.MaxCubeMapTextureSize,
			MaxCombinedTextureImageUnits: c.GPU.MaxCombinedTextureImageUnits,
			MaxRenderbufferSize:          c.GPU.MaxRenderbufferSize,
		},
		DefaultWindowSize: schema.WindowSize{Width: c.Window.Width, Height: c.Window.Height},
	}
}
