package schema

import (
	"errors"
	"strings"
	"time"
)

// EngineConfig defines defaults and limits for the supervisor and its
// collaborators.
type EngineConfig struct {
	// ShutdownTimeout bounds how long an engine-wide exit waits for
	// registered pipelines to acknowledge before they are dropped.
	ShutdownTimeout time.Duration
	// DiagnosticsRing is the number of diagnostic records retained in
	// memory.
	DiagnosticsRing int
	// DiagnosticsDir, when set, receives diagnostic exports on shutdown.
	DiagnosticsDir string
	// GPUEnabled gates WebGL context creation in the paint provider.
	GPUEnabled bool
	// GPULimits are the capability limits reported for created WebGL
	// contexts.
	GPULimits GLLimits
	// DefaultWindowSize seeds the window geometry reported before the
	// window system has answered a query.
	DefaultWindowSize WindowSize
}

// DefaultDiagnosticsRing is the default in-memory diagnostic record limit.
const DefaultDiagnosticsRing = 1024

// DefaultShutdownTimeout bounds engine-wide exit drains.
const DefaultShutdownTimeout = 5 * time.Second

// NormalizeEngineConfig applies defaults and validates the config.
func NormalizeEngineConfig(cfg EngineConfig) (EngineConfig, error) {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.DiagnosticsRing <= 0 {
		cfg.DiagnosticsRing = DefaultDiagnosticsRing
	}
	if cfg.GPULimits == (GLLimits{}) {
		cfg.GPULimits = DefaultGLLimits()
	}
	if cfg.DefaultWindowSize == (WindowSize{}) {
		cfg.DefaultWindowSize = WindowSize{Width: 1024, Height: 768}
	}
	if cfg.GPUEnabled && cfg.GPULimits.MaxTextureSize == 0 {
		return EngineConfig{}, errors.New("gpu enabled with zero texture limit")
	}
	return cfg, nil
}

// NormalizeLoadData validates a navigation request and fills in method
// defaults.
func NormalizeLoadData(d LoadData) (LoadData, error) {
	d.URL = strings.TrimSpace(d.URL)
	if d.URL == "" {
		return LoadData{}, ErrEmptyURL
	}
	if strings.TrimSpace(d.Method) == "" {
		d.Method = "GET"
	} else {
		d.Method = strings.ToUpper(strings.TrimSpace(d.Method))
	}
	return d, nil
}
