package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 99
state_dir: /state
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresStateDir(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
window:
  width: 800
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "state_dir is required") {
		t.Fatalf("expected state_dir error, got %v", err)
	}
}

func TestLoadRejectsGPUWithoutLimits(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
state_dir: /state
gpu:
  enabled: true
  max_texture_size: 0
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "gpu.max_texture_size") {
		t.Fatalf("expected gpu limit error, got %v", err)
	}
}

func TestLoadRejectsBareStatusAddr(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
state_dir: /state
status:
  addr: localhost
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "status.addr") {
		t.Fatalf("expected status addr error, got %v", err)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
state_dir: /state
engine:
  shutdown_timeout_seconds: 9
window:
  width: 640
  height: 480
diagnostics:
  ring: 32
status:
  addr: ""
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.ShutdownTimeoutSeconds != 9 {
		t.Fatalf("expected shutdown timeout override, got %d", cfg.Engine.ShutdownTimeoutSeconds)
	}
	if cfg.Window.Width != 640 || cfg.Window.Height != 480 {
		t.Fatalf("expected window override, got %+v", cfg.Window)
	}
	if cfg.Diagnostics.Ring != 32 {
		t.Fatalf("expected ring override, got %d", cfg.Diagnostics.Ring)
	}
	if cfg.Status.Addr != "" {
		t.Fatalf("expected status addr to clear, got %q", cfg.Status.Addr)
	}
}

func TestLoadMissingFileSurfacesNotExist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
	// Callers decide whether a missing file means "use defaults"; the
	// error has to stay recognizable for that.
	if !os.IsNotExist(err) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
