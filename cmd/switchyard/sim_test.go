package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSimCommandRunsShowcase(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgYAML := fmt.Sprintf(`config_version: 1
state_dir: %s
engine:
  shutdown_timeout_seconds: 1
diagnostics:
  ring: 64
  dir: %s
status:
  addr: ""
`, filepath.Join(dir, "state"), filepath.Join(dir, "diag"))
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"sim", "-c", cfgPath, "--dump"})
	if err := root.Execute(); err != nil {
		t.Fatalf("sim: %v", err)
	}
	if !strings.Contains(out.String(), "Pipelines") {
		t.Fatalf("expected a snapshot dump, got %q", out.String())
	}
	for _, name := range []string{"diagnostics.jsonl", "diagnostics.json"} {
		if _, err := os.Stat(filepath.Join(dir, "diag", name)); err != nil {
			t.Fatalf("expected %s after the run: %v", name, err)
		}
	}
}
