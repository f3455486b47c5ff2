package diag

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// AttachFile appends every subsequent record to path as JSON lines. The
// parent directory is created if missing.
func (a *Aggregator) AttachFile(path string) error {
	if path == "" {
		return errors.New("diagnostics file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	a.mu.Lock()
	old := a.file
	a.file = f
	a.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func appendLine(f *os.File, rec Record) {
	if line, err := json.Marshal(rec); err == nil {
		_, _ = f.Write(append(line, '\n'))
	}
}

// Export atomically writes the current ring contents to path as JSON.
func (a *Aggregator) Export(path string) error {
	if path == "" {
		return errors.New("export path is required")
	}
	data, err := json.MarshalIndent(a.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "diag-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Close releases the JSONL appender if one is attached.
func (a *Aggregator) Close() error {
	a.mu.Lock()
	file := a.file
	a.file = nil
	a.mu.Unlock()
	if file != nil {
		return file.Close()
	}
	return nil
}

// ReadFile loads records back from a JSONL diagnostics file. Blank lines
// are skipped; a malformed line aborts the read.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readRecords(f)
}

func readRecords(r io.Reader) ([]Record, error) {
	reader := bufio.NewReader(r)
	var out []Record
	for {
		line, err := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec Record
			if derr := json.Unmarshal(line, &rec); derr != nil {
				return out, derr
			}
			out = append(out, rec)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
	}
}
