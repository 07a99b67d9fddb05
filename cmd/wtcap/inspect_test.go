package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/wtcap/wtcap/internal/tcap"
)

func TestInspectOneReportsArtifactSummary(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "sess")

	w, err := tcap.Open(prefix, 1000, 99, "abc123", nil, func(string) {})
	if err != nil {
		t.Fatalf("tcap.Open: %v", err)
	}
	if err := w.AppendOutput([]byte("hello"), 10); err != nil {
		t.Fatalf("AppendOutput: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	report := inspectOne(prefix)
	if !strings.Contains(report, "pid:         99") {
		t.Errorf("report missing pid, got %q", report)
	}
	if !strings.Contains(report, "abc123") {
		t.Errorf("report missing build sha, got %q", report)
	}
	if !strings.Contains(report, "output") {
		t.Errorf("report missing output stream, got %q", report)
	}
}

func TestInspectOneMissingPrefixReportsError(t *testing.T) {
	report := inspectOne(filepath.Join(t.TempDir(), "nope"))
	if !strings.Contains(report, "read meta") {
		t.Errorf("report = %q, want a read-meta error", report)
	}
}
