package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	d, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d != (Defaults{}) {
		t.Errorf("Load() = %+v, want zero value", d)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "wtcap")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "shell: /bin/zsh\nws_listen: 127.0.0.1:9100\nlog_level: debug\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	d, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Shell != "/bin/zsh" || d.WSListen != "127.0.0.1:9100" || d.LogLevel != "debug" {
		t.Errorf("Load() = %+v, unexpected", d)
	}
}

func TestPathJoinsHomeConfigWtcap(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	want := filepath.Join(home, ".config", "wtcap", "config.yaml")
	if p != want {
		t.Errorf("Path() = %q, want %q", p, want)
	}
}
