package ptybridge

import (
	"bufio"
	"os/exec"
	"testing"
	"time"
)

func TestStartRelaysOutputAndAppliesSize(t *testing.T) {
	cmd := exec.Command("stty", "size")
	b, err := Start(cmd, Size{Cols: 100, Rows: 40})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer b.Close()

	if b.Size() != (Size{Cols: 100, Rows: 40}) {
		t.Errorf("Size() = %+v, want {100 40}", b.Size())
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		cmd.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit in time")
	}

	scanner := bufio.NewScanner(b.PTY)
	if !scanner.Scan() {
		t.Fatalf("no output from stty size: %v", scanner.Err())
	}
	line := scanner.Text()
	if line != "40 100" {
		t.Errorf("stty size reported %q, want %q (rows cols)", line, "40 100")
	}
}

func TestResizeUpdatesSize(t *testing.T) {
	cmd := exec.Command("cat")
	b, err := Start(cmd, Size{Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		cmd.Process.Kill()
		cmd.Wait()
		b.Close()
	}()

	if err := b.Resize(Size{Cols: 120, Rows: 50}); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if b.Size() != (Size{Cols: 120, Rows: 50}) {
		t.Errorf("Size() after Resize = %+v, want {120 50}", b.Size())
	}
}
