package capture

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/wtcap/wtcap/internal/catalog"
	"github.com/wtcap/wtcap/internal/logger"
	"github.com/wtcap/wtcap/internal/ptybridge"
	"github.com/wtcap/wtcap/internal/sigplane"
	"github.com/wtcap/wtcap/internal/tcap"
)

// controlCandidates is the order the bridge checks for a controlling
// terminal: the first of these that is a TTY wins (§4.4).
var controlCandidates = []*os.File{os.Stdin, os.Stdout, os.Stderr}

func findControlFd() int {
	for _, f := range controlCandidates {
		if term.IsTerminal(int(f.Fd())) {
			return int(f.Fd())
		}
	}
	return -1
}

// startup runs the C7 startup sequence in the order spec.md mandates:
// open PTY + fork, open raw artifacts, enter raw mode, install signal
// handlers, record the initial window size, then return to Run, which
// enters the loop.
func (s *Session) startup() error {
	s.controlFd = findControlFd()
	size := ptybridge.Size{Cols: 80, Rows: 24}
	if s.controlFd >= 0 {
		if w, h, err := term.GetSize(s.controlFd); err == nil {
			size = ptybridge.Size{Cols: uint16(w), Rows: uint16(h)}
		}
	}

	argv := s.cfg.Argv()
	cmd := exec.Command(argv[0], argv[1:]...)
	env := os.Environ()
	cmd.Env = append(env, ensureTerm(env)...)

	bridge, err := ptybridge.Start(cmd, size)
	if err != nil {
		return fmt.Errorf("capture: start pty: %w", err)
	}
	s.bridge = bridge

	s.startMono = time.Now()
	s.startUnix = time.Now().UnixNano()

	writer, err := tcap.Open(s.cfg.Prefix, s.startUnix, cmd.Process.Pid, s.cfg.BuildGitSHA, s.cfg.BuildGitDirty, s.warn)
	if err != nil {
		bridge.Close()
		return fmt.Errorf("capture: open tcap artifacts: %w", err)
	}
	s.writer = writer

	if s.cfg.CatalogPath != "" {
		store, err := catalog.Open(s.cfg.CatalogPath)
		if err != nil {
			s.warn(fmt.Sprintf("TCAP: warning: open catalog: %v", err))
		} else {
			s.catalog = store
			if err := s.catalog.Insert(catalog.Session{
				Prefix:          s.cfg.Prefix,
				PID:             cmd.Process.Pid,
				StartedAtUnixNs: s.startUnix,
				BuildGitSHA:     s.cfg.BuildGitSHA,
			}); err != nil {
				s.warn(fmt.Sprintf("TCAP: warning: catalog insert: %v", err))
			}
		}
	}

	if s.cfg.WS.Present() {
		id := tcap.NewSessionID(time.Unix(0, s.startUnix), cmd.Process.Pid)
		if err := tcap.WriteStub(s.cfg.Prefix, tcap.WsStub{
			ID:        id,
			Prefix:    s.cfg.Prefix,
			PID:       cmd.Process.Pid,
			ListenURL: s.cfg.WS.Listen,
		}); err != nil {
			s.warn(fmt.Sprintf("TCAP: warning: write ws stub: %v", err))
		}
	}

	s.stdin = os.Stdin
	if term.IsTerminal(int(os.Stdin.Fd())) {
		if st, err := term.MakeRaw(int(os.Stdin.Fd())); err == nil {
			s.rawState = st
		}
	}

	plane, err := sigplane.New(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGCHLD, syscall.SIGWINCH)
	if err != nil {
		return fmt.Errorf("capture: create signal plane: %w", err)
	}
	s.plane = plane
	s.plane.Notify()

	// Initial window size is recorded as a resize event at offset 0,
	// matching the implicit "resize before the first byte" framing.
	if err := s.writer.AppendResizeEvent(0, uint32(size.Cols), uint32(size.Rows)); err != nil {
		s.warn(fmt.Sprintf("TCAP: warning: initial resize event: %v", err))
	}

	return nil
}

// ensureTerm sets TERM=xterm-256color in the child's environment
// unless already present, matching §4.4 step 5.
func ensureTerm(env []string) []string {
	for _, kv := range env {
		if len(kv) >= 5 && kv[:5] == "TERM=" {
			return nil
		}
	}
	return []string{"TERM=xterm-256color"}
}

// teardown runs the C7 teardown sequence exactly once, regardless of
// which path (clean exit, fatal error, signal) triggered it.
func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		if s.rawState != nil {
			term.Restore(int(os.Stdin.Fd()), s.rawState)
		}
		if s.plane != nil {
			s.plane.Stop()
		}
		if s.bridge != nil {
			if s.bridge.Cmd.Process != nil && s.bridge.Cmd.ProcessState == nil {
				s.bridge.Cmd.Process.Signal(syscall.SIGTERM)
			}
			s.reapChild()
			s.bridge.Close()
		}
		if s.writer != nil {
			if err := s.writer.Close(); err != nil {
				logger.Warn(fmt.Sprintf("TCAP: warning: close artifacts: %v", err))
			}
		}
		if s.catalog != nil {
			if err := s.catalog.Complete(s.cfg.Prefix, time.Now().UnixNano(), s.exitCode); err != nil {
				logger.Warn(fmt.Sprintf("TCAP: warning: catalog complete: %v", err))
			}
			if err := s.catalog.Close(); err != nil {
				logger.Warn(fmt.Sprintf("TCAP: warning: close catalog: %v", err))
			}
		}
		fmt.Fprintln(os.Stderr, "wtcap: session complete")
		s.teardownDone.Store(true)
	})
}

// reapChild waits for the child and derives the forwarded exit status
// (§4.7): the process's own exit code, or 128+signal if it was killed
// by a signal.
func (s *Session) reapChild() {
	if s.reaped {
		s.exitCode = exitCodeFromWaitStatus(s.reapStatus)
		return
	}

	err := s.bridge.Cmd.Wait()
	state := s.bridge.Cmd.ProcessState
	if state == nil {
		s.exitCode = 1
		return
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok {
		s.exitCode = exitCodeFromWaitStatus(ws)
		return
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			s.exitCode = exitErr.ExitCode()
			return
		}
		s.exitCode = 1
		return
	}
	s.exitCode = state.ExitCode()
}

// exitCodeFromWaitStatus derives the forwarded exit status (§4.7): the
// child's own exit code, or 128+signal if it was killed by a signal.
func exitCodeFromWaitStatus(ws syscall.WaitStatus) int {
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ws.ExitStatus()
}

// TeardownComplete reports whether teardown has finished — the test
// observer flag the spec calls for (§4.7).
func (s *Session) TeardownComplete() bool {
	return s.teardownDone.Load()
}
