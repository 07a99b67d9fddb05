package capture

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/wtcap/wtcap/internal/catalog"
	"github.com/wtcap/wtcap/internal/logger"
	"github.com/wtcap/wtcap/internal/ptybridge"
	"github.com/wtcap/wtcap/internal/sigplane"
	"github.com/wtcap/wtcap/internal/tcap"
)

// Session holds every piece of process-scoped state the event loop
// and the signal-fed wake path touch (§5): the shutdown flag and the
// handles the main loop owns exclusively. Fields signal-adjacent code
// writes are atomics; everything else is only ever touched from the
// loop goroutine itself.
type Session struct {
	cfg Config

	stdin     *os.File // os.Stdin, terminal or not; runLoop relays from it whenever it is non-nil
	controlFd int      // the fd (stdin/stdout/stderr) used for raw mode + size queries
	rawState  *term.State

	bridge   *ptybridge.Bridge
	plane    *sigplane.Plane
	writer   *tcap.Writer
	catalog  *catalog.Store  // nil unless cfg.CatalogPath is set and Open succeeded
	masterCh chan readResult // set by runLoop; lets onResize drain buffered output first

	startMono time.Time
	startUnix int64

	shutdown     atomic.Bool
	teardownOnce sync.Once
	teardownDone atomic.Bool

	reaped     bool
	reapStatus syscall.WaitStatus

	exitCode int
}

// Run executes one full capture session: validate, start, loop, tear
// down, and return the exit status to forward to os.Exit (§4.7).
func Run(cfg Config) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 1, err
	}

	s := &Session{cfg: cfg}
	if err := s.startup(); err != nil {
		s.teardown()
		return 1, err
	}

	loopErr := s.runLoop()
	s.teardown()

	if loopErr != nil {
		logger.Error("session ended with error", "err", loopErr)
		return 1, loopErr
	}
	return s.exitCode, nil
}

// handleInput relays one chunk of terminal input to the PTY master and
// commits it to the input raw stream.
func (s *Session) handleInput(data []byte) error {
	if err := writeFull(s.bridge.PTY, data); err != nil {
		return fmt.Errorf("write master: %w", err)
	}
	return s.writer.AppendInput(data, s.elapsedNs())
}

// handleOutput relays one chunk of PTY output to the controlling
// terminal and commits it to the output raw stream.
func (s *Session) handleOutput(data []byte) error {
	if err := writeFull(os.Stdout, data); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}
	return s.writer.AppendOutput(data, s.elapsedNs())
}

// writeFull retries short writes until all bytes are consumed or an
// unrecoverable error occurs; Go's os.File.Write already retries EINTR
// internally, so only the short-write loop is needed here (§4.6).
func writeFull(f *os.File, data []byte) error {
	for len(data) > 0 {
		n, err := f.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// handleSignal reacts to one signal drained from the plane.
func (s *Session) handleSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGWINCH:
		s.onResize()
	case syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
		s.shutdown.Store(true)
	case syscall.SIGCHLD:
		s.tryReap()
	}
}

// onResize reads the current terminal size, applies it to the PTY,
// and records a resize event at the output stream's current length.
func (s *Session) onResize() {
	size, ok := s.currentSize()
	if !ok {
		return
	}
	// Commit whatever output is already buffered before the resize so
	// the new geometry's resize event lands at the true current end of
	// the output stream, not ahead of bytes the master already sent.
	s.drainMasterNonBlocking()
	if err := s.bridge.Resize(size); err != nil {
		logger.Warn(fmt.Sprintf("TCAP: warning: resize: %v", err))
		return
	}
	if err := s.writer.AppendResizeEvent(s.elapsedNs(), uint32(size.Cols), uint32(size.Rows)); err != nil {
		logger.Warn(fmt.Sprintf("TCAP: warning: resize event: %v", err))
	}
}

// tryReap performs the non-blocking reap the SIGCHLD handler calls
// for (§4.5): if our child has exited, stash its wait status for
// teardown and request shutdown. A false-positive SIGCHLD (some other
// reason the kernel delivered it) leaves nothing to reap and is a
// no-op.
func (s *Session) tryReap() {
	if s.bridge == nil || s.bridge.Cmd.Process == nil {
		return
	}
	var ws syscall.WaitStatus
	pid, err := syscall.Wait4(s.bridge.Cmd.Process.Pid, &ws, syscall.WNOHANG, nil)
	if err != nil || pid != s.bridge.Cmd.Process.Pid {
		return
	}
	s.reaped = true
	s.reapStatus = ws
	s.shutdown.Store(true)
}

// currentSize queries the controlling terminal's geometry. It reports
// false when there is no controlling terminal or its size cannot be
// read; no fallback size is used.
func (s *Session) currentSize() (ptybridge.Size, bool) {
	if s.controlFd < 0 {
		return ptybridge.Size{}, false
	}
	w, h, err := term.GetSize(s.controlFd)
	if err != nil {
		return ptybridge.Size{}, false
	}
	return ptybridge.Size{Cols: uint16(w), Rows: uint16(h)}, true
}
