// Package ptybridge allocates the pseudoterminal a captured child runs
// under and carries window-size changes from the controlling terminal
// to the child's foreground process group. See SPEC_FULL.md C4.
package ptybridge

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Size is a terminal geometry in the cols/rows convention used
// throughout this module (matching golang.org/x/term.GetSize).
type Size struct {
	Cols uint16
	Rows uint16
}

// Bridge owns the PTY master end and the child process started against
// its slave end.
type Bridge struct {
	Cmd  *exec.Cmd
	PTY  *os.File
	size Size
}

// Start allocates a PTY sized to size, launches cmd attached to its
// slave end, and returns the master file plus the running command. The
// caller owns PTY's lifetime and must Close it (which also signals EOF
// to any reader blocked on it) once the child has exited and all
// output has been drained.
func Start(cmd *exec.Cmd, size Size) (*Bridge, error) {
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: size.Cols, Rows: size.Rows})
	if err != nil {
		return nil, fmt.Errorf("ptybridge: start: %w", err)
	}
	return &Bridge{Cmd: cmd, PTY: ptmx, size: size}, nil
}

// Resize applies a new geometry to the PTY. The kernel delivers
// SIGWINCH to the slave's foreground process group as a side effect of
// TIOCSWINSZ, which is the preferred delivery path; Resize also falls
// back to signalling the child directly if no foreground process
// group can be resolved yet (e.g. a very early resize, before the
// child has established one).
func (b *Bridge) Resize(size Size) error {
	if err := pty.Setsize(b.PTY, &pty.Winsize{Cols: size.Cols, Rows: size.Rows}); err != nil {
		return fmt.Errorf("ptybridge: setsize: %w", err)
	}
	b.size = size

	pgrp, err := unix.IoctlGetInt(int(b.PTY.Fd()), unix.TIOCGPGRP)
	if err != nil || pgrp <= 0 {
		if b.Cmd.Process != nil {
			b.Cmd.Process.Signal(syscall.SIGWINCH)
		}
	}
	return nil
}

// Size returns the geometry most recently applied via Start or Resize.
func (b *Bridge) Size() Size { return b.size }

// Close closes the PTY master end.
func (b *Bridge) Close() error {
	return b.PTY.Close()
}
