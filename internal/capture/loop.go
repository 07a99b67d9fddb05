package capture

import (
	"errors"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/wtcap/wtcap/internal/logger"
)

// stdinReadSize bounds each stdin read to ≤ 1 KiB per the spec'd
// read/append/index commit granularity.
const stdinReadSize = 1024

// masterReadSize bounds each PTY-master read; matches the teacher's
// output-relay buffer size.
const masterReadSize = 4096

// readResult is what each source goroutine forwards to the central
// select. err == io.EOF (or a read returning n == 0) marks the source
// as exhausted; any other non-nil err is a fatal read error.
type readResult struct {
	data []byte
	err  error
}

// runLoop is the C6 event loop: one goroutine owns the blocking Read
// on each of stdin, the PTY master, and the self-pipe; this goroutine
// is the single place that selects among them, standing in for the
// single-threaded select(2) call the spec describes (see SPEC_FULL.md
// §5 for why this is the idiomatic-Go shape of that loop rather than a
// literal translation).
func (s *Session) runLoop() error {
	var stdinCh chan readResult
	masterCh := make(chan readResult)
	s.masterCh = masterCh
	wakeCh := make(chan struct{}, 1)

	if s.stdin != nil {
		stdinCh = make(chan readResult)
		go readLoop(s.stdin, stdinReadSize, stdinCh)
	}

	go readLoop(s.bridge.PTY, masterReadSize, masterCh)

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := s.plane.ReadFD().Read(buf)
			if n > 0 {
				select {
				case wakeCh <- struct{}{}:
				default:
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		if s.shutdown.Load() {
			return nil
		}

		select {
		case <-wakeCh:
			s.plane.Drain()
			s.drainPendingSignals()
			if s.shutdown.Load() {
				s.drainMasterNonBlocking()
				return nil
			}

		case res := <-stdinCh:
			if res.err != nil {
				// EOF permanently retires stdin from the select set;
				// the loop keeps draining the master.
				stdinCh = nil
				if res.err != io.EOF {
					return fatal("stdin read", res.err)
				}
				continue
			}
			if err := s.handleInput(res.data); err != nil {
				return fatal("stdin relay", err)
			}

		case res := <-masterCh:
			if res.err != nil {
				if res.err == io.EOF || isEIOLike(res.err) {
					return nil
				}
				return fatal("master read", res.err)
			}
			if err := s.handleOutput(res.data); err != nil {
				return fatal("master relay", err)
			}
		}
	}
}

// drainMasterNonBlocking commits whatever output the master-reader
// goroutine has already queued before the loop exits — the child-exit
// path still owes the "drain readable master output on the way out"
// guarantee (§4.5) even though shutdown was triggered by a signal
// rather than a master read returning EOF.
func (s *Session) drainMasterNonBlocking() {
	for {
		select {
		case res := <-s.masterCh:
			if res.err != nil {
				return
			}
			s.handleOutput(res.data)
		default:
			return
		}
	}
}

// readLoop performs blocking reads of up to size bytes and forwards
// each as a readResult, until a read returns a terminal error.
func readLoop(f *os.File, size int, out chan<- readResult) {
	buf := make([]byte, size)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			cp := make([]byte, n)
			copy(cp, buf[:n])
			out <- readResult{data: cp}
		}
		if err != nil {
			out <- readResult{err: err}
			return
		}
	}
}

// isEIOLike reports whether err is the EIO a PTY master read returns
// once the slave side has no process holding it open — functionally
// equivalent to EOF for our purposes.
func isEIOLike(err error) bool {
	return errors.Is(err, syscall.EIO)
}

// drainPendingSignals consumes every signal sitting on the plane's
// channel and reacts to each: SIGWINCH triggers a resize commit,
// SIGINT/SIGTERM/SIGQUIT request shutdown, and a SIGCHLD is treated as
// "go find out if our child exited" via a non-blocking reap attempt.
func (s *Session) drainPendingSignals() {
	for {
		select {
		case sig := <-s.plane.Signals():
			s.handleSignal(sig)
		default:
			return
		}
	}
}

func (s *Session) elapsedNs() int64 {
	return time.Since(s.startMono).Nanoseconds()
}

func (s *Session) warn(msg string) {
	logger.Warn(msg)
}
