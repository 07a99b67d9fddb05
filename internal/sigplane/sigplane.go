// Package sigplane implements the self-pipe signal plane the capture
// event loop selects on (C5): a dedicated os.Pipe whose write end is
// armed from a signal.Notify goroutine, giving the central select loop
// a single readable fd to represent "a signal of interest arrived"
// without touching signal-unsafe state from inside a handler.
//
// Go's runtime already delivers signals to signal.Notify channels
// safely off any async-signal context, so a literal self-pipe is not
// load-bearing the way it is in a C event loop. It is kept anyway: the
// rest of the event loop is built around "one fd per wakeup source"
// (stdin, PTY master, self-pipe) feeding one select, and a channel-only
// source would be a second, incompatible wakeup mechanism sitting next
// to the other two for no reason.
package sigplane

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// Plane owns the self-pipe and the signal channel feeding it.
type Plane struct {
	notifyCh chan os.Signal // signal.Notify's target; relay's sole receiver
	outCh    chan os.Signal // what Signals() exposes to the event loop

	readFd  *os.File
	writeFd *os.File
	sigs    []os.Signal
	stop    chan struct{}
	done    chan struct{}
}

// New arms a self-pipe for the given signals. Call Notify to start
// relaying, and Stop to tear down.
func New(sigs ...os.Signal) (*Plane, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	// The write end must never block the relay goroutine, even in the
	// pathological case of a reader that falls behind — a signal
	// handler blocking is exactly what the self-pipe trick exists to
	// avoid.
	if err := unix.SetNonblock(int(w.Fd()), true); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	return &Plane{
		notifyCh: make(chan os.Signal, 16),
		outCh:    make(chan os.Signal, 16),
		readFd:   r,
		writeFd:  w,
		sigs:     sigs,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// ReadFD is the pipe's read end: the event loop selects on this
// becoming readable as "a signal arrived", then calls Drain to reset
// the wakeup and Signals to find out which ones fired.
func (p *Plane) ReadFD() *os.File { return p.readFd }

// Signals is the channel the relay goroutine forwards each received
// signal onto, distinct from the channel signal.Notify delivers to —
// the two cannot be the same channel, or the relay goroutine's own
// permanently-blocked receive would race the event loop for every
// signal and win every time. The event loop drains ReadFD for the
// wakeup, then non-blockingly selects on this (with a default case) to
// collect whichever signals arrived.
func (p *Plane) Signals() <-chan os.Signal { return p.outCh }

// Notify starts relaying the configured signals into the pipe. It
// returns immediately; relaying happens in a background goroutine
// until Stop is called.
func (p *Plane) Notify() {
	signal.Notify(p.notifyCh, p.sigs...)
	go p.relay()
}

func (p *Plane) relay() {
	defer close(p.done)
	for {
		select {
		case sig := <-p.notifyCh:
			select {
			case p.outCh <- sig:
			default:
				// outCh is sized generously relative to any realistic
				// burst; a full buffer means the loop has fallen badly
				// behind, and dropping here is preferable to blocking
				// the relay goroutine.
			}
			p.writeFd.Write([]byte{0})
		case <-p.stop:
			return
		}
	}
}

// Drain consumes whatever bytes are currently buffered in the pipe
// with a single non-blocking read: if the pipe is already empty (for
// instance because another reader of ReadFD took the wake byte) it
// returns at once. Any further signals that arrive after this call
// produce their own later wakeup.
func (p *Plane) Drain() {
	rc, err := p.readFd.SyscallConn()
	if err != nil {
		return
	}
	buf := make([]byte, 64)
	rc.Read(func(fd uintptr) bool {
		unix.Read(int(fd), buf)
		return true
	})
}

// Stop halts the relay goroutine and closes both pipe ends.
func (p *Plane) Stop() {
	signal.Stop(p.notifyCh)
	close(p.stop)
	<-p.done
	p.writeFd.Close()
	p.readFd.Close()
}
