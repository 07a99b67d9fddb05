// Package tcap implements the on-disk TCAP capture format: two raw
// byte streams (input, output), a binary time-index sidecar per
// stream, a line-delimited resize-events sidecar bound to the output
// stream, and a small JSON metadata file. See SPEC_FULL.md §6.
package tcap

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wtcap/wtcap/internal/varint"
)

// tidxMagic is the fixed 5-byte header every .tidx file begins with.
const tidxMagic = "TIDX1"

// tidxHeaderLen is magic(5) + flags(1) + started_at_unix_ns(8).
const tidxHeaderLen = 5 + 1 + 8

// Writer owns the four artifacts for one capture session and is used
// by exactly one goroutine at a time (the capture event loop) — it
// holds no internal locking.
type Writer struct {
	prefix          string
	startedAtUnixNs int64

	warn func(string)

	input  rawStream
	output rawStream

	events    *os.File
	eventsBuf *bufio.Writer
	eventsOK  bool
}

// rawStream is one direction's raw byte file plus its .tidx sidecar.
type rawStream struct {
	raw    *os.File
	rawLen int64

	tidx   *os.File
	tidxOK bool

	lastTNs       int64
	lastEndOffset int64
}

// Open creates (truncating) P.input, P.output, their .tidx sidecars,
// P.events.jsonl and P.meta.json. Sidecar open failures are reported
// via warn and disable only that sidecar — raw streams always open or
// Open returns an error (a startup-resource failure, not a
// sidecar-degradation one).
func Open(prefix string, startedAtUnixNs int64, pid int, buildGitSHA string, buildGitDirty *bool, warn func(string)) (*Writer, error) {
	if warn == nil {
		warn = func(string) {}
	}
	w := &Writer{prefix: prefix, startedAtUnixNs: startedAtUnixNs, warn: warn}

	var err error
	if w.input.raw, err = createTruncated(prefix + ".input"); err != nil {
		return nil, fmt.Errorf("open input raw stream: %w", err)
	}
	if w.output.raw, err = createTruncated(prefix + ".output"); err != nil {
		w.input.raw.Close()
		return nil, fmt.Errorf("open output raw stream: %w", err)
	}

	w.openTidx(&w.input, prefix+".input.tidx")
	w.openTidx(&w.output, prefix+".output.tidx")

	if f, err := createTruncated(prefix + ".events.jsonl"); err != nil {
		warn(fmt.Sprintf("TCAP: warning: open events sidecar: %v (events sidecar disabled)", err))
	} else {
		w.events = f
		w.eventsBuf = bufio.NewWriter(f)
		w.eventsOK = true
	}

	if err := writeMeta(prefix+".meta.json", Meta{
		PID:             pid,
		Prefix:          prefix,
		StartedAtUnixNs: startedAtUnixNs,
		BuildGitSHA:     buildGitSHA,
		BuildGitDirty:   buildGitDirty,
	}); err != nil {
		warn(fmt.Sprintf("TCAP: warning: write meta.json: %v", err))
	}

	return w, nil
}

func createTruncated(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
}

func (w *Writer) openTidx(s *rawStream, path string) {
	f, err := createTruncated(path)
	if err != nil {
		w.warn(fmt.Sprintf("TCAP: warning: open %s: %v (tidx sidecar disabled)", path, err))
		return
	}
	header := make([]byte, 0, tidxHeaderLen)
	header = append(header, tidxMagic...)
	header = append(header, 0) // flags
	header = binary.LittleEndian.AppendUint64(header, uint64(w.startedAtUnixNs))
	if _, err := f.Write(header); err != nil {
		w.warn(fmt.Sprintf("TCAP: warning: write %s header: %v (tidx sidecar disabled)", path, err))
		f.Close()
		return
	}
	s.tidx = f
	s.tidxOK = true
}

// AppendInput appends data (read from the controlling terminal) to the
// input raw stream and, if the sidecar is healthy, one time-index
// record whose end_offset equals the new raw length.
func (w *Writer) AppendInput(data []byte, tNs int64) error {
	return w.append(&w.input, data, tNs)
}

// AppendOutput appends data (read from the PTY master) to the output
// raw stream and its time-index sidecar.
func (w *Writer) AppendOutput(data []byte, tNs int64) error {
	return w.append(&w.output, data, tNs)
}

func (w *Writer) append(s *rawStream, data []byte, tNs int64) error {
	if len(data) == 0 {
		return nil
	}
	if err := writeFull(s.raw, data); err != nil {
		return fmt.Errorf("append raw bytes: %w", err)
	}
	s.rawLen += int64(len(data))

	if s.tidxOK {
		dt := tNs - s.lastTNs
		dend := s.rawLen - s.lastEndOffset
		rec := varint.Append(varint.Append(nil, uint64(dt)), uint64(dend))
		if _, err := s.tidx.Write(rec); err != nil {
			w.warn(fmt.Sprintf("TCAP: warning: write tidx record: %v (tidx sidecar disabled)", err))
			s.tidx.Close()
			s.tidxOK = false
		} else {
			s.lastTNs = tNs
			s.lastEndOffset = s.rawLen
		}
	}
	return nil
}

// writeFull retries partial writes, matching the short-write discipline
// the event loop uses elsewhere (see internal/capture/loop.go).
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

// OutputLength returns the output raw stream's current length — the
// offset a resize event recorded right now would carry.
func (w *Writer) OutputLength() int64 {
	return w.output.rawLen
}

// InputLength returns the input raw stream's current length.
func (w *Writer) InputLength() int64 {
	return w.input.rawLen
}

// resizeEventLine is the §6.3 JSON schema for one resize event.
type resizeEventLine struct {
	Type         string `json:"type"`
	TNs          int64  `json:"t_ns"`
	Stream       string `json:"stream"`
	StreamOffset int64  `json:"stream_offset"`
	Cols         uint32 `json:"cols"`
	Rows         uint32 `json:"rows"`
}

// AppendResizeEvent records a resize at the output stream's current
// length. Callers must drain all currently-readable output bytes (via
// AppendOutput) before calling this, so stream_offset lands on the
// first post-resize byte boundary (§4.2).
func (w *Writer) AppendResizeEvent(tNs int64, cols, rows uint32) error {
	if !w.eventsOK {
		return nil
	}
	line := resizeEventLine{
		Type:         "resize",
		TNs:          tNs,
		Stream:       "output",
		StreamOffset: w.output.rawLen,
		Cols:         cols,
		Rows:         rows,
	}
	data, err := json.Marshal(line)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := w.eventsBuf.Write(data); err != nil {
		w.warn(fmt.Sprintf("TCAP: warning: write events sidecar: %v (events sidecar disabled)", err))
		w.eventsOK = false
		return nil
	}
	return w.eventsBuf.Flush()
}

// Close flushes and closes every open artifact handle. Safe to call
// once; callers should not reuse the Writer afterward.
func (w *Writer) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if w.eventsOK {
		record(w.eventsBuf.Flush())
	}
	if w.events != nil {
		record(w.events.Close())
	}
	if w.input.tidx != nil {
		record(w.input.tidx.Close())
	}
	if w.output.tidx != nil {
		record(w.output.tidx.Close())
	}
	record(w.input.raw.Close())
	record(w.output.raw.Close())
	return firstErr
}
