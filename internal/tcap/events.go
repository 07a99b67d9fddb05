package tcap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// ResizeEvent is one parsed line from a .events.jsonl sidecar.
type ResizeEvent struct {
	TNs          int64
	StreamOffset int64
	Cols         uint32
	Rows         uint32

	// seq preserves original file order for stable sorting when two
	// events share both StreamOffset and TNs.
	seq int
}

// ParseEvents reads every well-formed "resize" line from path. A line
// that fails to parse as JSON, or parses with an unrecognised "type",
// is skipped rather than failing the whole read — the sidecar is
// advisory and a single corrupt line must not hide the rest.
func ParseEvents(path string) ([]ResizeEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseEvents(f)
}

func parseEvents(r io.Reader) ([]ResizeEvent, error) {
	var events []ResizeEvent
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	seq := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec resizeEventLine
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Type != "resize" || rec.Stream != "output" {
			continue
		}
		events = append(events, ResizeEvent{
			TNs:          rec.TNs,
			StreamOffset: rec.StreamOffset,
			Cols:         rec.Cols,
			Rows:         rec.Rows,
			seq:          seq,
		})
		seq++
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("tcap: scan events: %w", err)
	}
	return events, nil
}

// SortEvents orders events by (StreamOffset, TNs, original file order),
// the canonical order queries rely on. ParseEvents already returns
// file order; SortEvents is for callers who merged events from more
// than one source.
func SortEvents(events []ResizeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StreamOffset != events[j].StreamOffset {
			return events[i].StreamOffset < events[j].StreamOffset
		}
		if events[i].TNs != events[j].TNs {
			return events[i].TNs < events[j].TNs
		}
		return events[i].seq < events[j].seq
	})
}

// LastResizeBefore returns a pointer to the last event in a
// canonically-sorted slice with StreamOffset strictly less than offset,
// or nil if none apply — used to initialise a renderer mid-stream at a
// byte offset that has not yet been reached.
func LastResizeBefore(events []ResizeEvent, offset int64) *ResizeEvent {
	i := sort.Search(len(events), func(i int) bool { return events[i].StreamOffset >= offset })
	if i == 0 {
		return nil
	}
	return &events[i-1]
}

// lastResizeAtOrBefore returns a pointer to the last event with
// StreamOffset <= offset. Segment uses this, not LastResizeBefore: a
// resize landing exactly at a run's start offset sets that run's
// geometry, whereas LastResizeBefore's public, spec'd contract is
// strict (see its doc comment).
func lastResizeAtOrBefore(events []ResizeEvent, offset int64) *ResizeEvent {
	i := sort.Search(len(events), func(i int) bool { return events[i].StreamOffset > offset })
	if i == 0 {
		return nil
	}
	return &events[i-1]
}

// SegmentItem is one contiguous run of bytes rendered under a single,
// unchanging terminal geometry.
type SegmentItem struct {
	Start, End int64 // [Start, End) within the output stream
	Cols, Rows uint32
}

// Segment splits the output byte range [start, end) into runs at every
// resize boundary that falls inside it, attaching to each run the
// geometry in effect for its bytes. events must be canonically sorted
// (see SortEvents); initialCols/initialRows apply before the first
// in-range resize.
func Segment(events []ResizeEvent, start, end int64, initialCols, initialRows uint32) []SegmentItem {
	if end <= start {
		return nil
	}
	cols, rows := initialCols, initialRows
	if last := lastResizeAtOrBefore(events, start); last != nil {
		cols, rows = last.Cols, last.Rows
	}

	i := sort.Search(len(events), func(i int) bool { return events[i].StreamOffset > start })
	var segs []SegmentItem
	cursor := start
	for ; i < len(events) && events[i].StreamOffset < end; i++ {
		if events[i].StreamOffset > cursor {
			segs = append(segs, SegmentItem{Start: cursor, End: events[i].StreamOffset, Cols: cols, Rows: rows})
			cursor = events[i].StreamOffset
		}
		cols, rows = events[i].Cols, events[i].Rows
	}
	if cursor < end {
		segs = append(segs, SegmentItem{Start: cursor, End: end, Cols: cols, Rows: rows})
	}
	return segs
}
