package tcap

import (
	"os"
	"path/filepath"
	"testing"
)

func buildIndex(t *testing.T, records [][2]int64) *TIndex {
	t.Helper()
	dir := t.TempDir()
	prefix := filepath.Join(dir, "sess")
	w, err := Open(prefix, 0, 1, "", nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()
	for _, r := range records {
		tNs, n := r[0], r[1]
		data := make([]byte, n)
		if err := w.AppendOutput(data, tNs); err != nil {
			t.Fatalf("AppendOutput: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	ix, err := ReadTIndex(prefix+".output.tidx", ReadOptions{})
	if err != nil {
		t.Fatalf("ReadTIndex: %v", err)
	}
	return ix
}

func TestIndexQueries(t *testing.T) {
	// Two commits: t=100 -> offset 10, t=200 -> offset 25.
	ix := buildIndex(t, [][2]int64{{100, 10}, {200, 15}})

	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"OffsetAtTime before first", ix.OffsetAtTime(50), 10},
		{"OffsetAtTime exact", ix.OffsetAtTime(100), 10},
		{"OffsetAtTime between", ix.OffsetAtTime(150), 25},
		{"OffsetAtTime beyond last saturates", ix.OffsetAtTime(999), 25},
		{"OffsetAtTime zero", ix.OffsetAtTime(0), 0},
		{"TimeAtOffset before first", ix.TimeAtOffset(5), 100},
		{"TimeAtOffset exact", ix.TimeAtOffset(10), 100},
		{"TimeAtOffset between", ix.TimeAtOffset(20), 200},
		{"TimeAtOffset beyond last saturates", ix.TimeAtOffset(999), 200},
		{"RenderedTimeAtOffset mid-segment", ix.RenderedTimeAtOffset(12), 100},
		{"RenderedTimeAtOffset at boundary", ix.RenderedTimeAtOffset(10), 100},
		{"RenderedTimeAtOffset before any commit", ix.RenderedTimeAtOffset(0), 0},
		{"RenderedTimeAtOffset past all", ix.RenderedTimeAtOffset(100), 200},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestEmptyIndexQueriesReturnZero(t *testing.T) {
	ix := &TIndex{}
	if got := ix.OffsetAtTime(100); got != 0 {
		t.Errorf("OffsetAtTime = %d, want 0", got)
	}
	if got := ix.TimeAtOffset(100); got != 0 {
		t.Errorf("TimeAtOffset = %d, want 0", got)
	}
	if got := ix.RenderedTimeAtOffset(100); got != 0 {
		t.Errorf("RenderedTimeAtOffset = %d, want 0", got)
	}
}

func TestTruncateToRawLength(t *testing.T) {
	ix := buildIndex(t, [][2]int64{{100, 10}, {200, 10}, {300, 10}})
	if ix.Len() != 3 {
		t.Fatalf("setup: got %d records, want 3", ix.Len())
	}
	ix.TruncateToRawLength(15) // raw file only has 15 of the claimed 30 bytes
	if ix.Len() != 1 {
		t.Fatalf("after truncate: got %d records, want 1", ix.Len())
	}
	if ix.EndOffset[0] != 10 {
		t.Errorf("surviving record end_offset = %d, want 10", ix.EndOffset[0])
	}
}

func TestReadTIndexDiscardsTrailingPartialRecord(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "sess")
	w, err := Open(prefix, 0, 1, "", nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.AppendOutput([]byte("hello"), 100); err != nil {
		t.Fatalf("AppendOutput: %v", err)
	}
	w.Close()

	// Append a dangling continuation byte simulating a crash mid-record.
	f, err := os.OpenFile(prefix+".output.tidx", os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.Write([]byte{0x80}); err != nil {
		t.Fatalf("write dangling byte: %v", err)
	}
	f.Close()

	ix, err := ReadTIndex(prefix+".output.tidx", ReadOptions{})
	if err != nil {
		t.Fatalf("ReadTIndex: %v", err)
	}
	if ix.Len() != 1 {
		t.Fatalf("got %d records, want 1 (trailing partial discarded)", ix.Len())
	}
}

func TestReadTIndexRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.tidx")
	if err := os.WriteFile(path, []byte("NOTMAGIC0000000"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadTIndex(path, ReadOptions{}); err == nil {
		t.Error("expected error for bad magic, got nil")
	}
}
