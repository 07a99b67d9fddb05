package tcap

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/wtcap/wtcap/internal/varint"
)

// TIndex is the parsed, fully-reconstructed form of one .tidx sidecar:
// parallel arrays of cumulative t_ns and end_offset, one pair per
// commit-point record.
type TIndex struct {
	StartedAtUnixNs int64
	TNs             []int64
	EndOffset       []int64
}

// ReadOptions controls tolerant parsing behavior.
type ReadOptions struct {
	// AllowUnknownFlags accepts a .tidx whose flags byte is non-zero
	// instead of rejecting it. v1 never sets any flag, so the default
	// (false) is correct for every file this writer produces.
	AllowUnknownFlags bool
}

// ReadTIndex parses a .tidx file. A truncated trailing record (the
// buffer ends mid-varint) is silently discarded, returning the valid
// prefix read so far. A varint that overflows 64 bits is corruption
// and is returned as an error.
func ReadTIndex(path string, opts ReadOptions) (*TIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < tidxHeaderLen {
		return nil, fmt.Errorf("tcap: %s: file shorter than header", path)
	}
	if string(data[0:5]) != tidxMagic {
		return nil, fmt.Errorf("tcap: %s: bad magic %q", path, data[0:5])
	}
	flags := data[5]
	if flags != 0 && !opts.AllowUnknownFlags {
		return nil, fmt.Errorf("tcap: %s: unknown flags 0x%02x", path, flags)
	}
	startedAt := int64(binary.LittleEndian.Uint64(data[6:14]))

	ix := &TIndex{StartedAtUnixNs: startedAt}
	offset := tidxHeaderLen
	var cumT, cumEnd int64
	for offset < len(data) {
		dt, n1, err := varint.Decode(data, offset)
		if err == varint.ErrTruncated {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tcap: %s: dt_ns record at offset %d: %w", path, offset, err)
		}
		dend, n2, err := varint.Decode(data, offset+n1)
		if err == varint.ErrTruncated {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tcap: %s: dend record at offset %d: %w", path, offset, err)
		}
		cumT += int64(dt)
		cumEnd += int64(dend)
		ix.TNs = append(ix.TNs, cumT)
		ix.EndOffset = append(ix.EndOffset, cumEnd)
		offset += n1 + n2
	}
	return ix, nil
}

// TruncateToRawLength trims records whose end_offset exceeds L,
// recovering a usable index after an unclean shutdown where the raw
// file is shorter than what the sidecar claims.
func (ix *TIndex) TruncateToRawLength(l int64) {
	n := sort.Search(len(ix.EndOffset), func(i int) bool { return ix.EndOffset[i] > l })
	ix.TNs = ix.TNs[:n]
	ix.EndOffset = ix.EndOffset[:n]
}

// OffsetAtTime returns the end_offset of the least record whose t_ns
// is >= T. Returns 0 if the index is empty or T <= 0. A T beyond the
// last recorded t_ns saturates to the last end_offset.
func (ix *TIndex) OffsetAtTime(t int64) int64 {
	if len(ix.TNs) == 0 || t <= 0 {
		return 0
	}
	i := sort.Search(len(ix.TNs), func(i int) bool { return ix.TNs[i] >= t })
	if i == len(ix.TNs) {
		return ix.EndOffset[len(ix.EndOffset)-1]
	}
	return ix.EndOffset[i]
}

// TimeAtOffset returns the t_ns of the least record whose end_offset
// is >= O. Returns 0 if the index is empty. An O beyond the last
// recorded end_offset saturates to the last t_ns.
func (ix *TIndex) TimeAtOffset(o int64) int64 {
	if len(ix.EndOffset) == 0 {
		return 0
	}
	i := sort.Search(len(ix.EndOffset), func(i int) bool { return ix.EndOffset[i] >= o })
	if i == len(ix.TNs) {
		return ix.TNs[len(ix.TNs)-1]
	}
	return ix.TNs[i]
}

// RenderedTimeAtOffset returns the t_ns of the most recently completed
// segment at or before O: the greatest j with end_offset[j] <= O, or 0
// if none. For an O strictly inside a segment, TimeAtOffset reports the
// segment that contains O while this reports the one completed before
// it; both are monotone non-decreasing in O. Reporting only completed
// segments is what makes it suitable for lag-sensitive rendering.
func (ix *TIndex) RenderedTimeAtOffset(o int64) int64 {
	i := sort.Search(len(ix.EndOffset), func(i int) bool { return ix.EndOffset[i] > o })
	j := i - 1
	if j < 0 {
		return 0
	}
	return ix.TNs[j]
}

// Len reports the number of parsed records.
func (ix *TIndex) Len() int { return len(ix.TNs) }
