// Package varint implements the ULEB128 encoding used by the TCAP
// time-index sidecar: unsigned, minimal, one or more 7-bit groups with
// a continuation bit in the high bit of every byte but the last.
package varint

import "errors"

// ErrTruncated is returned when the buffer ends before a continuation
// bit is cleared — the caller should treat the bytes as a partial
// trailing record and discard them, not as corruption.
var ErrTruncated = errors.New("varint: truncated")

// ErrOverflow is returned when the accumulated value would need 64 or
// more bits of shift to represent — this is corruption, not a partial
// write, and callers should surface it rather than silently trim.
var ErrOverflow = errors.New("varint: overflow")

// MaxLen is the longest a ULEB128 encoding of a 64-bit value can be.
const MaxLen = 10

// Append encodes v as ULEB128 and appends it to dst, returning the
// extended slice. Always emits at least one byte, including for v == 0.
func Append(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		return append(dst, b)
	}
}

// Encode returns the minimal ULEB128 encoding of v as a fresh slice.
func Encode(v uint64) []byte {
	return Append(make([]byte, 0, MaxLen), v)
}

// Decode reads one ULEB128 value from buf starting at offset. It
// returns the decoded value and the number of bytes consumed. It never
// reads past len(buf). ErrTruncated means the buffer ended mid-value;
// ErrOverflow means the value needs 64+ bits of shift and the record is
// corrupt rather than merely incomplete.
func Decode(buf []byte, offset int) (value uint64, consumed int, err error) {
	var shift uint
	i := offset
	for {
		if i >= len(buf) {
			return 0, 0, ErrTruncated
		}
		b := buf[i]
		i++
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, i - offset, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, ErrOverflow
		}
	}
}
