package varint

import (
	"math"
	"testing"
	"testing/quick"
)

func TestEncodeZeroIsOneByte(t *testing.T) {
	enc := Encode(0)
	if len(enc) != 1 {
		t.Fatalf("Encode(0) length = %d, want 1", len(enc))
	}
	if enc[0] != 0 {
		t.Errorf("Encode(0) = %v, want [0]", enc)
	}
}

func TestRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 2, 127, 128, 129, 255, 256,
		1 << 20, 1 << 40, math.MaxUint32,
		math.MaxUint64 - 1, math.MaxUint64,
	}
	for _, v := range values {
		enc := Encode(v)
		got, n, err := Decode(enc, 0)
		if err != nil {
			t.Fatalf("Decode(Encode(%d)) error: %v", v, err)
		}
		if got != v {
			t.Errorf("Decode(Encode(%d)) = %d", v, got)
		}
		if n != len(enc) {
			t.Errorf("Decode(Encode(%d)) consumed %d, want %d", v, n, len(enc))
		}
	}
}

func TestRoundTripQuick(t *testing.T) {
	f := func(v uint64) bool {
		enc := Encode(v)
		got, n, err := Decode(enc, 0)
		return err == nil && got == v && n == len(enc)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	// Continuation bit set, buffer ends before it clears.
	buf := []byte{0x80, 0x80, 0x80}
	_, _, err := Decode(buf, 0)
	if err != ErrTruncated {
		t.Errorf("Decode(truncated) err = %v, want ErrTruncated", err)
	}
}

func TestDecodeOverflow(t *testing.T) {
	// Ten bytes, every one with the continuation bit set — never clears.
	buf := make([]byte, 10)
	for i := range buf {
		buf[i] = 0x80
	}
	_, _, err := Decode(buf, 0)
	if err != ErrOverflow {
		t.Errorf("Decode(10x continuation) err = %v, want ErrOverflow", err)
	}
}

func TestDecodeNineBytesContinuationIsTruncated(t *testing.T) {
	// Nine bytes, all continuation-set: shift never reaches 64, so this is
	// a partial trailing record, not corruption.
	buf := make([]byte, 9)
	for i := range buf {
		buf[i] = 0x80
	}
	_, _, err := Decode(buf, 0)
	if err != ErrTruncated {
		t.Errorf("Decode(9x continuation) err = %v, want ErrTruncated", err)
	}
}

func TestDecodeDoesNotReadPastLength(t *testing.T) {
	buf := []byte{0x01, 0xff, 0xff, 0xff}
	v, n, err := Decode(buf, 0)
	if err != nil || v != 1 || n != 1 {
		t.Fatalf("Decode first value = (%d, %d, %v), want (1, 1, nil)", v, n, err)
	}
	// A slice cut right after the value must decode without looking past its end.
	v2, n2, err2 := Decode(buf[:1], 0)
	if err2 != nil || v2 != 1 || n2 != 1 {
		t.Fatalf("Decode bounded slice = (%d, %d, %v), want (1, 1, nil)", v2, n2, err2)
	}
}

func TestAppendAccumulates(t *testing.T) {
	var dst []byte
	dst = Append(dst, 1)
	dst = Append(dst, 300)
	v1, n1, err := Decode(dst, 0)
	if err != nil || v1 != 1 {
		t.Fatalf("first value = (%d, %v)", v1, err)
	}
	v2, _, err := Decode(dst, n1)
	if err != nil || v2 != 300 {
		t.Fatalf("second value = (%d, %v)", v2, err)
	}
}
