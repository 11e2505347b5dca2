package wire

import (
	"bytes"
	"math"
	"math/rand"
	"testing"
)

// TestRoundTrip verifies decode(encode(x)) == x for every primitive over
// randomly generated values.
func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		u8 := uint8(rng.Uint32())
		i8 := int8(rng.Uint32())
		u16 := uint16(rng.Uint32())
		i16 := int16(rng.Uint32())
		u32 := rng.Uint32()
		i32 := int32(rng.Uint32())
		u64 := rng.Uint64()
		i64 := int64(rng.Uint64())
		f32 := float32(rng.NormFloat64())
		f64 := rng.NormFloat64()
		b := rng.Intn(2) == 0
		str := "player_" + string(rune('a'+rng.Intn(26)))
		blob := make([]byte, rng.Intn(64))
		rng.Read(blob)

		w := NewWriter(0)
		w.WriteU8(u8)
		w.WriteI8(i8)
		w.WriteU16(u16)
		w.WriteI16(i16)
		w.WriteU32(u32)
		w.WriteI32(i32)
		w.WriteU64(u64)
		w.WriteI64(i64)
		w.WriteF32(f32)
		w.WriteF64(f64)
		w.WriteBool(b)
		w.WriteString(str)
		w.WriteBlob(blob)

		r := NewReader(w.Bytes())
		if got := r.U8(); got != u8 {
			t.Fatalf("u8: got %d, want %d", got, u8)
		}
		if got := r.I8(); got != i8 {
			t.Fatalf("i8: got %d, want %d", got, i8)
		}
		if got := r.U16(); got != u16 {
			t.Fatalf("u16: got %d, want %d", got, u16)
		}
		if got := r.I16(); got != i16 {
			t.Fatalf("i16: got %d, want %d", got, i16)
		}
		if got := r.U32(); got != u32 {
			t.Fatalf("u32: got %d, want %d", got, u32)
		}
		if got := r.I32(); got != i32 {
			t.Fatalf("i32: got %d, want %d", got, i32)
		}
		if got := r.U64(); got != u64 {
			t.Fatalf("u64: got %d, want %d", got, u64)
		}
		if got := r.I64(); got != i64 {
			t.Fatalf("i64: got %d, want %d", got, i64)
		}
		if got := r.F32(); got != f32 && !(math.IsNaN(float64(got)) && math.IsNaN(float64(f32))) {
			t.Fatalf("f32: got %v, want %v", got, f32)
		}
		if got := r.F64(); got != f64 && !(math.IsNaN(got) && math.IsNaN(f64)) {
			t.Fatalf("f64: got %v, want %v", got, f64)
		}
		if got := r.Bool(); got != b {
			t.Fatalf("bool: got %v, want %v", got, b)
		}
		if got := r.String(); got != str {
			t.Fatalf("string: got %q, want %q", got, str)
		}
		if got := r.Blob(); !bytes.Equal(got, blob) {
			t.Fatalf("blob: got %v, want %v", got, blob)
		}
		if !r.Valid() {
			t.Fatal("reader should still be valid")
		}
		if r.Remaining() != 0 {
			t.Fatalf("expected full consumption, %d bytes left", r.Remaining())
		}
	}
}

// TestBigEndian pins the on-wire byte order.
func TestBigEndian(t *testing.T) {
	w := NewWriter(0)
	w.WriteU32(0x01020304)
	want := []byte{0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("got % x, want % x", w.Bytes(), want)
	}
}

// TestReaderStickyInvalid verifies a failed read poisons all later reads.
func TestReaderStickyInvalid(t *testing.T) {
	r := NewReader([]byte{0x01})
	if got := r.U8(); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	if got := r.U32(); got != 0 {
		t.Fatalf("short read should return zero, got %d", got)
	}
	if r.Valid() {
		t.Fatal("reader should be invalid after short read")
	}
	// Even reads that would fit must now fail.
	if got := r.U8(); got != 0 {
		t.Fatalf("poisoned read should return zero, got %d", got)
	}
	if r.Valid() {
		t.Fatal("validity must be sticky")
	}
}

// TestCounterMatchesWriter verifies the counting stream predicts exactly
// the bytes the writer produces.
func TestCounterMatchesWriter(t *testing.T) {
	w := NewWriter(0)
	c := &Counter{}
	for _, sink := range []Sink{w, c} {
		sink.WriteU8(1)
		sink.WriteU16(2)
		sink.WriteU32(3)
		sink.WriteU64(4)
		sink.WriteF32(5)
		sink.WriteF64(6)
		sink.WriteBool(true)
		sink.WriteString("hello")
		sink.WriteBlob([]byte{1, 2, 3})
	}
	if c.Len() != w.Len() {
		t.Fatalf("counter predicted %d bytes, writer produced %d", c.Len(), w.Len())
	}
}

// TestReplace verifies the reserve-then-patch pattern delta masks use.
func TestReplace(t *testing.T) {
	w := NewWriter(0)
	at := w.Len()
	w.WriteU16(0)
	w.WriteU8(0xaa)
	w.ReplaceU16(at, 0x1234)

	r := NewReader(w.Bytes())
	if got := r.U16(); got != 0x1234 {
		t.Fatalf("got %#x, want 0x1234", got)
	}
	if got := r.U8(); got != 0xaa {
		t.Fatalf("got %#x, want 0xaa", got)
	}
}

// TestInsertAt verifies mid-buffer insertion shifts the tail.
func TestInsertAt(t *testing.T) {
	w := NewWriter(0)
	w.WriteBytes([]byte{1, 4})
	w.InsertAt(1, []byte{2, 3})
	if !bytes.Equal(w.Bytes(), []byte{1, 2, 3, 4}) {
		t.Fatalf("got %v", w.Bytes())
	}
}

// TestSeqDiff verifies circular sequence comparison across the wrap.
func TestSeqDiff(t *testing.T) {
	tests := []struct {
		a, b  uint32
		newer bool
	}{
		{1, 2, true},
		{2, 1, false},
		{5, 5, false},
		{0xffffffff, 0, true},
		{0, 0xffffffff, false},
	}
	for _, tt := range tests {
		if got := SeqNewer(tt.a, tt.b); got != tt.newer {
			t.Errorf("SeqNewer(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.newer)
		}
	}
}

// TestOptionalRoundTrip covers present, absent and corrupt discriminators.
func TestOptionalRoundTrip(t *testing.T) {
	writeU32 := func(w Sink, v uint32) { w.WriteU32(v) }
	readU32 := func(r *Reader) uint32 { return r.U32() }

	w := NewWriter(0)
	present := uint32(7)
	EncodeOptional(w, &present, writeU32)
	EncodeOptional[uint32](w, nil, writeU32)

	r := NewReader(w.Bytes())
	if got := DecodeOptional(r, readU32); got == nil || *got != 7 {
		t.Fatalf("present optional: got %v", got)
	}
	if got := DecodeOptional(r, readU32); got != nil {
		t.Fatalf("absent optional: got %v", got)
	}
	if !r.Valid() || r.Remaining() != 0 {
		t.Fatal("optional round trip left the stream dirty")
	}

	// A discriminator above 1 invalidates the stream.
	r = NewReader([]byte{2})
	if got := DecodeOptional(r, readU32); got != nil || r.Valid() {
		t.Fatal("corrupt discriminator must invalidate the stream")
	}
}

// TestWriteIntoExistingBuffer verifies writing into a pre-allocated buffer
// produces the same bytes as a fresh one.
func TestWriteIntoExistingBuffer(t *testing.T) {
	fresh := NewWriter(0)
	prealloc := NewWriter(256)
	for _, w := range []*Writer{fresh, prealloc} {
		w.WriteU32(42)
		w.WriteString("abc")
	}
	if !bytes.Equal(fresh.Bytes(), prealloc.Bytes()) {
		t.Fatal("buffers differ between fresh and pre-allocated writers")
	}
}
