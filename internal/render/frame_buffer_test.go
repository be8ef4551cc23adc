package render_test

import (
	"bytes"
	"testing"

	"glowgrid/internal/render"
)

// TestRingBufferWriteRead verifies FIFO order with variable-length frames
func TestRingBufferWriteRead(t *testing.T) {
	rb := render.NewFrameRingBuffer(64)

	frames := [][]byte{
		[]byte("short"),
		bytes.Repeat([]byte{0xAB}, 200), // larger than the typical size
		[]byte("x"),
	}
	for _, f := range frames {
		if !rb.TryWrite(f) {
			t.Fatal("write failed on non-full buffer")
		}
	}

	if rb.Available() != 3 {
		t.Errorf("available: got %d, want 3", rb.Available())
	}

	for i, want := range frames {
		got := rb.TryRead()
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d: got %d bytes, want %d", i, len(got), len(want))
		}
	}
	if rb.TryRead() != nil {
		t.Error("read from empty buffer should return nil")
	}
}

// TestRingBufferDropsWhenFull verifies the producer never blocks: overflow
// frames are counted as dropped
func TestRingBufferDropsWhenFull(t *testing.T) {
	rb := render.NewFrameRingBuffer(8)

	// Capacity is BufferSize-1 before the writer would lap the reader
	for i := 0; i < render.BufferSize-1; i++ {
		if !rb.TryWrite([]byte{byte(i)}) {
			t.Fatalf("write %d rejected before buffer was full", i)
		}
	}

	if rb.TryWrite([]byte{0xFF}) {
		t.Error("write to full buffer should be dropped")
	}

	_, dropped, _ := rb.Stats()
	if dropped != 1 {
		t.Errorf("dropped count: got %d, want 1", dropped)
	}

	// Draining one slot frees space again
	rb.TryRead()
	if !rb.TryWrite([]byte{0x01}) {
		t.Error("write after drain should succeed")
	}
}

// TestRingBufferFrameIsolation verifies a short frame after a long one does
// not leak the previous slot's bytes
func TestRingBufferFrameIsolation(t *testing.T) {
	rb := render.NewFrameRingBuffer(8)

	// Cycle the same slot: long frame, full wrap, then a short frame
	rb.TryWrite(bytes.Repeat([]byte{0xEE}, 100))
	rb.TryRead()
	for i := 0; i < render.BufferSize; i++ {
		rb.TryWrite([]byte{byte(i)})
		rb.TryRead()
	}

	rb.TryWrite([]byte{0x42})
	got := rb.TryRead()
	if len(got) != 1 || got[0] != 0x42 {
		t.Errorf("short frame after long: got %v", got)
	}
}

// TestRingBufferReset verifies reset empties the buffer and zeroes stats
func TestRingBufferReset(t *testing.T) {
	rb := render.NewFrameRingBuffer(8)
	rb.TryWrite([]byte("a"))
	rb.TryWrite([]byte("b"))

	rb.Reset()

	if rb.Available() != 0 {
		t.Errorf("available after reset: got %d", rb.Available())
	}
	written, dropped, read := rb.Stats()
	if written != 0 || dropped != 0 || read != 0 {
		t.Errorf("stats after reset: %d/%d/%d", written, dropped, read)
	}
}
