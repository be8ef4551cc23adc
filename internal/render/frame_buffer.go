package render

import (
	"sync/atomic"
)

// BufferSize is the number of frame slots in the ring buffer.
// At 30fps: 16 frames is roughly half a second of slack for the sender to
// catch up during encode spikes or slow consumers.
const BufferSize = 16

// FrameRingBuffer provides lock-free frame buffering between the render
// loop and the broadcast sender. Encoded PNG frames vary in size, so each
// slot tracks its own length; slots grow to the largest frame seen and are
// then reused. If the buffer is full, new frames are dropped rather than
// blocking the render loop.
type FrameRingBuffer struct {
	frames   [BufferSize][]byte
	lengths  [BufferSize]int
	readIdx  uint32 // atomic - consumer index
	writeIdx uint32 // atomic - producer index

	framesWritten uint64
	framesDropped uint64
	framesRead    uint64
}

// NewFrameRingBuffer creates a ring buffer with slots pre-sized to a
// typical encoded frame.
func NewFrameRingBuffer(typicalFrameSize int) *FrameRingBuffer {
	rb := &FrameRingBuffer{}
	for i := 0; i < BufferSize; i++ {
		rb.frames[i] = make([]byte, 0, typicalFrameSize)
	}
	return rb
}

// TryWrite attempts to write a frame to the buffer.
// Returns false if the buffer is full (frame dropped). Lock-free and safe
// to call from the render goroutine.
func (rb *FrameRingBuffer) TryWrite(frame []byte) bool {
	currentWrite := atomic.LoadUint32(&rb.writeIdx)
	nextWrite := (currentWrite + 1) % BufferSize

	// Full: would catch up to the reader
	if nextWrite == atomic.LoadUint32(&rb.readIdx) {
		atomic.AddUint64(&rb.framesDropped, 1)
		return false
	}

	slot := rb.frames[currentWrite][:0]
	slot = append(slot, frame...)
	rb.frames[currentWrite] = slot
	rb.lengths[currentWrite] = len(frame)

	atomic.StoreUint32(&rb.writeIdx, nextWrite)
	atomic.AddUint64(&rb.framesWritten, 1)
	return true
}

// TryRead attempts to read a frame from the buffer.
// Returns nil if the buffer is empty. The returned slice is valid until
// the slot cycles back around; consumers must use it before the next
// BufferSize writes.
func (rb *FrameRingBuffer) TryRead() []byte {
	readIdx := atomic.LoadUint32(&rb.readIdx)
	writeIdx := atomic.LoadUint32(&rb.writeIdx)

	if readIdx == writeIdx {
		return nil
	}

	frame := rb.frames[readIdx][:rb.lengths[readIdx]]

	atomic.StoreUint32(&rb.readIdx, (readIdx+1)%BufferSize)
	atomic.AddUint64(&rb.framesRead, 1)
	return frame
}

// Available returns the number of frames available to read.
func (rb *FrameRingBuffer) Available() int {
	readIdx := atomic.LoadUint32(&rb.readIdx)
	writeIdx := atomic.LoadUint32(&rb.writeIdx)

	if writeIdx >= readIdx {
		return int(writeIdx - readIdx)
	}
	return int(BufferSize - readIdx + writeIdx)
}

// Stats returns buffer statistics.
func (rb *FrameRingBuffer) Stats() (written, dropped, read uint64) {
	return atomic.LoadUint64(&rb.framesWritten),
		atomic.LoadUint64(&rb.framesDropped),
		atomic.LoadUint64(&rb.framesRead)
}

// Reset resets the buffer indices and stats.
func (rb *FrameRingBuffer) Reset() {
	atomic.StoreUint32(&rb.readIdx, 0)
	atomic.StoreUint32(&rb.writeIdx, 0)
	atomic.StoreUint64(&rb.framesWritten, 0)
	atomic.StoreUint64(&rb.framesDropped, 0)
	atomic.StoreUint64(&rb.framesRead, 0)
}
