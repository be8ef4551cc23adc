package grid

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// EventType identifies an interaction event.
type EventType string

const (
	EventActivate EventType = "activate"
	EventFlip     EventType = "flip"
	EventUnflip   EventType = "unflip"
	EventReset    EventType = "reset"
	EventFinale   EventType = "finale"
	EventResize   EventType = "resize"
)

// Event is one interaction log record. For resize events A and B carry the
// new canvas dimensions instead of a grid coordinate.
type Event struct {
	Sequence  uint64    `json:"seq"`
	Type      EventType `json:"type"`
	A         int       `json:"a"`
	B         int       `json:"b"`
	Tick      int64     `json:"tick"`
	Timestamp time.Time `json:"ts"`
}

const (
	eventBufferSize    = 1024 // Circular buffer size
	maxEventsPerSec    = 1000 // Global rate limit
	batchFlushSize     = 64   // Events per batch write
	batchFlushInterval = 100 * time.Millisecond
)

// EventLog provides bounded, rate-limited interaction logging with
// backpressure. Emissions never block the engine tick; when the writer
// falls behind, the oldest events are dropped instead.
type EventLog struct {
	// Circular buffer (lock-free SPSC pattern)
	buffer    [eventBufferSize]Event
	writeHead uint64 // atomic - producer position
	readHead  uint64 // atomic - consumer position

	limiter *rate.Limiter

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file   *os.File
	fileMu sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// NewEventLog creates a bounded event log. It accepts emissions only after
// Start; before that every Emit is a counted drop.
func NewEventLog() *EventLog {
	return &EventLog{
		limiter:  rate.NewLimiter(maxEventsPerSec, maxEventsPerSec/10),
		stopChan: make(chan struct{}),
	}
}

// Start opens the output file and begins the async writer goroutine.
// An empty path keeps the log in-memory only.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(1)
	go el.writerLoop()
	return nil
}

// Stop flushes pending events and shuts the writer down.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit records an event. Returns false when rate limited or not running.
func (el *EventLog) Emit(eventType EventType, a, b int, tick int64) bool {
	if !el.running.Load() {
		return false
	}

	if !el.limiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	// Single producer: the engine emits under its own mutex. Slot i holds
	// event i, and the head only advances after the slot is populated so
	// the writer goroutine never reads a stale record.
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	// Buffer full: drop the oldest event (rolling window).
	if head-tail >= eventBufferSize {
		atomic.AddUint64(&el.readHead, 1)
		atomic.AddUint64(&el.droppedCount, 1)
	}

	el.buffer[head%eventBufferSize] = Event{
		Sequence:  head + 1,
		Type:      eventType,
		A:         a,
		B:         b,
		Tick:      tick,
		Timestamp: time.Now(),
	}
	atomic.StoreUint64(&el.writeHead, head+1)

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// writerLoop batches and writes events to disk asynchronously.
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(batchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchFlushSize)

	for {
		select {
		case <-el.stopChan:
			// Final flush
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
			return

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// collectBatch reads available events from the circular buffer.
func (el *EventLog) collectBatch(batch []Event) []Event {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	for i := tail; i < head && len(batch) < batchFlushSize; i++ {
		batch = append(batch, el.buffer[i%eventBufferSize])
	}
	if len(batch) > 0 {
		atomic.AddUint64(&el.readHead, uint64(len(batch)))
	}
	return batch
}

// flushBatch writes events as newline-delimited JSON.
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}
	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.file.Write(data)
		el.file.Write([]byte("\n"))
	}
}

// Stats returns counters for monitoring.
func (el *EventLog) Stats() (total, dropped, pending uint64) {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)
	return atomic.LoadUint64(&el.totalCount), atomic.LoadUint64(&el.droppedCount), head - tail
}
