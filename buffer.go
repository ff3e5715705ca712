package sensorlog

import "time"

// batchBuffer accumulates validated readings until a flush. It is a plain
// value owned by the Store, which serializes all access; the buffer itself
// carries no locking and performs no I/O.
type batchBuffer struct {
	readings  []Reading
	lastFlush time.Time
}

func newBatchBuffer(capacity int, now time.Time) batchBuffer {
	return batchBuffer{
		readings:  make([]Reading, 0, capacity),
		lastFlush: now,
	}
}

func (b *batchBuffer) append(r Reading) {
	b.readings = append(b.readings, r)
}

func (b *batchBuffer) len() int {
	return len(b.readings)
}

// shouldFlush reports flush eligibility: the size threshold bounds memory
// growth under high-rate writers, the age threshold bounds
// latency-to-durability under low-rate ones.
func (b *batchBuffer) shouldFlush(now time.Time, size int, timeout time.Duration) bool {
	if len(b.readings) == 0 {
		return false
	}
	return len(b.readings) >= size || now.Sub(b.lastFlush) >= timeout
}

// take returns the buffered readings for flushing without clearing them.
// The caller clears on success only, so a failed flush loses nothing.
func (b *batchBuffer) take() []Reading {
	return b.readings
}

// clear empties the buffer and resets the age timer after a successful
// flush.
func (b *batchBuffer) clear(now time.Time) {
	b.readings = b.readings[:0]
	b.lastFlush = now
}
