package notify

import "time"

// eventRing is a fixed-size circular buffer of encoded events. When full,
// writes overwrite the oldest entry.
type eventRing struct {
	buf  [][]byte
	size int
	head int // write position
	tail int // read position
	full bool

	updated time.Time
}

func newEventRing(size int) *eventRing {
	if size <= 0 {
		size = backlogSize
	}
	return &eventRing{
		buf:  make([][]byte, size),
		size: size,
	}
}

func (r *eventRing) write(data []byte, now time.Time) {
	r.updated = now
	if r.full {
		// Overwrite: advance tail to skip oldest event
		r.tail = (r.tail + 1) % r.size
	}
	r.buf[r.head] = data
	r.head = (r.head + 1) % r.size
	if r.head == r.tail {
		r.full = true
	}
}

func (r *eventRing) len() int {
	switch {
	case r.full:
		return r.size
	case r.head >= r.tail:
		return r.head - r.tail
	default:
		return r.size - r.tail + r.head
	}
}

// drain returns the buffered events oldest first and empties the ring.
func (r *eventRing) drain() [][]byte {
	out := make([][]byte, 0, r.len())
	for i, n := 0, r.len(); i < n; i++ {
		idx := (r.tail + i) % r.size
		out = append(out, r.buf[idx])
		r.buf[idx] = nil
	}
	r.head, r.tail, r.full = 0, 0, false
	return out
}
