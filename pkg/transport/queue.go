package transport

import (
	"sync"

	"github.com/golang/glog"
)

// Default queue dimensions.
const (
	DefaultCallbackCapacity     = 8
	DefaultNotificationCapacity = 8
	DefaultMaxPayload           = 46
)

// Entry is a queued outbound frame.
type Entry struct {
	CommandID byte
	Payload   []byte
}

type slot struct {
	commandID byte
	buf       []byte
	size      int
}

// Queue is a fixed capacity FIFO of entries. Slot storage is allocated
// once at construction and reused.
type Queue struct {
	name       string
	maxPayload int
	slots      []slot
	head       int
	tail       int
	count      int
	truncated  int
	lock       sync.Mutex
}

// NewQueue creates a Queue holding up to capacity entries, each with a
// payload of at most maxPayload bytes.
func NewQueue(name string, capacity, maxPayload int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	if maxPayload < 0 {
		maxPayload = 0
	}
	q := &Queue{name: name, maxPayload: maxPayload, slots: make([]slot, capacity)}
	for n := range q.slots {
		q.slots[n].buf = make([]byte, maxPayload)
	}
	return q
}

// Name returns the name of the queue.
func (q *Queue) Name() string {
	return q.name
}

// Cap returns the capacity.
func (q *Queue) Cap() int {
	return len(q.slots)
}

// MaxPayload returns the max payload size of an entry.
func (q *Queue) MaxPayload() int {
	return q.maxPayload
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.count
}

// Truncated returns how many enqueued payloads were truncated.
func (q *Queue) Truncated() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.truncated
}

// Enqueue copies the entry into the tail slot. It returns false without
// side effects when the queue is full. Payload bytes beyond MaxPayload
// are dropped.
func (q *Queue) Enqueue(commandID byte, payload []byte) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.count >= len(q.slots) {
		return false
	}
	s := &q.slots[q.tail]
	s.commandID = commandID
	s.size = copy(s.buf, payload)
	if s.size < len(payload) {
		q.truncated++
		glog.V(2).Infof("%s: payload of 0x%02x truncated %d -> %d", q.name, commandID, len(payload), s.size)
	}
	q.tail = (q.tail + 1) % len(q.slots)
	q.count++
	return true
}

// Peek returns a copy of the head entry without removing it.
func (q *Queue) Peek() (Entry, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.count == 0 {
		return Entry{}, false
	}
	return q.entryAt(q.head), true
}

// Dequeue removes and returns the head entry.
func (q *Queue) Dequeue() (Entry, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.count == 0 {
		return Entry{}, false
	}
	entry := q.entryAt(q.head)
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	return entry, true
}

// Clear discards all entries.
func (q *Queue) Clear() {
	q.lock.Lock()
	q.head, q.tail, q.count = 0, 0, 0
	q.lock.Unlock()
}

func (q *Queue) entryAt(index int) Entry {
	s := &q.slots[index]
	payload := make([]byte, s.size)
	copy(payload, s.buf[:s.size])
	return Entry{CommandID: s.commandID, Payload: payload}
}
