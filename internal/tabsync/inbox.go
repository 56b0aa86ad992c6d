package tabsync

import "sync"

// inbox is a thread-safe FIFO queue for inbound messages.
//
// The queue is unbounded so a transport goroutine never blocks on a slow
// tab. Channel handlers enqueue from any goroutine while Run or Drain
// dequeues.
//
// The signal channel enables context-aware waiting in Run.
type inbox struct {
	mu     sync.Mutex
	msgs   []Message
	closed bool
	signal chan struct{} // buffered, size 1
}

func newInbox() *inbox {
	return &inbox{
		msgs:   make([]Message, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds msg to the back of the queue.
// Returns false if the queue is closed.
func (q *inbox) Enqueue(msg Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.msgs = append(q.msgs, msg)

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front message without blocking.
func (q *inbox) TryDequeue() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.msgs) == 0 {
		return Message{}, false
	}
	msg := q.msgs[0]

	// Release the image map held by the slot.
	q.msgs[0] = Message{}
	if len(q.msgs) == 1 {
		q.msgs = q.msgs[:0]
	} else {
		q.msgs = q.msgs[1:]
	}
	return msg, true
}

// Wait returns a channel that signals when messages may be available.
// It is closed by Close.
func (q *inbox) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// Close stops further enqueues and wakes waiters.
func (q *inbox) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
