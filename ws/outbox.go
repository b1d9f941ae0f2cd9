package ws

import (
	"errors"
	"sync"
)

var ErrOutboxClosed = errors.New("outbox closed")

// Outbound is where a room drops encoded messages for one connection.
// Enqueue must never block.
type Outbound interface {
	Enqueue(msg []byte) error
}

// Outbox is an unbounded FIFO between the room fan-out and a connection's
// write pump. A stalled client grows its own queue instead of stalling the
// room.
type Outbox struct {
	mu     sync.Mutex
	queue  [][]byte
	closed bool
	ready  chan struct{}
}

func NewOutbox() *Outbox {
	return &Outbox{ready: make(chan struct{}, 1)}
}

func (o *Outbox) Enqueue(msg []byte) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrOutboxClosed
	}
	o.queue = append(o.queue, msg)
	o.mu.Unlock()

	o.signal()
	return nil
}

// Ready fires after Enqueue or Close. It may fire with nothing to drain.
func (o *Outbox) Ready() <-chan struct{} {
	return o.ready
}

// Drain takes everything queued so far. closed reports whether Close has been
// called; once it has, nothing more will ever be queued.
func (o *Outbox) Drain() (msgs [][]byte, closed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	msgs, o.queue = o.queue, nil
	return msgs, o.closed
}

func (o *Outbox) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.signal()
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

func (o *Outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}
