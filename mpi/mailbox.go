package mpi

import (
	"fmt"
	"sync"
)

// mailboxDepth is how many undelivered messages may queue per (source, tag)
// before a sender blocks. The simulation keeps at most one in flight.
const mailboxDepth = 64

// abortSignal is closed once, carrying the cause to every waiter.
type abortSignal struct {
	once sync.Once
	ch   chan struct{}
	err  error
}

func newAbortSignal() *abortSignal {
	return &abortSignal{ch: make(chan struct{})}
}

func (s *abortSignal) abort(err error) {
	s.once.Do(func() {
		if err == nil {
			s.err = ErrAborted
		} else {
			s.err = fmt.Errorf("%w: %w", ErrAborted, err)
		}
		close(s.ch)
	})
}

type mailKey struct {
	src, tag int
}

// mailbox holds the messages that arrived at one rank, queued per source
// and tag.
type mailbox struct {
	mu     sync.Mutex
	queues map[mailKey]chan []uint8
	abort  *abortSignal
}

func newMailbox(abort *abortSignal) *mailbox {
	return &mailbox{
		queues: make(map[mailKey]chan []uint8),
		abort:  abort,
	}
}

func (m *mailbox) queue(src, tag int) chan []uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := mailKey{src, tag}
	q, ok := m.queues[k]
	if !ok {
		q = make(chan []uint8, mailboxDepth)
		m.queues[k] = q
	}
	return q
}

// deliver queues data, blocking while the queue is full.
func (m *mailbox) deliver(src, tag int, data []uint8) error {
	select {
	case m.queue(src, tag) <- data:
		return nil
	case <-m.abort.ch:
		return m.abort.err
	}
}

// post queues a copy of data and returns a request that completes once it
// is queued.
func (m *mailbox) post(src, tag int, data []uint8) Request {
	msg := make([]uint8, len(data))
	copy(msg, data)
	select {
	case m.queue(src, tag) <- msg:
		return completed(nil)
	default:
	}
	r := newRequest()
	go func() {
		r.complete(m.deliver(src, tag, msg))
	}()
	return r
}

// recvRequest takes its message from the mailbox the first time it is
// waited on, so receives sharing a queue are matched in wait order.
// Queued messages keep their arrival order.
type recvRequest struct {
	box  *mailbox
	src  int
	tag  int
	buf  []uint8
	once sync.Once
	err  error
}

func (m *mailbox) receive(src, tag int, buf []uint8) Request {
	return &recvRequest{box: m, src: src, tag: tag, buf: buf}
}

func (r *recvRequest) Wait() error {
	r.once.Do(func() {
		select {
		case msg := <-r.box.queue(r.src, r.tag):
			if len(msg) != len(r.buf) {
				r.err = fmt.Errorf("%w: got %d from rank %d tag %d, want %d",
					ErrTruncated, len(msg), r.src, r.tag, len(r.buf))
				return
			}
			copy(r.buf, msg)
		case <-r.box.abort.ch:
			r.err = r.box.abort.err
		}
	})
	return r.err
}
