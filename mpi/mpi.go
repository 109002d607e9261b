// Package mpi provides the message passing used between simulation ranks:
// tagged point-to-point messages with non-blocking requests, and an
// all-reduce collective. Two worlds implement it: LocalWorld, where every
// rank is a goroutine in one process, and Dial, where every rank is its own
// process talking net/rpc over TCP.
package mpi

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Root is the rank 0 node, which collects reductions and renders.
const Root = 0

// Op is an aggregation operation for AllReduce.
type Op int

const (
	OpSum Op = iota
	OpMax
	OpMin
	OpLAND // logical AND
	OpLOR  // logical OR
)

func (op Op) String() string {
	switch op {
	case OpSum:
		return "sum"
	case OpMax:
		return "max"
	case OpMin:
		return "min"
	case OpLAND:
		return "land"
	case OpLOR:
		return "lor"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

func (op Op) apply(a, b int) int {
	switch op {
	case OpSum:
		return a + b
	case OpMax:
		return max(a, b)
	case OpMin:
		return min(a, b)
	case OpLAND:
		return boolInt(a != 0 && b != 0)
	case OpLOR:
		return boolInt(a != 0 || b != 0)
	}
	panic(fmt.Sprintf("mpi: unknown op %d", int(op)))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Tags at or above ReservedTag are used by the collectives.
const (
	ReservedTag     = 1 << 20
	tagReduce       = ReservedTag
	tagReduceResult = ReservedTag + 1
)

var (
	// ErrTruncated is returned when a message does not have the length of
	// the buffer it is received into.
	ErrTruncated = errors.New("mpi: message length does not match receive buffer")

	// ErrAborted is returned by every request once the world is aborted.
	ErrAborted = errors.New("mpi: world aborted")

	// ErrRank is returned when a peer rank is outside [0, Size).
	ErrRank = errors.New("mpi: rank out of range")
)

// Request is a pending non-blocking send or receive.
type Request interface {
	// Wait blocks until the operation is complete. It may be called more
	// than once and always returns the same error.
	Wait() error
}

// Comm is the communicator a rank uses to reach every other rank.
//
// A receive takes the oldest queued message with its source and tag when it
// is first waited on, not when it is posted: of two pending receives with the
// same source and tag, the one waited on first gets the older message.
// Isend copies data before returning, so the caller may reuse the buffer,
// but it must still Wait on the request before relying on delivery.
type Comm interface {
	// Rank returns the rank of this process, in [0, Size).
	Rank() int

	// Size returns the number of ranks in the world.
	Size() int

	// Isend starts sending data to dest with the given tag.
	Isend(dest, tag int, data []uint8) Request

	// Irecv starts receiving the next message from src with the given tag
	// into buf. The message length must equal len(buf).
	Irecv(src, tag int, buf []uint8) Request

	// Send is a blocking Isend.
	Send(dest, tag int, data []uint8) error

	// Recv is a blocking Irecv.
	Recv(src, tag int, buf []uint8) error

	// AllReduce combines v from every rank with op and returns the result
	// on every rank. All ranks must call it.
	AllReduce(op Op, v int) (int, error)

	// Abort fails every pending and future request with err.
	Abort(err error)

	// Finalize releases the resources of the communicator.
	Finalize() error
}

// WaitAll waits for every request, in no particular order, and returns
// the first error.
func WaitAll(reqs ...Request) error {
	var g errgroup.Group
	for _, r := range reqs {
		g.Go(r.Wait)
	}
	return g.Wait()
}

// request is a Request that completes when done is closed.
type request struct {
	done chan struct{}
	err  error
}

func newRequest() *request {
	return &request{done: make(chan struct{})}
}

func (r *request) complete(err error) {
	r.err = err
	close(r.done)
}

func (r *request) Wait() error {
	<-r.done
	return r.err
}

// completed returns a request that has already finished with err.
func completed(err error) Request {
	r := newRequest()
	r.complete(err)
	return r
}

func checkRank(rank, size int) error {
	if rank < 0 || rank >= size {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRank, rank, size)
	}
	return nil
}
