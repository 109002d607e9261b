package mpi

import "fmt"

// LocalWorld runs every rank inside one process. Each rank is expected to
// run on its own goroutine with the Comm returned by Comm(rank).
type LocalWorld struct {
	boxes []*mailbox
	abort *abortSignal
}

// NewLocalWorld creates a world of n ranks.
func NewLocalWorld(n int) (*LocalWorld, error) {
	if n < 1 {
		return nil, fmt.Errorf("mpi: world size must be positive, got %d", n)
	}
	w := &LocalWorld{
		boxes: make([]*mailbox, n),
		abort: newAbortSignal(),
	}
	for i := range w.boxes {
		w.boxes[i] = newMailbox(w.abort)
	}
	return w, nil
}

// Size returns the number of ranks.
func (w *LocalWorld) Size() int {
	return len(w.boxes)
}

// Comm returns the communicator of the given rank.
func (w *LocalWorld) Comm(rank int) Comm {
	if err := checkRank(rank, w.Size()); err != nil {
		panic(err)
	}
	return &localComm{world: w, rank: rank}
}

// Abort fails every pending and future request on every rank.
func (w *LocalWorld) Abort(err error) {
	w.abort.abort(err)
}

type localComm struct {
	world *LocalWorld
	rank  int
}

func (c *localComm) Rank() int { return c.rank }

func (c *localComm) Size() int { return c.world.Size() }

func (c *localComm) Isend(dest, tag int, data []uint8) Request {
	if err := checkRank(dest, c.Size()); err != nil {
		return completed(err)
	}
	return c.world.boxes[dest].post(c.rank, tag, data)
}

func (c *localComm) Irecv(src, tag int, buf []uint8) Request {
	if err := checkRank(src, c.Size()); err != nil {
		return completed(err)
	}
	return c.world.boxes[c.rank].receive(src, tag, buf)
}

func (c *localComm) Send(dest, tag int, data []uint8) error {
	return c.Isend(dest, tag, data).Wait()
}

func (c *localComm) Recv(src, tag int, buf []uint8) error {
	return c.Irecv(src, tag, buf).Wait()
}

func (c *localComm) AllReduce(op Op, v int) (int, error) {
	return allReduce(c, op, v)
}

func (c *localComm) Abort(err error) {
	c.world.Abort(err)
}

func (c *localComm) Finalize() error {
	return nil
}
