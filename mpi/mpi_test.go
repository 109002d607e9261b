package mpi

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// runRanks runs fn on every rank of a fresh local world and waits for all.
func runRanks(t *testing.T, n int, fn func(c Comm) error) {
	t.Helper()
	world, err := NewLocalWorld(n)
	require.NoError(t, err)
	var g errgroup.Group
	for r := 0; r < n; r++ {
		c := world.Comm(r)
		g.Go(func() error { return fn(c) })
	}
	require.NoError(t, g.Wait())
}

func TestNewLocalWorldSize(t *testing.T) {
	_, err := NewLocalWorld(0)
	assert.Error(t, err)

	w, err := NewLocalWorld(4)
	require.NoError(t, err)
	assert.Equal(t, 4, w.Size())
	assert.Equal(t, 2, w.Comm(2).Rank())
	assert.Panics(t, func() { w.Comm(4) })
}

func TestSendRecv(t *testing.T) {
	runRanks(t, 2, func(c Comm) error {
		if c.Rank() == 0 {
			data := []uint8{1, 0, 1}
			req := c.Isend(1, 7, data)
			data[0] = 9 // Isend must have copied
			return req.Wait()
		}
		buf := make([]uint8, 3)
		if err := c.Recv(0, 7, buf); err != nil {
			return err
		}
		assert.Equal(t, []uint8{1, 0, 1}, buf)
		return nil
	})
}

func TestTagsDisambiguateSamePeer(t *testing.T) {
	runRanks(t, 2, func(c Comm) error {
		other := 1 - c.Rank()
		reqs := []Request{
			c.Isend(other, 1000, []uint8{uint8(c.Rank()), 1}),
			c.Isend(other, 1001, []uint8{uint8(c.Rank()), 2}),
		}
		up, down := make([]uint8, 2), make([]uint8, 2)
		// post the receives in the opposite order to the sends
		reqs = append(reqs, c.Irecv(other, 1001, down), c.Irecv(other, 1000, up))
		if err := WaitAll(reqs...); err != nil {
			return err
		}
		assert.Equal(t, []uint8{uint8(other), 1}, up)
		assert.Equal(t, []uint8{uint8(other), 2}, down)
		return nil
	})
}

func TestSendToSelf(t *testing.T) {
	runRanks(t, 1, func(c Comm) error {
		send := c.Isend(0, 3, []uint8{5})
		buf := make([]uint8, 1)
		if err := c.Irecv(0, 3, buf).Wait(); err != nil {
			return err
		}
		assert.Equal(t, uint8(5), buf[0])
		return send.Wait()
	})
}

func TestFIFOPerTag(t *testing.T) {
	runRanks(t, 2, func(c Comm) error {
		if c.Rank() == 0 {
			for i := 0; i < 10; i++ {
				if err := c.Send(1, 4, []uint8{uint8(i)}); err != nil {
					return err
				}
			}
			return nil
		}
		buf := make([]uint8, 1)
		for i := 0; i < 10; i++ {
			if err := c.Recv(0, 4, buf); err != nil {
				return err
			}
			assert.Equal(t, uint8(i), buf[0])
		}
		return nil
	})
}

func TestReceivesMatchInWaitOrder(t *testing.T) {
	world, err := NewLocalWorld(2)
	require.NoError(t, err)
	sender, receiver := world.Comm(0), world.Comm(1)

	first := make([]uint8, 1)
	second := make([]uint8, 1)
	early := receiver.Irecv(0, 6, first)
	late := receiver.Irecv(0, 6, second)
	require.NoError(t, sender.Send(1, 6, []uint8{1}))
	require.NoError(t, sender.Send(1, 6, []uint8{2}))

	require.NoError(t, late.Wait())
	require.NoError(t, early.Wait())
	assert.Equal(t, []uint8{1}, second)
	assert.Equal(t, []uint8{2}, first)
}

func TestRecvTruncated(t *testing.T) {
	runRanks(t, 2, func(c Comm) error {
		if c.Rank() == 0 {
			return c.Send(1, 2, []uint8{1, 2, 3})
		}
		err := c.Recv(0, 2, make([]uint8, 2))
		assert.ErrorIs(t, err, ErrTruncated)
		return nil
	})
}

func TestBadRank(t *testing.T) {
	w, err := NewLocalWorld(2)
	require.NoError(t, err)
	c := w.Comm(0)
	assert.ErrorIs(t, c.Send(5, 0, nil), ErrRank)
	assert.ErrorIs(t, c.Recv(-1, 0, nil), ErrRank)
}

func TestAllReduce(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		in   func(rank int) int
		want int
	}{
		{"sum", OpSum, func(r int) int { return r + 1 }, 10},
		{"max", OpMax, func(r int) int { return r * 3 }, 9},
		{"min", OpMin, func(r int) int { return 5 - r }, 2},
		{"lor none", OpLOR, func(r int) int { return 0 }, 0},
		{"lor one", OpLOR, func(r int) int { return boolInt(r == 2) }, 1},
		{"land", OpLAND, func(r int) int { return boolInt(r != 3) }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runRanks(t, 4, func(c Comm) error {
				got, err := c.AllReduce(tt.op, tt.in(c.Rank()))
				if err != nil {
					return err
				}
				assert.Equal(t, tt.want, got, "rank %d", c.Rank())
				return nil
			})
		})
	}
}

func TestAllReduceSingleRank(t *testing.T) {
	runRanks(t, 1, func(c Comm) error {
		got, err := c.AllReduce(OpLOR, 1)
		assert.Equal(t, 1, got)
		return err
	})
}

func TestAbortUnblocksReceivers(t *testing.T) {
	w, err := NewLocalWorld(2)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		done <- w.Comm(1).Recv(0, 9, make([]uint8, 1))
	}()
	cause := errors.New("rank 0 failed")
	w.Comm(0).Abort(cause)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrAborted)
		assert.ErrorIs(t, err, cause)
	case <-time.After(5 * time.Second):
		t.Fatal("receive still blocked after abort")
	}
	assert.ErrorIs(t, w.Comm(0).Recv(1, 9, make([]uint8, 1)), ErrAborted)
}

func TestNetWorld(t *testing.T) {
	const n = 3
	lns := make([]net.Listener, n)
	peers := make([]string, n)
	for i := range lns {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		lns[i] = ln
		peers[i] = ln.Addr().String()
	}
	comms := make([]Comm, n)
	for i := range comms {
		c, err := Dial(NetConfig{Rank: i, Peers: peers, Listener: lns[i], DialTimeout: 5 * time.Second})
		require.NoError(t, err)
		comms[i] = c
	}
	t.Cleanup(func() {
		for _, c := range comms {
			assert.NoError(t, c.Finalize())
		}
	})

	var g errgroup.Group
	for _, c := range comms {
		g.Go(func() error {
			next := (c.Rank() + 1) % n
			prev := (c.Rank() + n - 1) % n
			buf := make([]uint8, 2)
			if err := WaitAll(
				c.Isend(next, 1000, []uint8{uint8(c.Rank()), 7}),
				c.Irecv(prev, 1000, buf),
			); err != nil {
				return err
			}
			assert.Equal(t, []uint8{uint8(prev), 7}, buf)

			changed, err := c.AllReduce(OpLOR, boolInt(c.Rank() == 1))
			if err != nil {
				return err
			}
			assert.Equal(t, 1, changed)
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

// deadAddr returns a loopback address nothing listens on.
func deadAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestNetSendFailureAbortsRank(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	c, err := Dial(NetConfig{
		Rank:        1,
		Peers:       []string{deadAddr(t), ln.Addr().String()},
		Listener:    ln,
		DialTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Finalize()) })

	recv := c.Irecv(0, 1004, make([]uint8, 1))
	send := c.Isend(0, 1003, []uint8{1})

	done := make(chan error, 1)
	go func() { done <- recv.Wait() }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrAborted)
		assert.ErrorContains(t, err, "dial rank 0")
	case <-time.After(5 * time.Second):
		t.Fatal("receive from rank 0 still blocked after the send to it failed")
	}
	assert.ErrorContains(t, send.Wait(), "dial rank 0")
	assert.ErrorIs(t, c.Recv(0, 1005, make([]uint8, 1)), ErrAborted)
}

func TestDialValidation(t *testing.T) {
	_, err := Dial(NetConfig{})
	assert.Error(t, err)
	_, err = Dial(NetConfig{Rank: 2, Peers: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrRank)
}
