package gol

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uk.ac.bris.cs/gameoflife/mpi"
)

func TestExchangeTwoByTwo(t *testing.T) {
	// Every rank fills its 2x2 sub-board with its rank + 1, so each halo
	// value names the rank it came from.
	halos := make([]*Halo, 4)
	runWorld(t, 4, func(comm mpi.Comm) error {
		topo, err := NewTopology(comm.Rank(), 4)
		if err != nil {
			return err
		}
		g := NewGrid(2)
		for i := range g.Cells {
			g.Cells[i] = uint8(comm.Rank() + 1)
		}
		h, err := StartExchange(comm, topo, g).Wait()
		halos[comm.Rank()] = h
		return err
	})

	for r, h := range halos {
		topo, err := NewTopology(r, 4)
		require.NoError(t, err)
		from := func(d Direction) uint8 { return uint8(topo.Neighbour(d) + 1) }
		msg := fmt.Sprintf("rank %d", r)
		assert.Equal(t, []uint8{from(Up), from(Up)}, h.Up, msg)
		assert.Equal(t, []uint8{from(Down), from(Down)}, h.Down, msg)
		assert.Equal(t, []uint8{from(Left), from(Left)}, h.Left, msg)
		assert.Equal(t, []uint8{from(Right), from(Right)}, h.Right, msg)
		assert.Equal(t, from(UpLeft), h.UpLeft, msg)
		assert.Equal(t, from(UpRight), h.UpRight, msg)
		assert.Equal(t, from(DownLeft), h.DownLeft, msg)
		assert.Equal(t, from(DownRight), h.DownRight, msg)
	}
}

func TestExchangeReceivesOppositeBorders(t *testing.T) {
	g, err := GridFrom(3, []uint8{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	require.NoError(t, err)
	runWorld(t, 1, func(comm mpi.Comm) error {
		topo, err := NewTopology(0, 1)
		if err != nil {
			return err
		}
		h, err := StartExchange(comm, topo, g).Wait()
		if err != nil {
			return err
		}
		assert.Equal(t, []uint8{7, 8, 9}, h.Up)
		assert.Equal(t, []uint8{1, 2, 3}, h.Down)
		assert.Equal(t, []uint8{3, 6, 9}, h.Left)
		assert.Equal(t, []uint8{1, 4, 7}, h.Right)
		assert.Equal(t, uint8(9), h.UpLeft)
		assert.Equal(t, uint8(7), h.UpRight)
		assert.Equal(t, uint8(3), h.DownLeft)
		assert.Equal(t, uint8(1), h.DownRight)
		return nil
	})
}

func TestExchangeAborted(t *testing.T) {
	world, err := mpi.NewLocalWorld(4)
	require.NoError(t, err)
	topo, err := NewTopology(0, 4)
	require.NoError(t, err)

	// Only rank 0 takes part, so its receives can only end by abort.
	pending := StartExchange(world.Comm(0), topo, NewGrid(2))
	world.Abort(fmt.Errorf("rank 3 failed"))
	_, err = pending.Wait()
	assert.ErrorIs(t, err, mpi.ErrAborted)
	assert.Contains(t, err.Error(), "halo exchange")
}

func TestGatherTwoByTwo(t *testing.T) {
	board := randomBoard(6, 11)
	var got *Tiles
	runWorld(t, 4, func(comm mpi.Comm) error {
		topo, err := NewTopology(comm.Rank(), 4)
		if err != nil {
			return err
		}
		g, err := GridFrom(3, tile(board, 6, 4, comm.Rank()))
		if err != nil {
			return err
		}
		tiles, err := Gather(comm, topo, g)
		if err != nil {
			return err
		}
		if comm.Rank() == mpi.Root {
			got = tiles
		} else if tiles != nil {
			return fmt.Errorf("rank %d got tiles", comm.Rank())
		}
		return nil
	})
	require.NotNil(t, got)
	assert.Equal(t, 6, got.BoardSide())
	assert.Equal(t, tile(board, 6, 4, 3), got.Cells[1][1])
	assert.Equal(t, board, got.Board())
}

func TestExchangeFailsWhenPeerIsDown(t *testing.T) {
	// Rank 0 never comes up; every other rank of the 2x2 mesh has it as a
	// neighbour and must give up instead of waiting on its borders.
	peers := make([]string, 4)
	lns := make([]net.Listener, 4)
	for r := range peers {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		peers[r] = ln.Addr().String()
		lns[r] = ln
	}
	require.NoError(t, lns[0].Close())

	errs := make(chan error, 3)
	for r := 1; r < 4; r++ {
		comm, err := mpi.Dial(mpi.NetConfig{
			Rank:        r,
			Peers:       peers,
			Listener:    lns[r],
			DialTimeout: 200 * time.Millisecond,
		})
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, comm.Finalize()) })
		topo, err := NewTopology(r, 4)
		require.NoError(t, err)
		go func() {
			_, err := StartExchange(comm, topo, NewGrid(2)).Wait()
			errs <- err
		}()
	}

	timeout := time.After(5 * time.Second)
	for range 3 {
		select {
		case err := <-errs:
			assert.ErrorContains(t, err, "dial rank 0")
		case <-timeout:
			t.Fatal("halo exchange still blocked after its sends to rank 0 failed")
		}
	}
}
