package gol

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"uk.ac.bris.cs/gameoflife/mpi"
)

// Halo holds the ghost cells received from the eight neighbours in one
// round. Up is the bottom row of the rank above, Left is the right column
// of the rank to the left, and so on; the corners are single cells.
type Halo struct {
	Up, Down, Left, Right []uint8

	UpLeft, UpRight, DownLeft, DownRight uint8
}

// NewHalo returns an empty halo for a sub-board of the given width.
func NewHalo(width int) *Halo {
	return &Halo{
		Up:    make([]uint8, width),
		Down:  make([]uint8, width),
		Left:  make([]uint8, width),
		Right: make([]uint8, width),
	}
}

// PendingExchange is one round of halo messages in flight.
type PendingExchange struct {
	topo    Topology
	halo    *Halo
	corners [len(Directions)][]uint8
	sends   [len(Directions)]mpi.Request
	recvs   [len(Directions)]mpi.Request
}

// StartExchange sends the borders of g to the eight neighbours and starts
// receiving theirs, without blocking. The receive from direction d matches
// the neighbour's send in the opposite direction.
func StartExchange(comm mpi.Comm, topo Topology, g *Grid) *PendingExchange {
	p := &PendingExchange{topo: topo, halo: NewHalo(g.Width)}
	for _, d := range Directions {
		peer := topo.Neighbour(d)
		p.sends[d] = comm.Isend(peer, d.Tag(), g.Border(d))
		p.recvs[d] = comm.Irecv(peer, d.Opposite().Tag(), p.buffer(d))
	}
	return p
}

// buffer is where the halo data arriving from direction d is received.
func (p *PendingExchange) buffer(d Direction) []uint8 {
	switch d {
	case Up:
		return p.halo.Up
	case Down:
		return p.halo.Down
	case Left:
		return p.halo.Left
	case Right:
		return p.halo.Right
	}
	p.corners[d] = make([]uint8, 1)
	return p.corners[d]
}

// Wait blocks until all sixteen requests are done, in whatever order they
// finish, and returns the filled halo.
func (p *PendingExchange) Wait() (*Halo, error) {
	var g errgroup.Group
	for _, d := range Directions {
		peer := p.topo.Neighbour(d)
		g.Go(func() error {
			if err := p.sends[d].Wait(); err != nil {
				return fmt.Errorf("send %v to rank %d: %w", d, peer, err)
			}
			return nil
		})
		g.Go(func() error {
			if err := p.recvs[d].Wait(); err != nil {
				return fmt.Errorf("receive %v from rank %d: %w", d, peer, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("halo exchange: %w", err)
	}
	p.halo.UpLeft = p.corners[UpLeft][0]
	p.halo.UpRight = p.corners[UpRight][0]
	p.halo.DownLeft = p.corners[DownLeft][0]
	p.halo.DownRight = p.corners[DownRight][0]
	return p.halo, nil
}
