package gol

import (
	"fmt"

	"uk.ac.bris.cs/gameoflife/mpi"
)

// Tiles are the sub-boards of every rank, collected on rank 0 and indexed
// by mesh row and column.
type Tiles struct {
	Side  int
	Width int
	Cells [][][]uint8
}

// Gather sends g to rank 0, which receives every other rank's sub-board in
// rank order and returns them all. Other ranks return nil tiles.
func Gather(comm mpi.Comm, topo Topology, g *Grid) (*Tiles, error) {
	if topo.Rank != mpi.Root {
		if err := comm.Send(mpi.Root, TagPrint, g.Cells); err != nil {
			return nil, fmt.Errorf("send sub-board to rank %d: %w", mpi.Root, err)
		}
		return nil, nil
	}

	t := &Tiles{Side: topo.Side, Width: g.Width, Cells: make([][][]uint8, topo.Side)}
	for row := range t.Cells {
		t.Cells[row] = make([][]uint8, topo.Side)
	}
	t.Cells[0][0] = append([]uint8(nil), g.Cells...)
	for r := 1; r < topo.Procs; r++ {
		buf := make([]uint8, len(g.Cells))
		if err := comm.Recv(r, TagPrint, buf); err != nil {
			return nil, fmt.Errorf("receive sub-board from rank %d: %w", r, err)
		}
		row, col := topo.Coords(r)
		t.Cells[row][col] = buf
	}
	return t, nil
}

// BoardSide is the side of the whole board.
func (t *Tiles) BoardSide() int {
	return t.Side * t.Width
}

// Board stitches the tiles into the whole board, row-major.
func (t *Tiles) Board() []uint8 {
	n := t.BoardSide()
	board := make([]uint8, n*n)
	for y := range n {
		tile := t.Cells[y/t.Width]
		row := y % t.Width
		for tc := range t.Side {
			src := tile[tc][row*t.Width : (row+1)*t.Width]
			copy(board[y*n+tc*t.Width:], src)
		}
	}
	return board
}
