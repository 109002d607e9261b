package gol

import (
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"uk.ac.bris.cs/gameoflife/mpi"
	"uk.ac.bris.cs/gameoflife/util"
)

// runWorld runs fn on every rank of a fresh local world and waits for all.
func runWorld(t *testing.T, procs int, fn func(comm mpi.Comm) error) {
	t.Helper()
	world, err := mpi.NewLocalWorld(procs)
	require.NoError(t, err)
	var g errgroup.Group
	for r := range procs {
		comm := world.Comm(r)
		g.Go(func() error {
			if err := fn(comm); err != nil {
				world.Abort(err)
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

// tile cuts the sub-board of rank out of a whole board.
func tile(board []uint8, size, procs, rank int) []uint8 {
	side, _ := IntSqrt(procs)
	w := size / side
	row, col := rank/side, rank%side
	out := make([]uint8, 0, w*w)
	for y := row * w; y < (row+1)*w; y++ {
		out = append(out, board[y*size+col*w:y*size+(col+1)*w]...)
	}
	return out
}

func randomBoard(size int, seed uint64) []uint8 {
	g := NewGrid(size)
	g.Randomise(35, rand.New(rand.NewPCG(seed, seed)))
	return g.Cells
}

// torusCount counts the alive neighbours of (row, col) on a whole board
// that wraps at its edges.
func torusCount(board []uint8, size, row, col int) int {
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n += int(board[Mod(row+dy, size)*size+Mod(col+dx, size)])
		}
	}
	return n
}

// torusStep moves a whole wrapping board on one generation.
func torusStep(board []uint8, size int) []uint8 {
	next := make([]uint8, len(board))
	for i, c := range board {
		next[i] = nextState(c, torusCount(board, size, i/size, i%size))
	}
	return next
}

// frames records every board rendered.
type frames struct {
	mu          sync.Mutex
	generations []int
	boards      [][]uint8
}

func (f *frames) Render(generation int, board []uint8, side int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generations = append(f.generations, generation)
	f.boards = append(f.boards, slices.Clone(board))
	return nil
}

// simulate runs a whole board on procs ranks and returns every rank's
// result and the alive cells reported at the end.
func simulate(t *testing.T, board []uint8, size, procs int, p Params, opts ...Option) ([]Result, []util.Cell) {
	t.Helper()
	p.Size = size
	results := make([]Result, procs)
	var mu sync.Mutex
	var alive []util.Cell
	runWorld(t, procs, func(comm mpi.Comm) error {
		events := make(chan Event)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for e := range events {
				if final, ok := e.(FinalGenerationComplete); ok {
					mu.Lock()
					alive = append(alive, final.Alive...)
					mu.Unlock()
				}
			}
		}()
		all := append([]Option{WithGrid(tile(board, size, procs, comm.Rank())), WithEvents(events)}, opts...)
		s, err := NewSimulation(p, comm, all...)
		if err != nil {
			close(events)
			return err
		}
		res, err := s.Run()
		<-done
		results[comm.Rank()] = res
		return err
	})
	sortCells(alive)
	return results, alive
}

func sortCells(cells []util.Cell) {
	slices.SortFunc(cells, func(a, b util.Cell) int {
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
}

func aliveOf(board []uint8, size int) []util.Cell {
	g := &Grid{Width: size, Cells: board}
	cells := g.AliveCells(0, 0)
	sortCells(cells)
	return cells
}
