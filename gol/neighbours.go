package gol

import "fmt"

// ConsistencyError is raised, as a panic, when a cell handed to
// CountBoundary is not on the boundary. It means a bug, not bad input.
type ConsistencyError struct {
	Index  int
	Width  int
	Region Region
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("gol: cell %d of a %dx%d grid is %v, not a boundary cell", e.Index, e.Width, e.Width, e.Region)
}

// CountInterior returns the alive neighbours of an interior cell.
func CountInterior(g *Grid, i int) int {
	c := g.Cells
	return int(c[g.UpLeft(i)]) + int(c[g.Up(i)]) + int(c[g.UpRight(i)]) +
		int(c[g.Left(i)]) + int(c[g.Right(i)]) +
		int(c[g.DownLeft(i)]) + int(c[g.Down(i)]) + int(c[g.DownRight(i)])
}

// CountBoundary returns the alive neighbours of a boundary cell, reading
// whatever lies outside the grid from h.
func CountBoundary(g *Grid, i int, h *Halo) int {
	c := g.Cells
	w := g.Width
	row, col := g.Coords(i)

	var sum uint8
	switch r := g.Classify(i); r {
	case TopEdge:
		sum = h.Up[col-1] + h.Up[col] + h.Up[col+1] +
			c[g.Left(i)] + c[g.Right(i)] +
			c[g.DownLeft(i)] + c[g.Down(i)] + c[g.DownRight(i)]
	case BottomEdge:
		sum = c[g.UpLeft(i)] + c[g.Up(i)] + c[g.UpRight(i)] +
			c[g.Left(i)] + c[g.Right(i)] +
			h.Down[col-1] + h.Down[col] + h.Down[col+1]
	case LeftEdge:
		sum = c[g.Up(i)] + c[g.UpRight(i)] + c[g.Right(i)] +
			c[g.Down(i)] + c[g.DownRight(i)] +
			h.Left[row-1] + h.Left[row] + h.Left[row+1]
	case RightEdge:
		sum = c[g.UpLeft(i)] + c[g.Up(i)] + c[g.Left(i)] +
			c[g.DownLeft(i)] + c[g.Down(i)] +
			h.Right[row-1] + h.Right[row] + h.Right[row+1]
	case TopLeft:
		sum = h.Up[0] + h.Up[1] + h.Left[0] + h.Left[1] + h.UpLeft +
			c[g.Right(i)] + c[g.Down(i)] + c[g.DownRight(i)]
	case TopRight:
		sum = c[g.Left(i)] + c[g.DownLeft(i)] + c[g.Down(i)] +
			h.Up[w-2] + h.Up[w-1] + h.Right[0] + h.Right[1] + h.UpRight
	case BottomLeft:
		sum = c[g.Up(i)] + c[g.UpRight(i)] + c[g.Right(i)] +
			h.Down[0] + h.Down[1] + h.Left[w-1] + h.Left[w-2] + h.DownLeft
	case BottomRight:
		sum = c[g.UpLeft(i)] + c[g.Up(i)] + c[g.Left(i)] +
			h.Right[w-1] + h.Right[w-2] + h.Down[w-1] + h.Down[w-2] + h.DownRight
	case Single:
		sum = h.Up[0] + h.Down[0] + h.Left[0] + h.Right[0] +
			h.UpLeft + h.UpRight + h.DownLeft + h.DownRight
	default:
		panic(&ConsistencyError{Index: i, Width: w, Region: r})
	}
	return int(sum)
}

// Counter computes the neighbour count of every cell of a grid into Sums,
// interior cells first and boundary cells once the halo has arrived.
type Counter struct {
	Sums []int

	grid     *Grid
	workers  int
	interior []int
	boundary []int
}

// NewCounter prepares a counter for g using the given number of workers
// for interior cells.
func NewCounter(g *Grid, workers int) *Counter {
	c := &Counter{
		Sums:    make([]int, len(g.Cells)),
		grid:    g,
		workers: max(workers, 1),
	}
	for i := range g.Cells {
		if g.IsBoundary(i) {
			c.boundary = append(c.boundary, i)
		} else {
			c.interior = append(c.interior, i)
		}
	}
	return c
}

// Interior counts every interior cell, split across the workers.
func (c *Counter) Interior() {
	forRanges(len(c.interior), c.workers, func(lo, hi int) {
		for _, i := range c.interior[lo:hi] {
			c.Sums[i] = CountInterior(c.grid, i)
		}
	})
}

// Boundary counts every boundary cell from the local grid and h.
func (c *Counter) Boundary(h *Halo) {
	for _, i := range c.boundary {
		c.Sums[i] = CountBoundary(c.grid, i, h)
	}
}
