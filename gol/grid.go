package gol

import (
	"fmt"
	"math/rand/v2"

	"uk.ac.bris.cs/gameoflife/util"
)

// Cell states.
const (
	Empty uint8 = 0
	Alive uint8 = 1
)

// Region is where a cell sits in its sub-board, which decides the halo
// buffers its neighbour count needs.
type Region int

const (
	Interior Region = iota
	TopEdge
	BottomEdge
	LeftEdge
	RightEdge
	TopLeft
	TopRight
	BottomLeft
	BottomRight
	// Single is the only cell of a 1x1 sub-board, which is every edge and
	// every corner at once.
	Single
)

var regionNames = [...]string{
	Interior:    "interior",
	TopEdge:     "top edge",
	BottomEdge:  "bottom edge",
	LeftEdge:    "left edge",
	RightEdge:   "right edge",
	TopLeft:     "top-left corner",
	TopRight:    "top-right corner",
	BottomLeft:  "bottom-left corner",
	BottomRight: "bottom-right corner",
	Single:      "single cell",
}

func (r Region) String() string {
	if r < 0 || int(r) >= len(regionNames) {
		return fmt.Sprintf("Region(%d)", int(r))
	}
	return regionNames[r]
}

// Grid is the Width x Width sub-board owned by one rank, stored row-major.
type Grid struct {
	Width int
	Cells []uint8
}

// NewGrid returns an empty grid. width must be positive.
func NewGrid(width int) *Grid {
	if width < 1 {
		panic(fmt.Sprintf("gol: grid width must be positive, got %d", width))
	}
	return &Grid{Width: width, Cells: make([]uint8, width*width)}
}

// GridFrom wraps cells, which must hold width*width states.
func GridFrom(width int, cells []uint8) (*Grid, error) {
	if width < 1 || len(cells) != width*width {
		return nil, fmt.Errorf("gol: %d cells do not make a %dx%d grid", len(cells), width, width)
	}
	return &Grid{Width: width, Cells: cells}, nil
}

// Index returns the index of the cell at row, col.
func (g *Grid) Index(row, col int) int {
	return row*g.Width + col
}

// Coords returns the row and column of cell i.
func (g *Grid) Coords(i int) (row, col int) {
	return i / g.Width, Mod(i, g.Width)
}

// IsBoundary reports whether cell i is in the first or last row or column.
func (g *Grid) IsBoundary(i int) bool {
	row, col := g.Coords(i)
	return row == 0 || row == g.Width-1 || col == 0 || col == g.Width-1
}

// Classify returns the region of cell i.
func (g *Grid) Classify(i int) Region {
	w := g.Width
	if w == 1 {
		return Single
	}
	row, col := g.Coords(i)
	top, bottom := row == 0, row == w-1
	left, right := col == 0, col == w-1
	switch {
	case top && left:
		return TopLeft
	case top && right:
		return TopRight
	case bottom && left:
		return BottomLeft
	case bottom && right:
		return BottomRight
	case top:
		return TopEdge
	case bottom:
		return BottomEdge
	case left:
		return LeftEdge
	case right:
		return RightEdge
	}
	return Interior
}

// Neighbouring cell indexes. They do not wrap: callers only use them where
// the neighbour is inside the grid.

func (g *Grid) Up(i int) int        { return i - g.Width }
func (g *Grid) Down(i int) int      { return i + g.Width }
func (g *Grid) Left(i int) int      { return i - 1 }
func (g *Grid) Right(i int) int     { return i + 1 }
func (g *Grid) UpLeft(i int) int    { return i - g.Width - 1 }
func (g *Grid) UpRight(i int) int   { return i - g.Width + 1 }
func (g *Grid) DownLeft(i int) int  { return i + g.Width - 1 }
func (g *Grid) DownRight(i int) int { return i + g.Width + 1 }

// Border returns a copy of the cells a neighbour in direction d needs: the
// top or bottom row, the left or right column, or a single corner cell.
func (g *Grid) Border(d Direction) []uint8 {
	w := g.Width
	switch d {
	case Up:
		return append([]uint8(nil), g.Cells[:w]...)
	case Down:
		return append([]uint8(nil), g.Cells[w*(w-1):]...)
	case Left, Right:
		col := 0
		if d == Right {
			col = w - 1
		}
		out := make([]uint8, w)
		for row := range out {
			out[row] = g.Cells[g.Index(row, col)]
		}
		return out
	case UpLeft:
		return []uint8{g.Cells[0]}
	case UpRight:
		return []uint8{g.Cells[w-1]}
	case DownLeft:
		return []uint8{g.Cells[w*(w-1)]}
	case DownRight:
		return []uint8{g.Cells[w*w-1]}
	}
	panic(fmt.Sprintf("gol: no border for %v", d))
}

// Randomise makes each cell alive with the given percentage chance.
func (g *Grid) Randomise(percent int, rng *rand.Rand) {
	for i := range g.Cells {
		if rng.IntN(100) < percent {
			g.Cells[i] = Alive
		} else {
			g.Cells[i] = Empty
		}
	}
}

// Alive returns the number of alive cells.
func (g *Grid) Alive() int {
	n := 0
	for _, c := range g.Cells {
		if c == Alive {
			n++
		}
	}
	return n
}

// AliveCells lists the alive cells, offset so that the grid's top-left
// cell is at (x0, y0).
func (g *Grid) AliveCells(x0, y0 int) []util.Cell {
	var cells []util.Cell
	for i, c := range g.Cells {
		if c == Alive {
			row, col := g.Coords(i)
			cells = append(cells, util.Cell{X: x0 + col, Y: y0 + row})
		}
	}
	return cells
}
