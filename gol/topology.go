package gol

import "fmt"

// Topology places the ranks on a Side x Side toroidal mesh in row-major
// order, rank = row*Side + col.
type Topology struct {
	Rank  int
	Side  int
	Procs int

	neighbours [len(Directions)]int
}

// NewTopology returns the topology of rank in a world of procs ranks.
// procs must be a perfect square.
func NewTopology(rank, procs int) (Topology, error) {
	side, ok := IntSqrt(procs)
	if !ok {
		return Topology{}, fmt.Errorf("%w: %d processes", ErrNotSquare, procs)
	}
	if rank < 0 || rank >= procs {
		return Topology{}, fmt.Errorf("rank %d not in [0, %d)", rank, procs)
	}
	t := Topology{Rank: rank, Side: side, Procs: procs}
	t.neighbours = [...]int{
		Up:        t.Up(rank),
		Down:      t.Down(rank),
		Left:      t.Left(rank),
		Right:     t.Right(rank),
		UpLeft:    t.Up(t.Left(rank)),
		UpRight:   t.Up(t.Right(rank)),
		DownLeft:  t.Down(t.Left(rank)),
		DownRight: t.Down(t.Right(rank)),
	}
	return t, nil
}

// IntSqrt returns the integer square root of n and whether n is a perfect
// square. n must be positive.
func IntSqrt(n int) (int, bool) {
	if n < 1 {
		return 0, false
	}
	r := 0
	for (r+1)*(r+1) <= n {
		r++
	}
	return r, r*r == n
}

// Mod is the floored modulo: the result has the sign of b.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Right returns the rank one column to the right of r, wrapping around.
func (t Topology) Right(r int) int {
	return Mod(r+1, t.Side) + (r/t.Side)*t.Side
}

// Left returns the rank one column to the left of r, wrapping around.
func (t Topology) Left(r int) int {
	return (r/t.Side)*t.Side + Mod(r-1, t.Side)
}

// Down returns the rank one row below r, wrapping around.
func (t Topology) Down(r int) int {
	return Mod(r, t.Side) + Mod(r/t.Side+1, t.Side)*t.Side
}

// Up returns the rank one row above r, wrapping around.
func (t Topology) Up(r int) int {
	return Mod(r, t.Side) + Mod(r/t.Side-1, t.Side)*t.Side
}

// Neighbour returns the rank of this rank's neighbour in direction d.
func (t Topology) Neighbour(d Direction) int {
	return t.neighbours[d]
}

// Coords returns the mesh row and column of rank r.
func (t Topology) Coords(r int) (row, col int) {
	return r / t.Side, Mod(r, t.Side)
}

func (t Topology) String() string {
	row, col := t.Coords(t.Rank)
	return fmt.Sprintf("rank %d at (%d, %d) of %dx%d", t.Rank, row, col, t.Side, t.Side)
}
