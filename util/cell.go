package util

import "fmt"

// Cell is used as the return type for the list of alive cells, in global
// board coordinates.
type Cell struct {
	X, Y int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}
