package gol

import "fmt"

// Direction is one of the eight neighbours of a sub-board (or of a cell).
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
	UpLeft
	UpRight
	DownLeft
	DownRight
)

// Directions lists every Direction in tag order.
var Directions = [...]Direction{Up, Down, Left, Right, UpLeft, UpRight, DownLeft, DownRight}

var opposites = [...]Direction{
	Up:        Down,
	Down:      Up,
	Left:      Right,
	Right:     Left,
	UpLeft:    DownRight,
	UpRight:   DownLeft,
	DownLeft:  UpRight,
	DownRight: UpLeft,
}

var directionNames = [...]string{
	Up:        "up",
	Down:      "down",
	Left:      "left",
	Right:     "right",
	UpLeft:    "up-left",
	UpRight:   "up-right",
	DownLeft:  "down-left",
	DownRight: "down-right",
}

// Opposite returns the direction pointing back, e.g. Down for Up.
func (d Direction) Opposite() Direction {
	return opposites[d]
}

// Tag is the message tag of halo data travelling in this direction.
func (d Direction) Tag() int {
	return directionTagBase + int(d)
}

// IsCorner reports whether d is one of the four diagonals.
func (d Direction) IsCorner() bool {
	return d >= UpLeft
}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}
