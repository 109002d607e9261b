package gol

// Message tags used between ranks. Halo messages use one tag per Direction,
// starting at directionTagBase, so that two messages to the same rank in one
// round never match the wrong receive.
const (
	TagPrint = 23

	directionTagBase = 1000
)
