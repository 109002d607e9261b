package gol

import (
	"fmt"

	"uk.ac.bris.cs/gameoflife/util"
)

// Event is sent by a Simulation as it runs.
type Event interface {
	fmt.Stringer
	GetGeneration() int
}

// State is the execution state of a simulation.
type State int

const (
	Executing State = iota
	Converged
	Exhausted
	Aborted
)

func (s State) String() string {
	switch s {
	case Executing:
		return "Executing"
	case Converged:
		return "Converged"
	case Exhausted:
		return "Exhausted"
	case Aborted:
		return "Aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StateChange is sent when the simulation starts and when it stops.
type StateChange struct {
	Generation int
	NewState   State
}

// GenerationComplete is sent after every generation. Changed is the global
// result of the convergence check; Alive counts this rank's cells only.
type GenerationComplete struct {
	Generation int
	Changed    bool
	Alive      int
}

// FinalGenerationComplete is sent once, after the last generation, with
// this rank's alive cells in whole-board coordinates.
type FinalGenerationComplete struct {
	Generation int
	Alive      []util.Cell
}

func (e StateChange) String() string {
	return e.NewState.String()
}

func (e StateChange) GetGeneration() int {
	return e.Generation
}

func (e GenerationComplete) String() string {
	return fmt.Sprintf("Generation %d (changed %t, alive %d)", e.Generation, e.Changed, e.Alive)
}

func (e GenerationComplete) GetGeneration() int {
	return e.Generation
}

func (e FinalGenerationComplete) String() string {
	return fmt.Sprintf("Final generation %d, %d alive", e.Generation, len(e.Alive))
}

func (e FinalGenerationComplete) GetGeneration() int {
	return e.Generation
}
