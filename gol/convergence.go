package gol

import (
	"fmt"

	"uk.ac.bris.cs/gameoflife/mpi"
)

// AnyChanged combines the changed flag of every rank. All ranks must call
// it once per generation and all of them get the same answer.
func AnyChanged(comm mpi.Comm, changed bool) (bool, error) {
	v := 0
	if changed {
		v = 1
	}
	global, err := comm.AllReduce(mpi.OpLOR, v)
	if err != nil {
		return false, fmt.Errorf("convergence check: %w", err)
	}
	return global != 0, nil
}
