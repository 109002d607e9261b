package gol

import (
	"sync"
	"sync/atomic"
)

// forRanges splits [0, n) into up to workers contiguous ranges and runs fn
// on each in its own goroutine, returning once all of them are done.
func forRanges(n, workers int, fn func(lo, hi int)) {
	if n == 0 {
		return
	}
	workers = min(max(workers, 1), n)
	if workers == 1 {
		fn(0, n)
		return
	}
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(lo, hi)
		}()
	}
	wg.Wait()
}

// nextState applies the rules of the game to one cell.
func nextState(cell uint8, sum int) uint8 {
	if sum == 3 || (cell == Alive && sum == 2) {
		return Alive
	}
	return Empty
}

// Update moves cells on by one generation given the neighbour count of
// every cell, and reports whether any cell changed. sums must be computed
// from cells before the call; cells is updated in place.
func Update(sums []int, cells []uint8, workers int) bool {
	var changed atomic.Bool
	forRanges(len(cells), workers, func(lo, hi int) {
		local := false
		for i := lo; i < hi; i++ {
			next := nextState(cells[i], sums[i])
			if next != cells[i] {
				cells[i] = next
				local = true
			}
		}
		if local {
			changed.Store(true)
		}
	})
	return changed.Load()
}
