package mpi

import (
	"encoding/binary"
	"fmt"
)

// allReduce gathers v from every rank on Root, combines the values with op
// in rank order, and sends the result back to every rank.
func allReduce(c Comm, op Op, v int) (int, error) {
	size := c.Size()
	if size == 1 {
		return v, nil
	}
	buf := make([]uint8, 8)
	if c.Rank() != Root {
		if err := c.Send(Root, tagReduce, encodeInt(v)); err != nil {
			return 0, fmt.Errorf("all-reduce %v: send to root: %w", op, err)
		}
		if err := c.Recv(Root, tagReduceResult, buf); err != nil {
			return 0, fmt.Errorf("all-reduce %v: receive result: %w", op, err)
		}
		return decodeInt(buf), nil
	}

	acc := v
	for r := 1; r < size; r++ {
		if err := c.Recv(r, tagReduce, buf); err != nil {
			return 0, fmt.Errorf("all-reduce %v: receive from rank %d: %w", op, r, err)
		}
		acc = op.apply(acc, decodeInt(buf))
	}
	result := encodeInt(acc)
	reqs := make([]Request, 0, size-1)
	for r := 1; r < size; r++ {
		reqs = append(reqs, c.Isend(r, tagReduceResult, result))
	}
	if err := WaitAll(reqs...); err != nil {
		return 0, fmt.Errorf("all-reduce %v: broadcast result: %w", op, err)
	}
	return acc, nil
}

func encodeInt(v int) []uint8 {
	b := make([]uint8, 8)
	binary.LittleEndian.PutUint64(b, uint64(int64(v)))
	return b
}

func decodeInt(b []uint8) int {
	return int(int64(binary.LittleEndian.Uint64(b)))
}
