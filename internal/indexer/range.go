package indexer

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// Heights returns the heights of the range visited every interval blocks,
// starting at From.
func (r BlockRange) Heights(interval uint64) ([]uint64, error) {
	if interval == 0 {
		return nil, fmt.Errorf("block interval must be greater than zero")
	}
	if r.To < r.From {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	heights := make([]uint64, 0, (r.To-r.From)/interval+1)
	for h := r.From; h <= r.To; h += interval {
		heights = append(heights, h)
		if r.To-h < interval {
			break
		}
	}
	return heights, nil
}
