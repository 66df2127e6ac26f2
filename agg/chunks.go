package agg

import "fmt"

// PlanChunks computes a chunk shape for a dataset whose elements are
// itemSize bytes and whose sample data has the given shape. The leading
// chunk dimension is sized so one chunk holds about byteBudget bytes;
// widthHint caps the second dimension. The leading dimension never plans
// below 1, so a single row larger than the budget still gets a chunk.
func PlanChunks(itemSize int, shape []int, byteBudget, widthHint int) ([]int, error) {
	if itemSize <= 0 {
		return nil, fmt.Errorf("invalid element size %d", itemSize)
	}
	if byteBudget <= 0 {
		return nil, fmt.Errorf("invalid chunk byte budget %d", byteBudget)
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: rank 0", ErrUnsupportedRank)
	}

	if len(shape) == 1 {
		lead := byteBudget / itemSize
		if lead < 1 {
			lead = 1
		}
		return []int{lead}, nil
	}

	width := shape[1]
	if widthHint < width {
		width = widthHint
	}
	if width < 1 {
		width = 1
	}

	rowBytes := itemSize * width
	for _, d := range shape[2:] {
		if d > 0 {
			rowBytes *= d
		}
	}

	lead := byteBudget / rowBytes
	if lead < 1 {
		lead = 1
	}

	chunks := make([]int, len(shape))
	chunks[0] = lead
	chunks[1] = width
	for i, d := range shape[2:] {
		if d < 1 {
			d = 1
		}
		chunks[i+2] = d
	}
	return chunks, nil
}
