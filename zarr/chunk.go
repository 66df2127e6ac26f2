package zarr

import (
	"strconv"
	"strings"
)

// GridShape calculates the number of chunks in each dimension:
// ceil(shape[i] / chunks[i]) per dimension.
func GridShape(shape, chunks []int) []int {
	grid := make([]int, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return grid
}

// ChunkKey generates the storage key for a chunk given its grid indices.
// Zarr v2 uses "." as the separator; 0-d arrays use the key "0".
func ChunkKey(indices []int, separator string) string {
	if len(indices) == 0 {
		return "0"
	}
	if len(indices) == 1 {
		return strconv.Itoa(indices[0])
	}
	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// strides computes C-order strides (in elements) for a shape.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= shape[i]
	}
	return s
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// copyND copies an n-dimensional sub-volume between two C-order byte
// buffers. Offsets and strides are in elements, copyShape gives the volume
// extent per dimension.
func copyND(
	dst []byte, dstStrides, dstOffset []int,
	src []byte, srcStrides, srcOffset []int,
	copyShape []int, itemSize int,
) {
	if len(copyShape) == 0 {
		copy(dst[:itemSize], src[:itemSize])
		return
	}

	startSrcIdx := 0
	startDstIdx := 0
	for i := range copyShape {
		startSrcIdx += srcOffset[i] * srcStrides[i]
		startDstIdx += dstOffset[i] * dstStrides[i]
	}

	var iterate func(dim int, currentSrcIdx, currentDstIdx int)
	iterate = func(dim int, currentSrcIdx, currentDstIdx int) {
		// Bulk copy for the innermost contiguous dimension.
		if dim == len(copyShape)-1 {
			n := copyShape[dim]
			if srcStrides[dim] == 1 && dstStrides[dim] == 1 {
				byteLen := n * itemSize
				srcStart := currentSrcIdx * itemSize
				dstStart := currentDstIdx * itemSize
				copy(dst[dstStart:dstStart+byteLen], src[srcStart:srcStart+byteLen])
				return
			}
			for i := 0; i < n; i++ {
				srcStart := (currentSrcIdx + i*srcStrides[dim]) * itemSize
				dstStart := (currentDstIdx + i*dstStrides[dim]) * itemSize
				copy(dst[dstStart:dstStart+itemSize], src[srcStart:srcStart+itemSize])
			}
			return
		}

		for i := 0; i < copyShape[dim]; i++ {
			iterate(dim+1, currentSrcIdx+i*srcStrides[dim], currentDstIdx+i*dstStrides[dim])
		}
	}
	iterate(0, startSrcIdx, startDstIdx)
}

// iterateGrid calls fn for every coordinate in the half-open box
// [start, end) across all dimensions.
func iterateGrid(start, end []int, fn func(coords []int) error) error {
	if len(start) == 0 {
		return fn([]int{})
	}
	for i := range start {
		if start[i] >= end[i] {
			return nil
		}
	}
	coords := make([]int, len(start))
	copy(coords, start)

	for {
		if err := fn(coords); err != nil {
			return err
		}

		i := len(start) - 1
		for ; i >= 0; i-- {
			coords[i]++
			if coords[i] < end[i] {
				break
			}
			coords[i] = start[i]
		}
		if i < 0 {
			break
		}
	}
	return nil
}
