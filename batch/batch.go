// Package batch reads an aggregated dataset back in row batches as gomlx
// tensors, for verification after a run and for feeding training pipelines
// directly from the container.
package batch

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"gocloud.dev/blob"

	"github.com/vcfzarr/vcfzarr/zarr"
)

// Reader iterates a dataset's leading dimension in batches.
type Reader struct {
	ds           *zarr.Dataset
	CurrentIndex int
}

// NewReader opens the dataset at path for batched reading. Record-typed
// datasets are not supported; read their per-field datasets instead.
func NewReader(ctx context.Context, bucket *blob.Bucket, path string) (*Reader, error) {
	ds, err := zarr.Open(ctx, bucket, path)
	if err != nil {
		return nil, err
	}
	if ds.DType().IsRecord() {
		return nil, fmt.Errorf("batch: record dtype %s not supported, read per-field datasets", ds.DType())
	}
	return &Reader{ds: ds}, nil
}

// Next reads the next batch of up to batchSize rows.
// Returns io.EOF when the dataset is exhausted.
func (r *Reader) Next(ctx context.Context, batchSize int) (*tensors.Tensor, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch: batch size must be positive, got %d", batchSize)
	}
	total := r.ds.Rows()
	if r.CurrentIndex >= total {
		return nil, io.EOF
	}

	start := r.CurrentIndex
	end := start + batchSize
	if end > total {
		end = total
	}
	rows := end - start

	raw, err := r.ds.ReadSlice(ctx, start, rows)
	if err != nil {
		return nil, err
	}

	shape := r.ds.Shape()
	batchShape := append([]int{rows}, shape[1:]...)
	n := 1
	for _, d := range batchShape {
		n *= d
	}

	var t *tensors.Tensor
	switch dtype := r.ds.DType().Type; dtype {
	case "<f4":
		data := make([]float32, n)
		for i := range data {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		t = tensors.FromFlatDataAndDimensions(data, batchShape...)
	case "<i4":
		data := make([]int32, n)
		for i := range data {
			data[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		t = tensors.FromFlatDataAndDimensions(data, batchShape...)
	case "<i8":
		data := make([]int64, n)
		for i := range data {
			data[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		t = tensors.FromFlatDataAndDimensions(data, batchShape...)
	case "|i1":
		data := make([]int8, n)
		for i := range data {
			data[i] = int8(raw[i])
		}
		t = tensors.FromFlatDataAndDimensions(data, batchShape...)
	default:
		return nil, fmt.Errorf("batch: unsupported dtype: %s", dtype)
	}

	r.CurrentIndex = end
	return t, nil
}

// Rows returns the dataset's total row count.
func (r *Reader) Rows() int { return r.ds.Rows() }
