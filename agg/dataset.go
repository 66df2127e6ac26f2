package agg

import (
	"context"
	"fmt"

	"gocloud.dev/blob"

	"github.com/vcfzarr/vcfzarr/npy"
	"github.com/vcfzarr/vcfzarr/zarr"
)

// Column is an append handle to one resizable dataset. Its dtype and
// trailing shape are fixed at creation; only the leading dimension grows.
type Column struct {
	ds *zarr.Dataset
}

// OpenOrReplace deletes any existing node named name under parent and
// creates a fresh dataset with zero rows. Aggregation runs are idempotent
// re-runs: replacing up front discards partial state from earlier runs.
func OpenOrReplace(ctx context.Context, bucket *blob.Bucket, parent, name string, dtype zarr.DType, trailing []int, chunks []int, compressor *zarr.CompressorConfig, filters []zarr.FilterConfig) (*Column, error) {
	path := zarr.JoinPath(parent, name)
	if err := zarr.DeleteNode(ctx, bucket, path); err != nil {
		return nil, fmt.Errorf("target %s: %w", path, err)
	}

	shape := append([]int{0}, trailing...)
	ds, err := zarr.Create(ctx, bucket, path, dtype, shape, chunks, compressor, filtersFor(dtype, filters))
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", path, err)
	}
	return &Column{ds: ds}, nil
}

// Rows returns the current leading extent.
func (c *Column) Rows() int { return c.ds.Rows() }

// Path returns the dataset's node path.
func (c *Column) Path() string { return c.ds.Path() }

// Chunks returns the dataset's chunk shape.
func (c *Column) Chunks() []int { return c.ds.Chunks() }

// Append grows the dataset by a.Rows() rows and writes a's data into the
// new slice. Zero-row arrays are a no-op. The shard's dtype and trailing
// shape are validated before the resize so a mismatch cannot leave the
// dataset longer than its written content.
func (c *Column) Append(ctx context.Context, a *npy.Array) error {
	rows := a.Rows()
	if rows == 0 {
		return nil
	}
	if err := c.validate(a); err != nil {
		return err
	}

	n := c.ds.Rows()
	if err := c.ds.Resize(ctx, n+rows); err != nil {
		return err
	}
	return c.ds.WriteSlice(ctx, n, rows, a.Data)
}

func (c *Column) validate(a *npy.Array) error {
	if !a.DType.Equal(c.ds.DType()) {
		return fmt.Errorf("%w: target %s expects dtype %s, shard has %s",
			ErrShapeMismatch, c.ds.Path(), c.ds.DType(), a.DType)
	}
	want := c.ds.Shape()[1:]
	got := a.TrailingShape()
	if len(want) != len(got) {
		return fmt.Errorf("%w: target %s expects trailing shape %v, shard has %v",
			ErrShapeMismatch, c.ds.Path(), want, got)
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%w: target %s expects trailing shape %v, shard has %v",
				ErrShapeMismatch, c.ds.Path(), want, got)
		}
	}
	return nil
}

// filtersFor prunes the configured filter list for one dataset's dtype.
// Scale-offset packing only applies to signed integer data, and supersedes
// byte shuffling when active (the packed stream has its own layout).
func filtersFor(dtype zarr.DType, filters []zarr.FilterConfig) []zarr.FilterConfig {
	scalable := !dtype.IsRecord() && zarr.IsSignedIntegerType(dtype.Type)

	hasScale := false
	for _, f := range filters {
		if f.ID == zarr.FilterScaleOffset && scalable {
			hasScale = true
		}
	}

	out := make([]zarr.FilterConfig, 0, len(filters))
	for _, f := range filters {
		switch f.ID {
		case zarr.FilterScaleOffset:
			if !scalable {
				continue
			}
		case zarr.FilterShuffle:
			if hasScale {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}
