package agg

import (
	"context"
	"fmt"

	"gocloud.dev/blob"

	"github.com/vcfzarr/vcfzarr/npy"
	"github.com/vcfzarr/vcfzarr/zarr"
)

// Group decomposes a record-typed shard family into one dataset per field,
// all row-aligned under a shared group node. Columns are kept in the record
// type's declared field order.
type Group struct {
	path  string
	dtype zarr.DType
	cols  []*Column
}

// PlanGroup creates (replacing as needed) one dataset per field of the
// sample's record dtype under a group node named name. Each field gets its
// own chunk geometry from its element size and trailing shape.
func PlanGroup(ctx context.Context, bucket *blob.Bucket, parent, name string, sample *npy.Array, byteBudget, widthHint int, compressor *zarr.CompressorConfig, filters []zarr.FilterConfig) (*Group, error) {
	if !sample.DType.IsRecord() {
		return nil, fmt.Errorf("group %s: sample dtype %s is not a record type", name, sample.DType)
	}
	if len(sample.Shape) != 1 {
		return nil, fmt.Errorf("group %s: %w: record arrays must be one-dimensional, got rank %d",
			name, ErrUnsupportedRank, len(sample.Shape))
	}

	path := zarr.JoinPath(parent, name)
	if err := zarr.DeleteNode(ctx, bucket, path); err != nil {
		return nil, fmt.Errorf("group %s: %w", path, err)
	}
	if err := zarr.RequireGroup(ctx, bucket, path); err != nil {
		return nil, fmt.Errorf("group %s: %w", path, err)
	}

	g := &Group{path: path, dtype: sample.DType}
	for _, field := range sample.DType.Fields {
		itemSize, err := zarr.TypeSize(field.Type)
		if err != nil {
			return nil, fmt.Errorf("group %s field %s: %w", path, field.Name, err)
		}

		// The field's dataset shape is (rows, *field.Shape); plan against
		// the sample's row count so the planner sees the true rank.
		fieldShape := append([]int{sample.Rows()}, field.Shape...)
		chunks, err := PlanChunks(itemSize, fieldShape, byteBudget, widthHint)
		if err != nil {
			return nil, fmt.Errorf("group %s field %s: %w", path, field.Name, err)
		}

		col, err := OpenOrReplace(ctx, bucket, path, field.Name,
			zarr.DType{Type: field.Type}, field.Shape, chunks, compressor, filters)
		if err != nil {
			return nil, err
		}
		g.cols = append(g.cols, col)
	}
	return g, nil
}

// Path returns the group's node path.
func (g *Group) Path() string { return g.path }

// Columns returns the per-field append handles in field order.
func (g *Group) Columns() []*Column { return g.cols }

// Rows returns the shared leading extent of the group's datasets.
func (g *Group) Rows() int {
	if len(g.cols) == 0 {
		return 0
	}
	return g.cols[0].Rows()
}

// Append projects each field's column out of the record array and appends
// it to the field's dataset. Every field receives the same row delta, which
// keeps the group a row-aligned table; zero-row shards no-op per field.
func (g *Group) Append(ctx context.Context, rec *npy.Array) error {
	if !rec.DType.Equal(g.dtype) {
		return fmt.Errorf("%w: group %s expects dtype %s, shard has %s",
			ErrShapeMismatch, g.path, g.dtype, rec.DType)
	}
	for i := range g.dtype.Fields {
		col, err := projectField(rec, i)
		if err != nil {
			return fmt.Errorf("group %s: %w", g.path, err)
		}
		if err := g.cols[i].Append(ctx, col); err != nil {
			return err
		}
	}
	return nil
}

// projectField extracts field i of a record array as a contiguous array of
// shape (rows, *field.Shape).
func projectField(rec *npy.Array, i int) (*npy.Array, error) {
	field := rec.DType.Fields[i]
	recSize, err := rec.DType.ItemSize()
	if err != nil {
		return nil, err
	}
	offset, err := rec.DType.FieldOffset(i)
	if err != nil {
		return nil, err
	}
	fieldSize, err := field.ItemSize()
	if err != nil {
		return nil, err
	}

	rows := rec.Rows()
	out := make([]byte, rows*fieldSize)
	for r := 0; r < rows; r++ {
		src := rec.Data[r*recSize+offset:]
		copy(out[r*fieldSize:(r+1)*fieldSize], src[:fieldSize])
	}

	return &npy.Array{
		DType: zarr.DType{Type: field.Type},
		Shape: append([]int{rows}, field.Shape...),
		Data:  out,
	}, nil
}
