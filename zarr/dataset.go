package zarr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gocloud.dev/blob"
)

// Dataset is a handle to one chunked array node in a bucket. The leading
// dimension is resizable; trailing dimensions and dtype are fixed at
// creation.
type Dataset struct {
	bucket *blob.Bucket
	path   string
	meta   *Metadata
}

// Create writes a new dataset node at path. Any existing node at the same
// path must be removed by the caller first (see DeleteNode).
func Create(ctx context.Context, bucket *blob.Bucket, path string, dtype DType, shape, chunks []int, compressor *CompressorConfig, filters []FilterConfig) (*Dataset, error) {
	itemSize, err := dtype.ItemSize()
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("dataset %s: scalar (rank 0) datasets are unsupported", path)
	}
	if len(chunks) != len(shape) {
		return nil, fmt.Errorf("dataset %s: chunk rank %d does not match shape rank %d", path, len(chunks), len(shape))
	}

	filters = append([]FilterConfig(nil), filters...)
	for i := range filters {
		switch filters[i].ID {
		case FilterShuffle:
			if filters[i].ElementSize == 0 {
				filters[i].ElementSize = itemSize
			}
		case FilterScaleOffset:
			if dtype.IsRecord() || !IsSignedIntegerType(dtype.Type) {
				return nil, fmt.Errorf("dataset %s: scaleoffset filter requires a signed integer dtype, got %s", path, dtype)
			}
			if filters[i].ElementSize == 0 {
				filters[i].ElementSize = itemSize
			}
		case FilterFletcher32:
		default:
			return nil, fmt.Errorf("dataset %s: unsupported filter: %s", path, filters[i].ID)
		}
	}

	d := &Dataset{
		bucket: bucket,
		path:   path,
		meta: &Metadata{
			ZarrFormat: Format,
			Shape:      append([]int(nil), shape...),
			Chunks:     append([]int(nil), chunks...),
			DType:      dtype,
			Compressor: compressor,
			Filters:    filters,
			FillValue:  0,
			Order:      "C",
		},
	}
	if err := d.meta.validate(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	if err := d.writeMeta(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Open reads an existing dataset's metadata from the bucket.
func Open(ctx context.Context, bucket *blob.Bucket, path string) (*Dataset, error) {
	data, err := readKey(ctx, bucket, nodeKey(path, ArrayMetaKey))
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("dataset %s: failed to decode metadata: %w", path, err)
	}
	if err := meta.validate(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return &Dataset{bucket: bucket, path: path, meta: &meta}, nil
}

func (d *Dataset) Path() string  { return d.path }
func (d *Dataset) DType() DType  { return d.meta.DType }
func (d *Dataset) ItemSize() int { return d.meta.ItemSize() }

func (d *Dataset) Shape() []int {
	return append([]int(nil), d.meta.Shape...)
}

func (d *Dataset) Chunks() []int {
	return append([]int(nil), d.meta.Chunks...)
}

// Rows returns the current extent of the leading dimension.
func (d *Dataset) Rows() int { return d.meta.Shape[0] }

func (d *Dataset) writeMeta(ctx context.Context) error {
	data, err := json.Marshal(d.meta)
	if err != nil {
		return fmt.Errorf("dataset %s: failed to encode metadata: %w", d.path, err)
	}
	return writeKey(ctx, d.bucket, nodeKey(d.path, ArrayMetaKey), data)
}

// Resize grows the leading dimension to rows. Shrinking is not supported:
// it would orphan chunk data.
func (d *Dataset) Resize(ctx context.Context, rows int) error {
	if rows < d.meta.Shape[0] {
		return fmt.Errorf("dataset %s: cannot shrink from %d to %d rows", d.path, d.meta.Shape[0], rows)
	}
	if rows == d.meta.Shape[0] {
		return nil
	}
	d.meta.Shape[0] = rows
	return d.writeMeta(ctx)
}

// rowElems is the number of elements in one row (product of trailing dims).
func (d *Dataset) rowElems() int {
	return product(d.meta.Shape[1:])
}

// WriteSlice writes rows rows of C-order data starting at leading index
// start. Partially covered chunks are read, patched and rewritten; chunks
// fully covered by the slab are overwritten without a read.
func (d *Dataset) WriteSlice(ctx context.Context, start, rows int, data []byte) error {
	itemSize := d.meta.ItemSize()
	if start < 0 || rows < 0 || start+rows > d.meta.Shape[0] {
		return fmt.Errorf("dataset %s: slice [%d:%d] out of bounds for %d rows", d.path, start, start+rows, d.meta.Shape[0])
	}
	if want := rows * d.rowElems() * itemSize; len(data) != want {
		return fmt.Errorf("dataset %s: slice data is %d bytes, want %d", d.path, len(data), want)
	}
	if rows == 0 {
		return nil
	}

	slabShape := append([]int{rows}, d.meta.Shape[1:]...)
	slabStrides := strides(slabShape)
	chunkStrides := strides(d.meta.Chunks)
	chunkBytes := product(d.meta.Chunks) * itemSize

	gridStart, gridEnd := d.gridRange(start, rows)
	return iterateGrid(gridStart, gridEnd, func(coords []int) error {
		dstOffset, srcOffset, copyShape, ok := d.intersect(coords, start, rows)
		if !ok {
			return nil
		}

		key := nodeKey(d.path, ChunkKey(coords, "."))
		covered := true
		for i := range copyShape {
			if dstOffset[i] != 0 || copyShape[i] != d.meta.Chunks[i] {
				covered = false
				break
			}
		}

		var buf []byte
		if covered {
			buf = make([]byte, chunkBytes)
		} else {
			var err error
			buf, err = d.readChunk(ctx, key, chunkBytes)
			if err != nil {
				return err
			}
		}

		copyND(buf, chunkStrides, dstOffset, data, slabStrides, srcOffset, copyShape, itemSize)

		encoded, err := EncodeChunk(buf, d.meta.Compressor, d.meta.Filters)
		if err != nil {
			return fmt.Errorf("dataset %s: failed to encode chunk %s: %w", d.path, key, err)
		}
		return writeKey(ctx, d.bucket, key, encoded)
	})
}

// ReadSlice reads rows rows starting at leading index start into a C-order
// byte buffer. Missing chunks read as the fill value (zero bytes).
func (d *Dataset) ReadSlice(ctx context.Context, start, rows int) ([]byte, error) {
	itemSize := d.meta.ItemSize()
	if start < 0 || rows < 0 || start+rows > d.meta.Shape[0] {
		return nil, fmt.Errorf("dataset %s: slice [%d:%d] out of bounds for %d rows", d.path, start, start+rows, d.meta.Shape[0])
	}
	out := make([]byte, rows*d.rowElems()*itemSize)
	if rows == 0 {
		return out, nil
	}

	slabShape := append([]int{rows}, d.meta.Shape[1:]...)
	slabStrides := strides(slabShape)
	chunkStrides := strides(d.meta.Chunks)
	chunkBytes := product(d.meta.Chunks) * itemSize

	gridStart, gridEnd := d.gridRange(start, rows)
	err := iterateGrid(gridStart, gridEnd, func(coords []int) error {
		chunkOffset, slabOffset, copyShape, ok := d.intersect(coords, start, rows)
		if !ok {
			return nil
		}
		key := nodeKey(d.path, ChunkKey(coords, "."))
		buf, err := d.readChunk(ctx, key, chunkBytes)
		if err != nil {
			return err
		}
		copyND(out, slabStrides, slabOffset, buf, chunkStrides, chunkOffset, copyShape, itemSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// gridRange bounds the chunk grid coordinates touched by a leading-dim slab.
func (d *Dataset) gridRange(start, rows int) (gridStart, gridEnd []int) {
	grid := GridShape(d.meta.Shape, d.meta.Chunks)
	gridStart = make([]int, len(grid))
	gridEnd = append([]int(nil), grid...)
	gridStart[0] = start / d.meta.Chunks[0]
	gridEnd[0] = (start+rows-1)/d.meta.Chunks[0] + 1
	return gridStart, gridEnd
}

// intersect computes the overlap between chunk coords and the slab
// [start, start+rows) x full trailing extent. Returned offsets are relative
// to the chunk and the slab respectively.
func (d *Dataset) intersect(coords []int, start, rows int) (chunkOffset, slabOffset, copyShape []int, ok bool) {
	rank := len(d.meta.Shape)
	chunkOffset = make([]int, rank)
	slabOffset = make([]int, rank)
	copyShape = make([]int, rank)

	for i := 0; i < rank; i++ {
		chunkStart := coords[i] * d.meta.Chunks[i]
		chunkEnd := chunkStart + d.meta.Chunks[i]
		if chunkEnd > d.meta.Shape[i] {
			chunkEnd = d.meta.Shape[i]
		}

		slabStart, slabEnd := 0, d.meta.Shape[i]
		if i == 0 {
			slabStart, slabEnd = start, start+rows
		}

		isectStart := maxInt(chunkStart, slabStart)
		isectEnd := minInt(chunkEnd, slabEnd)
		if isectStart >= isectEnd {
			return nil, nil, nil, false
		}

		chunkOffset[i] = isectStart - chunkStart
		slabOffset[i] = isectStart - slabStart
		copyShape[i] = isectEnd - isectStart
	}
	return chunkOffset, slabOffset, copyShape, true
}

// readChunk loads and decodes one chunk, returning a zero-filled buffer for
// missing chunks.
func (d *Dataset) readChunk(ctx context.Context, key string, chunkBytes int) ([]byte, error) {
	raw, err := readKey(ctx, d.bucket, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return make([]byte, chunkBytes), nil
		}
		return nil, err
	}
	buf, err := DecodeChunk(raw, d.meta.Compressor, d.meta.Filters)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: failed to decode chunk %s: %w", d.path, key, err)
	}
	if len(buf) != chunkBytes {
		return nil, fmt.Errorf("dataset %s: chunk %s is %d bytes, want %d", d.path, key, len(buf), chunkBytes)
	}
	return buf, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
