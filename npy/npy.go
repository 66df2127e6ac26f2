// Package npy reads and writes NumPy .npy array files, the self-describing
// shard format produced by the upstream per-region extraction tasks.
// Version 1.0 headers are supported, including structured (record) dtypes
// with per-field trailing shapes. Fortran-ordered files are rejected.
package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/vcfzarr/vcfzarr/zarr"
)

var magic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y'}

// Array is one in-memory shard: a dtype, a shape and C-order raw bytes.
type Array struct {
	DType zarr.DType
	Shape []int
	Data  []byte
}

// Rows returns the leading-dimension extent, 0 for scalar arrays.
func (a *Array) Rows() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// TrailingShape returns the shape without the leading dimension.
func (a *Array) TrailingShape() []int {
	if len(a.Shape) == 0 {
		return nil
	}
	return a.Shape[1:]
}

// ItemSize returns the byte size of one element.
func (a *Array) ItemSize() (int, error) {
	return a.DType.ItemSize()
}

// Read parses one .npy blob from r.
func Read(r io.Reader) (*Array, error) {
	head := make([]byte, 10)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("failed to read npy header: %w", err)
	}
	if !bytes.Equal(head[:6], magic) {
		return nil, fmt.Errorf("not an npy file: bad magic")
	}
	major, minor := head[6], head[7]
	if major != 1 || minor != 0 {
		return nil, fmt.Errorf("unsupported npy version %d.%d", major, minor)
	}

	headerLen := int(binary.LittleEndian.Uint16(head[8:]))
	headerText := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerText); err != nil {
		return nil, fmt.Errorf("failed to read npy header: %w", err)
	}

	dtype, shape, fortran, err := parseHeader(string(headerText))
	if err != nil {
		return nil, err
	}
	if fortran {
		return nil, fmt.Errorf("fortran-ordered npy files are unsupported")
	}

	itemSize, err := dtype.ItemSize()
	if err != nil {
		return nil, err
	}
	total := itemSize
	for _, d := range shape {
		total *= d
	}

	data := make([]byte, total)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read npy payload: %w", err)
	}
	return &Array{DType: dtype, Shape: shape, Data: data}, nil
}

// ReadFile loads one .npy shard from disk.
func ReadFile(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shard %s: %w", path, err)
	}
	defer f.Close()

	a, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("shard %s: %w", path, err)
	}
	return a, nil
}

// Write serializes a as a version 1.0 .npy blob.
func Write(w io.Writer, a *Array) error {
	itemSize, err := a.DType.ItemSize()
	if err != nil {
		return err
	}
	total := itemSize
	for _, d := range a.Shape {
		total *= d
	}
	if len(a.Data) != total {
		return fmt.Errorf("npy payload is %d bytes, want %d for shape %v", len(a.Data), total, a.Shape)
	}

	header := fmt.Sprintf("{'descr': %s, 'fortran_order': False, 'shape': %s, }",
		formatDescr(a.DType), formatShape(a.Shape))
	// Pad so the payload starts on a 64-byte boundary, newline-terminated.
	pad := 64 - (10+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += string(bytes.Repeat([]byte{' '}, pad)) + "\n"

	buf := make([]byte, 10)
	copy(buf, magic)
	buf[6], buf[7] = 1, 0
	binary.LittleEndian.PutUint16(buf[8:], uint16(len(header)))

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write npy header: %w", err)
	}
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("failed to write npy header: %w", err)
	}
	if _, err := w.Write(a.Data); err != nil {
		return fmt.Errorf("failed to write npy payload: %w", err)
	}
	return nil
}

// WriteFile writes one .npy shard to disk.
func WriteFile(path string, a *Array) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create shard %s: %w", path, err)
	}
	if err := Write(f, a); err != nil {
		f.Close()
		return fmt.Errorf("shard %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("shard %s: %w", path, err)
	}
	return nil
}

func formatShape(shape []int) string {
	switch len(shape) {
	case 0:
		return "()"
	case 1:
		return fmt.Sprintf("(%d,)", shape[0])
	default:
		s := "("
		for i, d := range shape {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%d", d)
		}
		return s + ")"
	}
}

func formatDescr(d zarr.DType) string {
	if !d.IsRecord() {
		return "'" + d.Type + "'"
	}
	s := "["
	for i, f := range d.Fields {
		if i > 0 {
			s += ", "
		}
		if len(f.Shape) == 0 {
			s += fmt.Sprintf("('%s', '%s')", f.Name, f.Type)
		} else {
			s += fmt.Sprintf("('%s', '%s', %s)", f.Name, f.Type, formatShape(f.Shape))
		}
	}
	return s + "]"
}
