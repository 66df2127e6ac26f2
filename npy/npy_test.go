package npy_test

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vcfzarr/vcfzarr/npy"
	"github.com/vcfzarr/vcfzarr/zarr"
)

func TestRoundTripFlat(t *testing.T) {
	data := make([]byte, 6*4)
	for i := 0; i < 6; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(i))
	}
	in := &npy.Array{DType: zarr.DType{Type: "<i4"}, Shape: []int{3, 2}, Data: data}

	var buf bytes.Buffer
	require.NoError(t, npy.Write(&buf, in))

	out, err := npy.Read(&buf)
	require.NoError(t, err)
	require.True(t, out.DType.Equal(in.DType))
	require.Equal(t, []int{3, 2}, out.Shape)
	require.Equal(t, in.Data, out.Data)
	require.Equal(t, 3, out.Rows())
	require.Equal(t, []int{2}, out.TrailingShape())
}

func TestRoundTripRecord(t *testing.T) {
	dtype := zarr.DType{Fields: []zarr.Field{
		{Name: "pos", Type: "<i4"},
		{Name: "genotype", Type: "|i1", Shape: []int{2, 2}},
	}}
	// Two records of 8 bytes each.
	data := []byte{
		1, 0, 0, 0, 0, 1, 1, 0,
		2, 0, 0, 0, 1, 1, 0, 0,
	}
	in := &npy.Array{DType: dtype, Shape: []int{2}, Data: data}

	var buf bytes.Buffer
	require.NoError(t, npy.Write(&buf, in))

	out, err := npy.Read(&buf)
	require.NoError(t, err)
	require.True(t, out.DType.Equal(dtype), "got %s", out.DType)
	require.Equal(t, []int{2}, out.Shape)
	require.Equal(t, data, out.Data)
}

func TestReadFileWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "variants.00001.npy")
	in := &npy.Array{DType: zarr.DType{Type: "<i8"}, Shape: []int{0}, Data: nil}

	require.NoError(t, npy.WriteFile(path, in))

	out, err := npy.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 0, out.Rows())
	require.Empty(t, out.Data)
}

func TestHeaderAlignment(t *testing.T) {
	var buf bytes.Buffer
	in := &npy.Array{DType: zarr.DType{Type: "<i4"}, Shape: []int{1}, Data: []byte{1, 0, 0, 0}}
	require.NoError(t, npy.Write(&buf, in))
	// Payload must start on a 64-byte boundary.
	require.Equal(t, 0, (buf.Len()-len(in.Data))%64)
}

func TestReadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"bad magic", []byte("NOTNUMPY__")},
		{"truncated", []byte{0x93, 'N', 'U', 'M'}},
		{"bad version", append([]byte{0x93, 'N', 'U', 'M', 'P', 'Y', 3, 0}, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := npy.Read(bytes.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestReadRejectsFortranOrder(t *testing.T) {
	header := "{'descr': '<i4', 'fortran_order': True, 'shape': (1,), }\n"

	var buf bytes.Buffer
	buf.Write([]byte{0x93, 'N', 'U', 'M', 'P', 'Y', 1, 0})
	var lenBytes [2]byte
	binary.LittleEndian.PutUint16(lenBytes[:], uint16(len(header)))
	buf.Write(lenBytes[:])
	buf.WriteString(header)
	buf.Write([]byte{1, 0, 0, 0})

	_, err := npy.Read(&buf)
	require.ErrorContains(t, err, "fortran")
}
