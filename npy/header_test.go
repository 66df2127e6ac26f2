package npy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	dtype, shape, fortran, err := parseHeader(
		"{'descr': '<f4', 'fortran_order': False, 'shape': (10, 2), }        \n")
	require.NoError(t, err)
	require.Equal(t, "<f4", dtype.Type)
	require.Equal(t, []int{10, 2}, shape)
	require.False(t, fortran)
}

func TestParseHeaderStructured(t *testing.T) {
	dtype, shape, _, err := parseHeader(
		"{'descr': [('chrom', '|S12'), ('pos', '<i4'), ('ad', '<i2', (2,))], " +
			"'fortran_order': False, 'shape': (7,), }\n")
	require.NoError(t, err)
	require.True(t, dtype.IsRecord())
	require.Len(t, dtype.Fields, 3)
	require.Equal(t, "chrom", dtype.Fields[0].Name)
	require.Equal(t, "|S12", dtype.Fields[0].Type)
	require.Equal(t, []int{2}, dtype.Fields[2].Shape)
	require.Equal(t, []int{7}, shape)
}

func TestParseHeaderScalarShape(t *testing.T) {
	_, shape, _, err := parseHeader(
		"{'descr': '<i4', 'fortran_order': False, 'shape': (), }\n")
	require.NoError(t, err)
	require.Empty(t, shape)
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		name, header string
	}{
		{"not a dict", "'<i4'"},
		{"missing shape", "{'descr': '<i4', 'fortran_order': False}"},
		{"missing fortran_order", "{'descr': '<i4', 'shape': (1,)}"},
		{"negative dimension", "{'descr': '<i4', 'fortran_order': False, 'shape': (-1,)}"},
		{"bad descr", "{'descr': '>f8', 'fortran_order': False, 'shape': (1,)}"},
		{"unterminated string", "{'descr': '<i4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := parseHeader(tt.header)
			require.Error(t, err)
		})
	}
}
