package zarr

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	// Format is the zarr storage format version this package reads and writes.
	Format = 2

	// ArrayMetaKey is the key for array metadata within a node.
	ArrayMetaKey = ".zarray"
	// GroupMetaKey is the key marking a node as a group.
	GroupMetaKey = ".zgroup"
	// AttrsKey is the key for userland attributes on a node.
	AttrsKey = ".zattrs"
)

// CompressorConfig identifies the chunk compressor and its settings.
type CompressorConfig struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// FilterConfig identifies one pre-compression filter applied to chunk bytes.
// ElementSize is the byte width the shuffle and scaleoffset filters operate
// on; it is recorded so chunks stay decodable without the dataset dtype.
type FilterConfig struct {
	ID          string `json:"id"`
	ElementSize int    `json:"elementsize,omitempty"`
}

// Metadata is the .zarray metadata for one dataset.
type Metadata struct {
	ZarrFormat int               `json:"zarr_format"`
	Shape      []int             `json:"shape"`
	Chunks     []int             `json:"chunks"`
	DType      DType             `json:"dtype"`
	Compressor *CompressorConfig `json:"compressor"`
	Filters    []FilterConfig    `json:"filters"`
	FillValue  interface{}       `json:"fill_value"`
	Order      string            `json:"order"`
}

// GroupMetadata is the .zgroup metadata for one group node.
type GroupMetadata struct {
	ZarrFormat int `json:"zarr_format"`
}

// Attributes is the userland .zattrs mapping on a node.
type Attributes map[string]interface{}

// LoadMetadata reads and parses .zarray metadata.
func LoadMetadata(reader io.Reader) (*Metadata, error) {
	var meta Metadata
	if err := json.NewDecoder(reader).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if err := meta.validate(); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *Metadata) validate() error {
	if m.ZarrFormat != Format {
		return fmt.Errorf("unsupported zarr_format: %d, expected %d", m.ZarrFormat, Format)
	}
	if len(m.Shape) != len(m.Chunks) {
		return fmt.Errorf("shape rank %d does not match chunk rank %d", len(m.Shape), len(m.Chunks))
	}
	for i, c := range m.Chunks {
		if c < 1 {
			return fmt.Errorf("chunk dimension %d is %d, must be >= 1", i, c)
		}
	}
	if m.Order != "" && m.Order != "C" {
		return fmt.Errorf("unsupported order: %q, only C supported", m.Order)
	}
	if _, err := m.DType.ItemSize(); err != nil {
		return err
	}
	return nil
}

// ItemSize returns the byte size of one array element.
func (m *Metadata) ItemSize() int {
	sz, _ := m.DType.ItemSize()
	return sz
}
