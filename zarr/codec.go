package zarr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Filter IDs recognized in FilterConfig.
const (
	FilterShuffle     = "shuffle"
	FilterFletcher32  = "fletcher32"
	FilterScaleOffset = "scaleoffset"
)

// Compressor IDs recognized in CompressorConfig.
const (
	CompressorGzip   = "gzip"
	CompressorZstd   = "zstd"
	CompressorSnappy = "snappy"
)

// EncodeChunk applies the filter pipeline in declared order, then the
// compressor. A nil compressor stores raw bytes.
func EncodeChunk(data []byte, compressor *CompressorConfig, filters []FilterConfig) ([]byte, error) {
	var err error
	for _, f := range filters {
		data, err = encodeFilter(data, f)
		if err != nil {
			return nil, err
		}
	}
	return compress(data, compressor)
}

// DecodeChunk decompresses chunk bytes and reverses the filter pipeline.
func DecodeChunk(data []byte, compressor *CompressorConfig, filters []FilterConfig) ([]byte, error) {
	data, err := decompress(data, compressor)
	if err != nil {
		return nil, err
	}
	for i := len(filters) - 1; i >= 0; i-- {
		data, err = decodeFilter(data, filters[i])
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func encodeFilter(data []byte, f FilterConfig) ([]byte, error) {
	switch f.ID {
	case FilterShuffle:
		return shuffleBytes(data, f.ElementSize)
	case FilterFletcher32:
		sum := fletcher32(data)
		out := make([]byte, len(data)+4)
		copy(out, data)
		binary.LittleEndian.PutUint32(out[len(data):], sum)
		return out, nil
	case FilterScaleOffset:
		return scaleOffsetPack(data, f.ElementSize)
	default:
		return nil, fmt.Errorf("unsupported filter: %s", f.ID)
	}
}

func decodeFilter(data []byte, f FilterConfig) ([]byte, error) {
	switch f.ID {
	case FilterShuffle:
		return unshuffleBytes(data, f.ElementSize)
	case FilterFletcher32:
		if len(data) < 4 {
			return nil, fmt.Errorf("fletcher32: chunk shorter than checksum")
		}
		payload := data[:len(data)-4]
		want := binary.LittleEndian.Uint32(data[len(data)-4:])
		if got := fletcher32(payload); got != want {
			return nil, fmt.Errorf("fletcher32 checksum mismatch: got %08x, want %08x", got, want)
		}
		return payload, nil
	case FilterScaleOffset:
		return scaleOffsetUnpack(data)
	default:
		return nil, fmt.Errorf("unsupported filter: %s", f.ID)
	}
}

func compress(data []byte, c *CompressorConfig) ([]byte, error) {
	if c == nil {
		return data, nil
	}
	switch c.ID {
	case CompressorGzip:
		level := c.Level
		if level <= 0 {
			level = gzip.DefaultCompression
		}
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to gzip chunk: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to gzip chunk: %w", err)
		}
		return buf.Bytes(), nil
	case CompressorZstd:
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		defer encoder.Close()
		return encoder.EncodeAll(data, nil), nil
	case CompressorSnappy:
		return snappy.Encode(nil, data), nil
	default:
		return nil, fmt.Errorf("unsupported compressor: %s", c.ID)
	}
}

func decompress(data []byte, c *CompressorConfig) ([]byte, error) {
	if c == nil {
		return data, nil
	}
	switch c.ID {
	case CompressorGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to init gzip reader: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip chunk: %w", err)
		}
		return out, nil
	case CompressorZstd:
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer decoder.Close()
		out, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress zstd chunk: %w", err)
		}
		return out, nil
	case CompressorSnappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress snappy chunk: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compressor: %s", c.ID)
	}
}

// shuffleBytes transposes a buffer of fixed-size elements so that all first
// bytes come before all second bytes and so on, improving compressibility of
// numeric data.
func shuffleBytes(data []byte, elemSize int) ([]byte, error) {
	if elemSize <= 0 || len(data)%elemSize != 0 {
		return nil, fmt.Errorf("shuffle: buffer of %d bytes not a multiple of element size %d", len(data), elemSize)
	}
	n := len(data) / elemSize
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for j := 0; j < elemSize; j++ {
			out[j*n+i] = data[i*elemSize+j]
		}
	}
	return out, nil
}

func unshuffleBytes(data []byte, elemSize int) ([]byte, error) {
	if elemSize <= 0 || len(data)%elemSize != 0 {
		return nil, fmt.Errorf("shuffle: buffer of %d bytes not a multiple of element size %d", len(data), elemSize)
	}
	n := len(data) / elemSize
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for j := 0; j < elemSize; j++ {
			out[i*elemSize+j] = data[j*n+i]
		}
	}
	return out, nil
}

// fletcher32 computes the Fletcher-32 checksum over little-endian 16-bit
// words; an odd trailing byte is zero-padded.
func fletcher32(data []byte) uint32 {
	var sum1, sum2 uint32
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		w := uint32(data[i]) | uint32(data[i+1])<<8
		sum1 = (sum1 + w) % 65535
		sum2 = (sum2 + sum1) % 65535
	}
	if n%2 == 1 {
		sum1 = (sum1 + uint32(data[n-1])) % 65535
		sum2 = (sum2 + sum1) % 65535
	}
	return sum2<<16 | sum1
}

// scaleOffsetPack stores signed little-endian integers of elemSize bytes as
// offsets from the chunk minimum, packed to the smallest width that holds
// the chunk's value range. Layout: origSize, width, min (int64), payload.
func scaleOffsetPack(data []byte, elemSize int) ([]byte, error) {
	switch elemSize {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("scaleoffset: unsupported element size %d", elemSize)
	}
	if len(data)%elemSize != 0 {
		return nil, fmt.Errorf("scaleoffset: buffer of %d bytes not a multiple of element size %d", len(data), elemSize)
	}
	n := len(data) / elemSize

	var minV, maxV int64
	for i := 0; i < n; i++ {
		v := readInt(data[i*elemSize:], elemSize)
		if i == 0 || v < minV {
			minV = v
		}
		if i == 0 || v > maxV {
			maxV = v
		}
	}

	width := 1
	if n > 0 {
		span := uint64(maxV - minV)
		switch {
		case span > 0xffffffff:
			width = 8
		case span > 0xffff:
			width = 4
		case span > 0xff:
			width = 2
		}
	}

	out := make([]byte, 10+n*width)
	out[0] = byte(elemSize)
	out[1] = byte(width)
	binary.LittleEndian.PutUint64(out[2:], uint64(minV))
	for i := 0; i < n; i++ {
		v := uint64(readInt(data[i*elemSize:], elemSize) - minV)
		writeUint(out[10+i*width:], v, width)
	}
	return out, nil
}

func scaleOffsetUnpack(data []byte) ([]byte, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("scaleoffset: truncated header")
	}
	elemSize := int(data[0])
	width := int(data[1])
	minV := int64(binary.LittleEndian.Uint64(data[2:]))
	payload := data[10:]
	if width <= 0 || len(payload)%width != 0 {
		return nil, fmt.Errorf("scaleoffset: corrupt payload")
	}
	n := len(payload) / width

	out := make([]byte, n*elemSize)
	for i := 0; i < n; i++ {
		v := minV + int64(readUint(payload[i*width:], width))
		writeInt(out[i*elemSize:], v, elemSize)
	}
	return out, nil
}

func readInt(b []byte, size int) int64 {
	switch size {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	default:
		return int64(binary.LittleEndian.Uint64(b))
	}
}

func writeInt(b []byte, v int64, size int) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}

func readUint(b []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func writeUint(b []byte, v uint64, size int) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}
