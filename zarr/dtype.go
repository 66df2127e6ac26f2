package zarr

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Field is one named column of a record (compound) dtype. Shape holds the
// trailing dimensions of the field within a single record; an empty Shape
// means one scalar value per record.
type Field struct {
	Name  string
	Type  string // NumPy typestr, e.g. "<i4"
	Shape []int
}

// ItemSize returns the byte size of one record's worth of this field.
func (f Field) ItemSize() (int, error) {
	sz, err := TypeSize(f.Type)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", f.Name, err)
	}
	for _, d := range f.Shape {
		sz *= d
	}
	return sz, nil
}

// DType is either a primitive NumPy typestr (Fields empty) or a record type
// with an ordered field list (Type empty). The zero value is invalid.
type DType struct {
	Type   string
	Fields []Field
}

func (d DType) IsRecord() bool { return len(d.Fields) > 0 }

// ItemSize returns the byte size of one element: the typestr size for a
// primitive dtype, the packed record size for a record dtype.
func (d DType) ItemSize() (int, error) {
	if !d.IsRecord() {
		return TypeSize(d.Type)
	}
	total := 0
	for _, f := range d.Fields {
		sz, err := f.ItemSize()
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

// FieldOffset returns the byte offset of field i within one packed record.
func (d DType) FieldOffset(i int) (int, error) {
	if i < 0 || i >= len(d.Fields) {
		return 0, fmt.Errorf("no field at index %d", i)
	}
	off := 0
	for _, f := range d.Fields[:i] {
		sz, err := f.ItemSize()
		if err != nil {
			return 0, err
		}
		off += sz
	}
	return off, nil
}

func (d DType) Equal(o DType) bool {
	if d.Type != o.Type || len(d.Fields) != len(o.Fields) {
		return false
	}
	for i, f := range d.Fields {
		g := o.Fields[i]
		if f.Name != g.Name || f.Type != g.Type || len(f.Shape) != len(g.Shape) {
			return false
		}
		for j, s := range f.Shape {
			if g.Shape[j] != s {
				return false
			}
		}
	}
	return true
}

func (d DType) String() string {
	if !d.IsRecord() {
		return d.Type
	}
	s := "["
	for i, f := range d.Fields {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("(%q, %q", f.Name, f.Type)
		if len(f.Shape) > 0 {
			s += fmt.Sprintf(", %v", f.Shape)
		}
		s += ")"
	}
	return s + "]"
}

// MarshalJSON encodes a primitive dtype as its typestr and a record dtype as
// a NumPy descr list: [[name, typestr] | [name, typestr, shape], ...].
func (d DType) MarshalJSON() ([]byte, error) {
	if !d.IsRecord() {
		return json.Marshal(d.Type)
	}
	descr := make([]interface{}, len(d.Fields))
	for i, f := range d.Fields {
		if len(f.Shape) == 0 {
			descr[i] = []interface{}{f.Name, f.Type}
		} else {
			descr[i] = []interface{}{f.Name, f.Type, f.Shape}
		}
	}
	return json.Marshal(descr)
}

func (d *DType) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	dt, err := parseDescr(v)
	if err != nil {
		return err
	}
	*d = dt
	return nil
}

func parseDescr(v interface{}) (DType, error) {
	switch x := v.(type) {
	case string:
		if _, err := TypeSize(x); err != nil {
			return DType{}, err
		}
		return DType{Type: x}, nil
	case []interface{}:
		d := DType{}
		for i, el := range x {
			entry, ok := el.([]interface{})
			if !ok || len(entry) < 2 || len(entry) > 3 {
				return DType{}, fmt.Errorf("descr entry %d: want [name, typestr] or [name, typestr, shape]", i)
			}
			name, ok := entry[0].(string)
			if !ok {
				return DType{}, fmt.Errorf("descr entry %d: field name must be a string, got %T", i, entry[0])
			}
			typestr, ok := entry[1].(string)
			if !ok {
				return DType{}, fmt.Errorf("descr entry %d: typestr must be a string, got %T", i, entry[1])
			}
			if _, err := TypeSize(typestr); err != nil {
				return DType{}, fmt.Errorf("descr entry %d: %w", i, err)
			}
			f := Field{Name: name, Type: typestr}
			if len(entry) == 3 {
				dims, ok := entry[2].([]interface{})
				if !ok {
					return DType{}, fmt.Errorf("descr entry %d: shape must be a list, got %T", i, entry[2])
				}
				for _, dim := range dims {
					n, ok := dim.(float64)
					if !ok {
						return DType{}, fmt.Errorf("descr entry %d: shape dimension must be an integer", i)
					}
					f.Shape = append(f.Shape, int(n))
				}
			}
			d.Fields = append(d.Fields, f)
		}
		if len(d.Fields) == 0 {
			return DType{}, fmt.Errorf("empty descr list")
		}
		return d, nil
	default:
		return DType{}, fmt.Errorf("unexpected dtype encoding %T", v)
	}
}

// TypeSize parses a NumPy-style typestr like "<f4", "|b1", "<i8" or "|S12"
// and returns its byte size. Big-endian (>) types are rejected.
func TypeSize(s string) (int, error) {
	if len(s) < 3 {
		return 0, fmt.Errorf("invalid dtype: %q", s)
	}
	if s[0] == '>' {
		return 0, fmt.Errorf("big-endian types are unsupported: %s", s)
	}
	if s[0] != '<' && s[0] != '|' && s[0] != '=' {
		return 0, fmt.Errorf("invalid byte order in dtype: %s", s)
	}

	size, err := strconv.Atoi(s[2:])
	if err != nil || size <= 0 {
		return 0, fmt.Errorf("invalid size in dtype: %s", s)
	}

	switch s[1] {
	case 'b', 'i', 'u', 'f', 'S':
		return size, nil
	default:
		return 0, fmt.Errorf("unsupported dtype kind: %c in %s", s[1], s)
	}
}

// TypeKind returns the kind character of a typestr ('b', 'i', 'u', 'f', 'S').
func TypeKind(s string) (byte, error) {
	if _, err := TypeSize(s); err != nil {
		return 0, err
	}
	return s[1], nil
}

// IsSignedIntegerType reports whether the typestr names a signed integer
// type.
func IsSignedIntegerType(s string) bool {
	k, err := TypeKind(s)
	return err == nil && k == 'i'
}
