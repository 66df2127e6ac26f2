package npy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vcfzarr/vcfzarr/zarr"
)

// parseHeader parses the Python-literal dict in an npy header into the
// dtype, shape and fortran_order flag.
func parseHeader(text string) (zarr.DType, []int, bool, error) {
	p := &pyParser{s: text}
	v, err := p.parse()
	if err != nil {
		return zarr.DType{}, nil, false, fmt.Errorf("invalid npy header: %w", err)
	}
	dict, ok := v.(map[string]interface{})
	if !ok {
		return zarr.DType{}, nil, false, fmt.Errorf("invalid npy header: not a dict")
	}

	dtype, err := descrToDType(dict["descr"])
	if err != nil {
		return zarr.DType{}, nil, false, fmt.Errorf("invalid npy header: %w", err)
	}

	fortran, ok := dict["fortran_order"].(bool)
	if !ok {
		return zarr.DType{}, nil, false, fmt.Errorf("invalid npy header: missing fortran_order")
	}

	shapeVal, ok := dict["shape"].([]interface{})
	if !ok {
		return zarr.DType{}, nil, false, fmt.Errorf("invalid npy header: missing shape")
	}
	shape := make([]int, len(shapeVal))
	for i, d := range shapeVal {
		n, ok := d.(int)
		if !ok || n < 0 {
			return zarr.DType{}, nil, false, fmt.Errorf("invalid npy header: bad shape dimension %v", d)
		}
		shape[i] = n
	}

	return dtype, shape, fortran, nil
}

// descrToDType converts a parsed descr literal (string or list of
// (name, typestr[, shape]) tuples) into a DType.
func descrToDType(v interface{}) (zarr.DType, error) {
	switch x := v.(type) {
	case string:
		if _, err := zarr.TypeSize(x); err != nil {
			return zarr.DType{}, err
		}
		return zarr.DType{Type: x}, nil
	case []interface{}:
		d := zarr.DType{}
		for i, el := range x {
			entry, ok := el.([]interface{})
			if !ok || len(entry) < 2 || len(entry) > 3 {
				return zarr.DType{}, fmt.Errorf("descr entry %d: want (name, typestr) or (name, typestr, shape)", i)
			}
			name, ok := entry[0].(string)
			if !ok {
				return zarr.DType{}, fmt.Errorf("descr entry %d: field name must be a string", i)
			}
			typestr, ok := entry[1].(string)
			if !ok {
				return zarr.DType{}, fmt.Errorf("descr entry %d: typestr must be a string", i)
			}
			if _, err := zarr.TypeSize(typestr); err != nil {
				return zarr.DType{}, fmt.Errorf("descr entry %d: %w", i, err)
			}
			f := zarr.Field{Name: name, Type: typestr}
			if len(entry) == 3 {
				dims, ok := entry[2].([]interface{})
				if !ok {
					return zarr.DType{}, fmt.Errorf("descr entry %d: field shape must be a tuple", i)
				}
				for _, dim := range dims {
					n, ok := dim.(int)
					if !ok || n < 0 {
						return zarr.DType{}, fmt.Errorf("descr entry %d: bad field shape dimension %v", i, dim)
					}
					f.Shape = append(f.Shape, n)
				}
			}
			d.Fields = append(d.Fields, f)
		}
		if len(d.Fields) == 0 {
			return zarr.DType{}, fmt.Errorf("empty descr list")
		}
		return d, nil
	default:
		return zarr.DType{}, fmt.Errorf("unexpected descr %T", v)
	}
}

// pyParser is a minimal parser for the Python literals numpy emits in npy
// headers: dicts, tuples, lists, quoted strings, integers and booleans.
type pyParser struct {
	s string
	i int
}

func (p *pyParser) parse() (interface{}, error) {
	p.skipSpace()
	if p.i >= len(p.s) {
		return nil, fmt.Errorf("unexpected end of header")
	}
	switch c := p.s[p.i]; {
	case c == '{':
		return p.parseDict()
	case c == '(' || c == '[':
		return p.parseSeq()
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseInt()
	case strings.HasPrefix(p.s[p.i:], "True"):
		p.i += 4
		return true, nil
	case strings.HasPrefix(p.s[p.i:], "False"):
		p.i += 5
		return false, nil
	case strings.HasPrefix(p.s[p.i:], "None"):
		p.i += 4
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected character %q at offset %d", c, p.i)
	}
}

func (p *pyParser) skipSpace() {
	for p.i < len(p.s) && (p.s[p.i] == ' ' || p.s[p.i] == '\t' || p.s[p.i] == '\n') {
		p.i++
	}
}

func (p *pyParser) expect(c byte) error {
	p.skipSpace()
	if p.i >= len(p.s) || p.s[p.i] != c {
		return fmt.Errorf("expected %q at offset %d", c, p.i)
	}
	p.i++
	return nil
}

func (p *pyParser) parseDict() (map[string]interface{}, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	dict := map[string]interface{}{}
	for {
		p.skipSpace()
		if p.i < len(p.s) && p.s[p.i] == '}' {
			p.i++
			return dict, nil
		}
		key, err := p.parseString()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		val, err := p.parse()
		if err != nil {
			return nil, err
		}
		dict[key] = val

		p.skipSpace()
		if p.i < len(p.s) && p.s[p.i] == ',' {
			p.i++
		}
	}
}

func (p *pyParser) parseSeq() ([]interface{}, error) {
	open := p.s[p.i]
	term := byte(')')
	if open == '[' {
		term = ']'
	}
	p.i++

	seq := []interface{}{}
	for {
		p.skipSpace()
		if p.i >= len(p.s) {
			return nil, fmt.Errorf("unterminated sequence")
		}
		if p.s[p.i] == term {
			p.i++
			return seq, nil
		}
		el, err := p.parse()
		if err != nil {
			return nil, err
		}
		seq = append(seq, el)

		p.skipSpace()
		if p.i < len(p.s) && p.s[p.i] == ',' {
			p.i++
		}
	}
}

func (p *pyParser) parseString() (string, error) {
	p.skipSpace()
	if p.i >= len(p.s) || (p.s[p.i] != '\'' && p.s[p.i] != '"') {
		return "", fmt.Errorf("expected string at offset %d", p.i)
	}
	quote := p.s[p.i]
	p.i++
	start := p.i
	for p.i < len(p.s) && p.s[p.i] != quote {
		p.i++
	}
	if p.i >= len(p.s) {
		return "", fmt.Errorf("unterminated string at offset %d", start)
	}
	s := p.s[start:p.i]
	p.i++
	return s, nil
}

func (p *pyParser) parseInt() (int, error) {
	start := p.i
	if p.s[p.i] == '-' {
		p.i++
	}
	for p.i < len(p.s) && p.s[p.i] >= '0' && p.s[p.i] <= '9' {
		p.i++
	}
	n, err := strconv.Atoi(p.s[start:p.i])
	if err != nil {
		return 0, fmt.Errorf("invalid integer at offset %d", start)
	}
	return n, nil
}
