package binary

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented description of the stream in data to w. Asset
// arrays are listed by path and never resolved.
func Dump(w io.Writer, data []byte) error {
	r, err := NewReader(context.Background(), data, nil)
	if err != nil {
		return err
	}
	return dumpLevel(w, r, 0)
}

func dumpLevel(w io.Writer, r *Reader, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, f := range r.Fields() {
		var err error
		switch f.Kind {
		case KindObject:
			_, err = fmt.Fprintf(w, "%s%s: object\n", indent, f.Name)
			if err == nil {
				_, err = r.ReadObject(f.Name, dumper{w: w, depth: depth + 1})
			}
		case KindObjects:
			i := 0
			err = r.ReadObjects(f.Name, func(sub *Reader) error {
				if _, err := fmt.Fprintf(w, "%s%s[%d]: object\n", indent, f.Name, i); err != nil {
					return err
				}
				i++
				return dumpLevel(w, sub, depth+1)
			})
			if err == nil && i == 0 {
				_, err = fmt.Fprintf(w, "%s%s: objects []\n", indent, f.Name)
			}
		default:
			var v any
			if v, err = r.value(f.Name, f.Kind); err == nil {
				_, err = fmt.Fprintf(w, "%s%s: %s %v\n", indent, f.Name, f.Kind, v)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) value(name string, kind Kind) (any, error) {
	switch kind {
	case KindBool:
		return r.ReadBool(name, false)
	case KindInt:
		return r.ReadInt(name, 0)
	case KindUint:
		return r.ReadUint(name, 0)
	case KindFloat:
		return r.ReadFloat(name, 0)
	case KindString:
		s, err := r.ReadString(name, "")
		return fmt.Sprintf("%q", s), err
	case KindBytes:
		b, err := r.ReadBytes(name, nil)
		return fmt.Sprintf("(%d bytes)", len(b)), err
	case KindStrings:
		return r.ReadStrings(name, nil)
	case KindAssets:
		return r.ReadAssetPaths(name)
	default:
		return nil, &FormatError{Field: name, Cause: ErrUnknownKind}
	}
}

// dumper prints a nested stream when used as an insert target.
type dumper struct {
	w     io.Writer
	depth int
}

func (d dumper) Export(*Writer) {}

func (d dumper) Insert(r *Reader) error {
	return dumpLevel(d.w, r, d.depth)
}
