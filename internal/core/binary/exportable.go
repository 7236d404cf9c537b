// Package binary implements the named-field stream scene objects persist
// themselves into.
//
// A stream is a flat sequence of fields. Each field carries its name, a Kind
// byte and a payload:
//
//	field   = name:string kind:byte payload
//	string  = len:uvarint bytes
//	bool    = 0x00 | 0x01
//	int     = zig-zag varint
//	uint    = uvarint
//	float   = 8 bytes IEEE-754, little endian
//	strings = count:uvarint string*
//	object  = len:uvarint stream
//	objects = count:uvarint (len:uvarint stream)*
//	assets  = count:uvarint path:string*
//
// Readers look fields up by name: missing fields fall back to the caller's
// default, a field of another kind is a *FormatError. When a name is written
// twice the last value wins.
package binary

import "context"

// Exportable is implemented by every persistable unit.
//
// Export only observes the receiver. Insert replaces the receiver's state with
// the one read from r; it must work on a zero value and must leave the
// receiver untouched when it fails.
type Exportable interface {
	Export(w *Writer)
	Insert(r *Reader) error
}

// Marshal exports e into a fresh byte slice.
func Marshal(e Exportable) []byte {
	w := NewWriter()
	e.Export(w)
	return w.Bytes()
}

// Unmarshal inserts the stream in data into e, resolving asset references
// through resolver.
func Unmarshal(ctx context.Context, data []byte, resolver AssetResolver, e Exportable) error {
	r, err := NewReader(ctx, data, resolver)
	if err != nil {
		return err
	}
	return e.Insert(r)
}
