package binary

import (
	stdbinary "encoding/binary"
	"io"
	"math"

	"github.com/alchemy-engine/alchemy/internal/core/asset"
	"github.com/alchemy-engine/alchemy/pkg/generic"
)

var writerPool = generic.NewPool(
	func() *Writer { return &Writer{} },
	func(w *Writer) { w.buf = w.buf[:0] },
)

// Writer accumulates a field stream in memory. It never fails and performs no
// I/O; callers decide when the bytes reach storage.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns a copy of the encoded stream.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.buf)
	return int64(n), err
}

func (w *Writer) WriteBool(name string, v bool) {
	w.header(name, KindBool)
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteInt(name string, v int64) {
	w.header(name, KindInt)
	w.buf = stdbinary.AppendVarint(w.buf, v)
}

func (w *Writer) WriteUint(name string, v uint64) {
	w.header(name, KindUint)
	w.buf = stdbinary.AppendUvarint(w.buf, v)
}

func (w *Writer) WriteFloat(name string, v float64) {
	w.header(name, KindFloat)
	w.buf = stdbinary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *Writer) WriteString(name, v string) {
	w.header(name, KindString)
	w.putString(v)
}

func (w *Writer) WriteBytes(name string, v []byte) {
	w.header(name, KindBytes)
	w.putBytes(v)
}

func (w *Writer) WriteStrings(name string, v []string) {
	w.header(name, KindStrings)
	w.buf = stdbinary.AppendUvarint(w.buf, uint64(len(v)))
	for _, s := range v {
		w.putString(s)
	}
}

// WriteObject embeds the field stream exported by e. A nil e writes nothing,
// so readers see the field as absent.
func (w *Writer) WriteObject(name string, e Exportable) {
	if e == nil {
		return
	}
	w.header(name, KindObject)
	w.putExport(e)
}

// WriteObjects embeds one stream per item, preserving order.
func (w *Writer) WriteObjects(name string, items ...Exportable) {
	w.header(name, KindObjects)
	w.buf = stdbinary.AppendUvarint(w.buf, uint64(len(items)))
	for _, item := range items {
		w.putExport(item)
	}
}

// WriteAssetArray stores the count and the path of every asset in order.
// The decoded payload of an asset is never written.
func (w *Writer) WriteAssetArray(name string, assets []asset.Asset) {
	w.header(name, KindAssets)
	w.buf = stdbinary.AppendUvarint(w.buf, uint64(len(assets)))
	for _, a := range assets {
		w.putString(a.Path())
	}
}

// WriteAssets is WriteAssetArray for a slice of a concrete asset type.
func WriteAssets[T asset.Asset](w *Writer, name string, assets []T) {
	w.header(name, KindAssets)
	w.buf = stdbinary.AppendUvarint(w.buf, uint64(len(assets)))
	for _, a := range assets {
		w.putString(a.Path())
	}
}

func (w *Writer) header(name string, kind Kind) {
	w.putString(name)
	w.buf = append(w.buf, byte(kind))
}

func (w *Writer) putString(s string) {
	w.buf = stdbinary.AppendUvarint(w.buf, uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) putBytes(b []byte) {
	w.buf = stdbinary.AppendUvarint(w.buf, uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) putExport(e Exportable) {
	child := writerPool.Get()
	defer writerPool.Put(child)

	if e != nil {
		e.Export(child)
	}
	w.putBytes(child.buf)
}
