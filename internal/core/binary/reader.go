package binary

import (
	"context"
	"fmt"

	"github.com/alchemy-engine/alchemy/internal/core/asset"
)

// AssetResolver turns a stored path back into a live asset. *asset.Cache
// satisfies it.
type AssetResolver interface {
	GetOrLoad(ctx context.Context, path string) (asset.Asset, error)
}

type field struct {
	kind    Kind
	payload []byte
}

// FieldInfo describes one field of a stream.
type FieldInfo struct {
	Name string
	Kind Kind
	Size int
}

// Reader gives by-name access to the fields of one stream level. Nested
// objects get their own Reader sharing the context and resolver.
//
// Resolving asset arrays is the only side effect of reading; it may block on
// loads and fail with the loader's *asset.LoadError.
type Reader struct {
	ctx      context.Context
	resolver AssetResolver
	fields   map[string]field
	order    []string
}

// NewReader indexes the top level of data. Structural damage is reported
// here as a *FormatError; nested streams are checked when they are read.
func NewReader(ctx context.Context, data []byte, resolver AssetResolver) (*Reader, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	r := &Reader{
		ctx:      ctx,
		resolver: resolver,
		fields:   make(map[string]field),
	}
	if err := r.index(data); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) index(data []byte) error {
	c := &cursor{data: data}
	for !c.done() {
		name, err := c.readString()
		if err != nil {
			return &FormatError{Cause: err}
		}
		b, err := c.readByte()
		if err != nil {
			return &FormatError{Field: name, Cause: err}
		}
		kind := Kind(b)
		if !kind.valid() {
			return &FormatError{Field: name, Cause: fmt.Errorf("%w %d", ErrUnknownKind, b)}
		}

		start := c.off
		if err := c.skip(kind); err != nil {
			return &FormatError{Field: name, Cause: err}
		}
		if _, seen := r.fields[name]; !seen {
			r.order = append(r.order, name)
		}
		r.fields[name] = field{kind: kind, payload: data[start:c.off]}
	}
	return nil
}

// Context is the context asset loads triggered by this reader run under.
func (r *Reader) Context() context.Context {
	return r.ctx
}

func (r *Reader) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Fields lists the fields of this level in first-written order.
func (r *Reader) Fields() []FieldInfo {
	out := make([]FieldInfo, 0, len(r.order))
	for _, name := range r.order {
		f := r.fields[name]
		out = append(out, FieldInfo{Name: name, Kind: f.kind, Size: len(f.payload)})
	}
	return out
}

func (r *Reader) lookup(name string, want Kind) (*cursor, bool, error) {
	f, ok := r.fields[name]
	if !ok {
		return nil, false, nil
	}
	if f.kind != want {
		return nil, false, &FormatError{Field: name, Want: want, Got: f.kind, Cause: ErrKindMismatch}
	}
	return &cursor{data: f.payload}, true, nil
}

func (r *Reader) ReadBool(name string, def bool) (bool, error) {
	c, ok, err := r.lookup(name, KindBool)
	if !ok {
		return def, err
	}
	b, err := c.readByte()
	if err != nil {
		return def, &FormatError{Field: name, Cause: err}
	}
	return b != 0, nil
}

func (r *Reader) ReadInt(name string, def int64) (int64, error) {
	c, ok, err := r.lookup(name, KindInt)
	if !ok {
		return def, err
	}
	v, err := c.varint()
	if err != nil {
		return def, &FormatError{Field: name, Cause: err}
	}
	return v, nil
}

func (r *Reader) ReadUint(name string, def uint64) (uint64, error) {
	c, ok, err := r.lookup(name, KindUint)
	if !ok {
		return def, err
	}
	v, err := c.uvarint()
	if err != nil {
		return def, &FormatError{Field: name, Cause: err}
	}
	return v, nil
}

func (r *Reader) ReadFloat(name string, def float64) (float64, error) {
	c, ok, err := r.lookup(name, KindFloat)
	if !ok {
		return def, err
	}
	v, err := c.float()
	if err != nil {
		return def, &FormatError{Field: name, Cause: err}
	}
	return v, nil
}

func (r *Reader) ReadString(name, def string) (string, error) {
	c, ok, err := r.lookup(name, KindString)
	if !ok {
		return def, err
	}
	v, err := c.readString()
	if err != nil {
		return def, &FormatError{Field: name, Cause: err}
	}
	return v, nil
}

// ReadBytes returns a copy of the stored bytes.
func (r *Reader) ReadBytes(name string, def []byte) ([]byte, error) {
	c, ok, err := r.lookup(name, KindBytes)
	if !ok {
		return def, err
	}
	v, err := c.chunk()
	if err != nil {
		return def, &FormatError{Field: name, Cause: err}
	}
	return append([]byte(nil), v...), nil
}

func (r *Reader) ReadStrings(name string, def []string) ([]string, error) {
	c, ok, err := r.lookup(name, KindStrings)
	if !ok {
		return def, err
	}
	return readStrings(name, c)
}

func readStrings(name string, c *cursor) ([]string, error) {
	n, err := c.count()
	if err != nil {
		return nil, &FormatError{Field: name, Cause: err}
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = c.readString(); err != nil {
			return nil, &FormatError{Field: name, Cause: err}
		}
	}
	return out, nil
}

// ReadObject inserts the nested stream stored under name into target. It
// reports false without touching target when the field is absent.
func (r *Reader) ReadObject(name string, target Exportable) (bool, error) {
	c, ok, err := r.lookup(name, KindObject)
	if !ok {
		return false, err
	}
	sub, err := r.nested(name, c)
	if err != nil {
		return false, err
	}
	if err := target.Insert(sub); err != nil {
		return false, err
	}
	return true, nil
}

// ReadObjects calls fn with a Reader for every stream stored under name, in
// written order. An absent field calls fn zero times.
func (r *Reader) ReadObjects(name string, fn func(r *Reader) error) error {
	c, ok, err := r.lookup(name, KindObjects)
	if !ok {
		return err
	}
	n, err := c.count()
	if err != nil {
		return &FormatError{Field: name, Cause: err}
	}
	for i := 0; i < n; i++ {
		sub, err := r.nested(name, c)
		if err != nil {
			return err
		}
		if err := fn(sub); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) nested(name string, c *cursor) (*Reader, error) {
	data, err := c.chunk()
	if err != nil {
		return nil, &FormatError{Field: name, Cause: err}
	}
	return NewReader(r.ctx, data, r.resolver)
}

// ReadAssetPaths returns the stored paths of an asset array without
// resolving them.
func (r *Reader) ReadAssetPaths(name string) ([]string, error) {
	c, ok, err := r.lookup(name, KindAssets)
	if !ok {
		return nil, err
	}
	return readStrings(name, c)
}

// ReadAssetArray resolves every path stored under name, in order. Cold paths
// are loaded, warm ones are shared. When the field is absent or empty def is
// returned unchanged.
func (r *Reader) ReadAssetArray(name string, def []asset.Asset) ([]asset.Asset, error) {
	paths, err := r.ReadAssetPaths(name)
	if err != nil {
		return def, err
	}
	if len(paths) == 0 {
		return def, nil
	}
	if r.resolver == nil {
		return def, &FormatError{Field: name, Cause: ErrNoResolver}
	}

	out := make([]asset.Asset, len(paths))
	for i, p := range paths {
		a, err := r.resolver.GetOrLoad(r.ctx, p)
		if err != nil {
			return def, err
		}
		out[i] = a
	}
	return out, nil
}

// ReadAssets is ReadAssetArray for a concrete asset type. A resolved asset
// of another type is a *FormatError.
func ReadAssets[T asset.Asset](r *Reader, name string, def []T) ([]T, error) {
	assets, err := r.ReadAssetArray(name, nil)
	if err != nil {
		return def, err
	}
	if len(assets) == 0 {
		return def, nil
	}

	out := make([]T, len(assets))
	for i, a := range assets {
		typed, ok := a.(T)
		if !ok {
			return def, &FormatError{Field: name, Cause: fmt.Errorf("%w %T for %q", ErrAssetType, a, a.Path())}
		}
		out[i] = typed
	}
	return out, nil
}
