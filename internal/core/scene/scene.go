package scene

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
)

// FormatVersion is written into every scene stream. Streams from a newer
// version are rejected.
const FormatVersion = 1

var ErrUnsupportedVersion = errors.New("scene: unsupported format version")

// Scene is a named collection of entities.
type Scene struct {
	name     string
	entities []*Entity
	registry *Registry
}

type Option func(*Scene)

// WithRegistry resolves component tags with r instead of the built-in set.
func WithRegistry(r *Registry) Option {
	return func(s *Scene) {
		if r != nil {
			s.registry = r
		}
	}
}

func New(name string, opts ...Option) *Scene {
	s := &Scene{name: name, registry: builtins}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scene) Name() string {
	return s.name
}

func (s *Scene) SetName(name string) {
	s.name = name
}

func (s *Scene) Add(entities ...*Entity) {
	s.entities = append(s.entities, entities...)
}

func (s *Scene) Remove(id uuid.UUID) bool {
	for i, e := range s.entities {
		if e.ID() == id {
			s.entities = slices.Delete(s.entities, i, i+1)
			return true
		}
	}
	return false
}

func (s *Scene) Entity(id uuid.UUID) (*Entity, bool) {
	for _, e := range s.entities {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

// Find returns the first entity called name.
func (s *Scene) Find(name string) (*Entity, bool) {
	for _, e := range s.entities {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

func (s *Scene) Entities() []*Entity {
	return slices.Clone(s.entities)
}

func (s *Scene) Len() int {
	return len(s.entities)
}

func (s *Scene) Export(w *binary.Writer) {
	w.WriteUint("version", FormatVersion)
	w.WriteString("name", s.name)

	items := make([]binary.Exportable, len(s.entities))
	for i, e := range s.entities {
		items[i] = e
	}
	w.WriteObjects("entities", items...)
}

func (s *Scene) Insert(r *binary.Reader) error {
	version, err := r.ReadUint("version", FormatVersion)
	if err != nil {
		return err
	}
	if version > FormatVersion {
		return &binary.FormatError{Field: "version", Cause: fmt.Errorf("%w %d", ErrUnsupportedVersion, version)}
	}

	name, err := r.ReadString("name", "")
	if err != nil {
		return err
	}

	registry := s.registry
	if registry == nil {
		registry = builtins
	}

	var entities []*Entity
	err = r.ReadObjects("entities", func(sub *binary.Reader) error {
		e := &Entity{registry: registry}
		if err := e.Insert(sub); err != nil {
			return err
		}
		entities = append(entities, e)
		return nil
	})
	if err != nil {
		return err
	}

	s.name = name
	s.entities = entities
	return nil
}

// Marshal encodes s into a field stream.
func Marshal(s *Scene) []byte {
	return binary.Marshal(s)
}

// Unmarshal decodes a scene, resolving asset references through resolver.
func Unmarshal(ctx context.Context, data []byte, resolver binary.AssetResolver, opts ...Option) (*Scene, error) {
	s := New("", opts...)
	if err := binary.Unmarshal(ctx, data, resolver, s); err != nil {
		return nil, err
	}
	return s, nil
}
