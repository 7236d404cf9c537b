package scene

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
)

var (
	ErrEmptyTag          = errors.New("scene: empty component tag")
	ErrAlreadyRegistered = errors.New("scene: component tag already registered")
	ErrUnknownComponent  = errors.New("scene: unknown component type")
)

// Factory builds a fresh component ready for Insert.
type Factory func() Component

// Registry maps component type tags to factories. Streams can only be read
// back with a registry knowing every tag they contain.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the built-in components.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(TagSimpleObject, func() Component { return &SimpleObjectComponent[any]{} })
	r.MustRegister(TagTransform, func() Component { return NewTransformComponent(0, 0) })
	r.MustRegister(TagAudio, func() Component { return &AudioComponent{} })
	return r
}

var builtins = DefaultRegistry()

func (r *Registry) Register(tag string, f Factory) error {
	if tag == "" {
		return ErrEmptyTag
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[tag]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, tag)
	}
	r.factories[tag] = f
	return nil
}

func (r *Registry) MustRegister(tag string, f Factory) {
	if err := r.Register(tag, f); err != nil {
		panic(err)
	}
}

func (r *Registry) New(tag string) (Component, error) {
	r.mu.RLock()
	f, ok := r.factories[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownComponent, tag)
	}
	return f(), nil
}

// Tags lists the registered tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// envelope frames a component with its type tag. Reading it back resolves
// the tag through registry.
type envelope struct {
	registry  *Registry
	component Component
}

func (e *envelope) Export(w *binary.Writer) {
	w.WriteString("type", e.component.TypeTag())
	w.WriteObject("data", e.component)
}

func (e *envelope) Insert(r *binary.Reader) error {
	tag, err := r.ReadString("type", "")
	if err != nil {
		return err
	}
	c, err := e.registry.New(tag)
	if err != nil {
		return &binary.FormatError{Field: "type", Cause: err}
	}
	if _, err := r.ReadObject("data", c); err != nil {
		return err
	}
	e.component = c
	return nil
}
