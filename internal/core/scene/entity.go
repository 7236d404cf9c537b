package scene

import (
	"slices"

	"github.com/google/uuid"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
)

// Entity owns its components and its optional view.
type Entity struct {
	id         uuid.UUID
	name       string
	components []Component
	view       *EntityView
	registry   *Registry
}

// NewEntity creates an entity with a fresh random ID.
func NewEntity(name string) *Entity {
	return &Entity{id: uuid.New(), name: name}
}

func (e *Entity) ID() uuid.UUID {
	return e.id
}

func (e *Entity) Name() string {
	return e.name
}

func (e *Entity) SetName(name string) {
	e.name = name
}

// UseRegistry sets the registry component tags are resolved with on Insert.
func (e *Entity) UseRegistry(r *Registry) {
	e.registry = r
}

func (e *Entity) AddComponent(c Component) {
	if c == nil {
		return
	}
	e.components = append(e.components, c)
}

// RemoveComponent detaches the first component tagged tag.
func (e *Entity) RemoveComponent(tag string) (Component, bool) {
	for i, c := range e.components {
		if c.TypeTag() == tag {
			e.components = slices.Delete(e.components, i, i+1)
			return c, true
		}
	}
	return nil, false
}

// Component returns the first component tagged tag.
func (e *Entity) Component(tag string) (Component, bool) {
	for _, c := range e.components {
		if c.TypeTag() == tag {
			return c, true
		}
	}
	return nil, false
}

func (e *Entity) Components() []Component {
	return slices.Clone(e.components)
}

// View returns the entity view, nil when the entity displays nothing.
func (e *Entity) View() *EntityView {
	return e.view
}

func (e *Entity) SetView(v *EntityView) {
	e.view = v
}

// ComponentOf returns the first component of type T attached to e.
func ComponentOf[T Component](e *Entity) (T, bool) {
	for _, c := range e.components {
		if typed, ok := c.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

func (e *Entity) Export(w *binary.Writer) {
	w.WriteString("id", e.id.String())
	w.WriteString("name", e.name)

	envelopes := make([]binary.Exportable, len(e.components))
	for i, c := range e.components {
		envelopes[i] = &envelope{component: c}
	}
	w.WriteObjects("components", envelopes...)

	if e.view != nil {
		w.WriteObject("view", e.view)
	}
}

// Insert replaces the entity with the persisted one. A stream without an id
// gets a fresh one.
func (e *Entity) Insert(r *binary.Reader) error {
	registry := e.registry
	if registry == nil {
		registry = builtins
	}

	rawID, err := r.ReadString("id", "")
	if err != nil {
		return err
	}
	id := uuid.New()
	if rawID != "" {
		if id, err = uuid.Parse(rawID); err != nil {
			return &binary.FormatError{Field: "id", Cause: err}
		}
	}

	name, err := r.ReadString("name", "")
	if err != nil {
		return err
	}

	var components []Component
	err = r.ReadObjects("components", func(sub *binary.Reader) error {
		env := &envelope{registry: registry}
		if err := env.Insert(sub); err != nil {
			return err
		}
		components = append(components, env.component)
		return nil
	})
	if err != nil {
		return err
	}

	var view *EntityView
	if r.Has("view") {
		view = NewEntityView()
		if _, err := r.ReadObject("view", view); err != nil {
			return err
		}
	}

	e.id = id
	e.name = name
	e.components = components
	e.view = view
	return nil
}
