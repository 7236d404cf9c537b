// Package scene holds the persisted scene model: entities, the components
// attached to them and the views listing what they display.
package scene

import (
	"fmt"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
)

// Component is the smallest persistable unit attached to an Entity.
//
// TypeTag names the concrete type in a stream; it must be registered in the
// Registry used to read the stream back.
type Component interface {
	binary.Exportable
	TypeTag() string
}

// BaseComponent carries the state shared by every component. Concrete
// components embed it and export it before their own fields.
type BaseComponent struct {
	disabled bool
}

func (b *BaseComponent) Enabled() bool {
	return !b.disabled
}

func (b *BaseComponent) SetEnabled(enabled bool) {
	b.disabled = !enabled
}

func (b *BaseComponent) Export(w *binary.Writer) {
	w.WriteBool("disabled", b.disabled)
}

func (b *BaseComponent) Insert(r *binary.Reader) error {
	disabled, err := r.ReadBool("disabled", false)
	if err != nil {
		return err
	}
	b.disabled = disabled
	return nil
}

const TagSimpleObject = "simple_object"

// SimpleObjectComponent owns one opaque value. Only the base state is
// persisted; the value's own persistence, if any, is up to its type.
type SimpleObjectComponent[T any] struct {
	BaseComponent
	object T
}

func NewSimpleObjectComponent[T any](object T) *SimpleObjectComponent[T] {
	return &SimpleObjectComponent[T]{object: object}
}

func (c *SimpleObjectComponent[T]) Object() T {
	return c.object
}

func (c *SimpleObjectComponent[T]) SetObject(object T) {
	c.object = object
}

func (c *SimpleObjectComponent[T]) TypeTag() string {
	return TagSimpleObject
}

func (c *SimpleObjectComponent[T]) String() string {
	return fmt.Sprintf("Object: %v", c.object)
}
