package scene

import "github.com/alchemy-engine/alchemy/internal/core/binary"

const TagTransform = "transform"

// TransformComponent places an entity in the scene.
type TransformComponent struct {
	BaseComponent
	X, Y     float64
	Rotation float64
	ScaleX   float64
	ScaleY   float64
}

func NewTransformComponent(x, y float64) *TransformComponent {
	return &TransformComponent{X: x, Y: y, ScaleX: 1, ScaleY: 1}
}

func (c *TransformComponent) TypeTag() string {
	return TagTransform
}

func (c *TransformComponent) Export(w *binary.Writer) {
	c.BaseComponent.Export(w)
	w.WriteFloat("x", c.X)
	w.WriteFloat("y", c.Y)
	w.WriteFloat("rotation", c.Rotation)
	w.WriteFloat("scale_x", c.ScaleX)
	w.WriteFloat("scale_y", c.ScaleY)
}

func (c *TransformComponent) Insert(r *binary.Reader) error {
	next := TransformComponent{}
	if err := next.BaseComponent.Insert(r); err != nil {
		return err
	}

	fields := []struct {
		name string
		dst  *float64
		def  float64
	}{
		{"x", &next.X, 0},
		{"y", &next.Y, 0},
		{"rotation", &next.Rotation, 0},
		{"scale_x", &next.ScaleX, 1},
		{"scale_y", &next.ScaleY, 1},
	}
	for _, f := range fields {
		v, err := r.ReadFloat(f.name, f.def)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	*c = next
	return nil
}
