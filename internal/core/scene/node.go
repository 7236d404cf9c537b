package scene

import (
	"fmt"
	"image"
	"math"
)

// Node is a visual element handed to the rendering host.
type Node interface {
	Bounds() image.Rectangle
}

// attachable nodes adjust themselves when added to a view.
type attachable interface {
	attached()
}

// Circle is a constructed shape. It is never persisted.
type Circle struct {
	CenterX, CenterY float64
	Radius           float64
}

func NewCircle(radius float64) *Circle {
	return &Circle{Radius: radius}
}

// attached anchors the circle so its bounding box starts at the view origin.
func (c *Circle) attached() {
	c.CenterX = c.Radius
	c.CenterY = c.Radius
}

func (c *Circle) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(c.CenterX-c.Radius)),
		int(math.Floor(c.CenterY-c.Radius)),
		int(math.Ceil(c.CenterX+c.Radius)),
		int(math.Ceil(c.CenterY+c.Radius)),
	)
}

func (c *Circle) String() string {
	return fmt.Sprintf("Circle(r=%g)", c.Radius)
}

// Rectangle is a constructed shape. It is never persisted.
type Rectangle struct {
	X, Y          float64
	Width, Height float64
}

func NewRectangle(width, height float64) *Rectangle {
	return &Rectangle{Width: width, Height: height}
}

func (r *Rectangle) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)),
		int(math.Ceil(r.Y+r.Height)),
	)
}

func (r *Rectangle) String() string {
	return fmt.Sprintf("Rectangle(%gx%g)", r.Width, r.Height)
}
