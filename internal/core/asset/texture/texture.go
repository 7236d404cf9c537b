// Package texture provides the image-backed Asset displayed by entity views.
package texture

import (
	"image"
	"sync"
)

// Texture is a decoded image addressed by its source path.
//
// The Cache owns a Texture; views only hold references to it. Cleanup drops
// the pixel data and the path, the bounds stay readable.
type Texture struct {
	mu       sync.RWMutex
	path     string
	img      image.Image
	bounds   image.Rectangle
	released bool
}

func New(path string, img image.Image) *Texture {
	t := &Texture{path: path, img: img}
	if img != nil {
		b := img.Bounds()
		t.bounds = image.Rect(0, 0, b.Dx(), b.Dy())
	}
	return t
}

func (t *Texture) Path() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.path
}

// Image returns the decoded pixels, or nil once the texture is released.
func (t *Texture) Image() image.Image {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.img
}

// Bounds is the texture rectangle anchored at the origin.
func (t *Texture) Bounds() image.Rectangle {
	return t.bounds
}

func (t *Texture) Width() int  { return t.bounds.Dx() }
func (t *Texture) Height() int { return t.bounds.Dy() }

func (t *Texture) Released() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.released
}

func (t *Texture) Cleanup() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil
	}
	t.img = nil
	t.path = ""
	t.released = true
	return nil
}

func (t *Texture) String() string {
	return "Texture(" + t.Path() + ")"
}
