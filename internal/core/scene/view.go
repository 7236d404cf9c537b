package scene

import (
	"image"
	"slices"

	"github.com/alchemy-engine/alchemy/internal/core/asset/texture"
	"github.com/alchemy-engine/alchemy/internal/core/binary"
)

// EntityView is the visual bag of an Entity.
//
// It keeps two collections: every node in display order, and the ordered
// subset backed by texture assets. Only the textures are persisted, by path;
// constructed shapes have to be rebuilt by the application after a load.
// Textures are owned by the asset cache, the view never cleans them up.
type EntityView struct {
	nodes    []Node
	textures []*texture.Texture
}

func NewEntityView() *EntityView {
	return &EntityView{}
}

// AddNode appends n to the display order. A *texture.Texture is routed to
// AddTexture so it is persisted like any other texture.
func (v *EntityView) AddNode(n Node) {
	if t, ok := n.(*texture.Texture); ok {
		v.AddTexture(t)
		return
	}
	if a, ok := n.(attachable); ok {
		a.attached()
	}
	v.nodes = append(v.nodes, n)
}

func (v *EntityView) AddNodes(nodes ...Node) {
	for _, n := range nodes {
		v.AddNode(n)
	}
}

// AddTexture appends a texture asset to both the node sequence and the
// persisted texture list.
func (v *EntityView) AddTexture(t *texture.Texture) {
	v.nodes = append(v.nodes, t)
	v.textures = append(v.textures, t)
}

func (v *EntityView) AddTextures(textures ...*texture.Texture) {
	for _, t := range textures {
		v.AddTexture(t)
	}
}

// RemoveNode detaches the first occurrence of n. It reports whether n was
// attached.
func (v *EntityView) RemoveNode(n Node) bool {
	idx := slices.Index(v.nodes, n)
	if idx < 0 {
		return false
	}
	v.nodes = slices.Delete(v.nodes, idx, idx+1)

	for i, t := range v.textures {
		if Node(t) == n {
			v.textures = slices.Delete(v.textures, i, i+1)
			break
		}
	}
	return true
}

// Clear detaches every node without releasing any asset.
func (v *EntityView) Clear() {
	v.nodes = nil
	v.textures = nil
}

func (v *EntityView) Nodes() []Node {
	return slices.Clone(v.nodes)
}

func (v *EntityView) Textures() []*texture.Texture {
	return slices.Clone(v.textures)
}

func (v *EntityView) Size() int {
	return len(v.nodes)
}

// Bounds is the union of the bounds of all nodes.
func (v *EntityView) Bounds() image.Rectangle {
	var r image.Rectangle
	for _, n := range v.nodes {
		r = r.Union(n.Bounds())
	}
	return r
}

func (v *EntityView) Export(w *binary.Writer) {
	binary.WriteAssets(w, "views", v.textures)
}

// Insert replaces the view content with the persisted textures, resolved
// through the reader's asset resolver in their stored order.
func (v *EntityView) Insert(r *binary.Reader) error {
	textures, err := binary.ReadAssets[*texture.Texture](r, "views", nil)
	if err != nil {
		return err
	}

	nodes := make([]Node, len(textures))
	for i, t := range textures {
		nodes[i] = t
	}
	v.nodes = nodes
	v.textures = textures
	return nil
}
