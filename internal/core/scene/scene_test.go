package scene

import (
	"context"
	"errors"
	"testing"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemy-engine/alchemy/internal/core/asset"
	"github.com/alchemy-engine/alchemy/internal/core/asset/sound"
	"github.com/alchemy-engine/alchemy/internal/core/binary"
)

func TestSimpleObjectComponent(t *testing.T) {
	c := NewSimpleObjectComponent("payload")
	c.SetEnabled(false)
	assert.Equal(t, "Object: payload", c.String())
	assert.Equal(t, TagSimpleObject, c.TypeTag())

	var restored SimpleObjectComponent[string]
	require.NoError(t, binary.Unmarshal(context.Background(), binary.Marshal(c), nil, &restored))
	assert.False(t, restored.Enabled())
	assert.Empty(t, restored.Object())
}

func TestTransformRoundTrip(t *testing.T) {
	tr := NewTransformComponent(3, -4)
	tr.Rotation = 90
	tr.ScaleY = 2

	var restored TransformComponent
	require.NoError(t, binary.Unmarshal(context.Background(), binary.Marshal(tr), nil, &restored))
	assert.Equal(t, *tr, restored)
}

func TestTransformDefaultsForMissingFields(t *testing.T) {
	var restored TransformComponent
	require.NoError(t, binary.Unmarshal(context.Background(), nil, nil, &restored))
	assert.Equal(t, 1.0, restored.ScaleX)
	assert.Equal(t, 1.0, restored.ScaleY)
	assert.True(t, restored.Enabled())
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{TagAudio, TagSimpleObject, TagTransform}, r.Tags())

	assert.ErrorIs(t, r.Register(TagTransform, func() Component { return &TransformComponent{} }), ErrAlreadyRegistered)
	assert.ErrorIs(t, r.Register("", nil), ErrEmptyTag)

	_, err := r.New("nope")
	assert.ErrorIs(t, err, ErrUnknownComponent)
}

type health struct {
	BaseComponent
	points int64
}

func (h *health) TypeTag() string { return "health" }

func (h *health) Export(w *binary.Writer) {
	h.BaseComponent.Export(w)
	w.WriteInt("points", h.points)
}

func (h *health) Insert(r *binary.Reader) error {
	var base BaseComponent
	if err := base.Insert(r); err != nil {
		return err
	}
	points, err := r.ReadInt("points", 100)
	if err != nil {
		return err
	}
	h.BaseComponent, h.points = base, points
	return nil
}

func TestSceneRoundTrip(t *testing.T) {
	registry := DefaultRegistry()
	registry.MustRegister("health", func() Component { return &health{} })

	hero := NewEntity("hero")
	hero.AddComponent(NewTransformComponent(10, 20))
	hero.AddComponent(&health{points: 42})
	view := NewEntityView()
	view.AddTextures(newTexture("tex/hero.png"), newTexture("tex/hero_shadow.png"))
	view.AddNode(NewCircle(3))
	hero.SetView(view)

	marker := NewEntity("marker")
	marker.AddComponent(NewSimpleObjectComponent(struct{}{}))

	s := New("level-1", WithRegistry(registry))
	s.Add(hero, marker)

	cache := textureCache(t)
	restored, err := Unmarshal(context.Background(), Marshal(s), cache, WithRegistry(registry))
	require.NoError(t, err)

	assert.Equal(t, "level-1", restored.Name())
	require.Equal(t, 2, restored.Len())

	gotHero, ok := restored.Entity(hero.ID())
	require.True(t, ok)
	assert.Equal(t, "hero", gotHero.Name())
	require.Len(t, gotHero.Components(), 2)

	tr, ok := ComponentOf[*TransformComponent](gotHero)
	require.True(t, ok)
	assert.Equal(t, 10.0, tr.X)

	hp, ok := gotHero.Component("health")
	require.True(t, ok)
	assert.Equal(t, int64(42), hp.(*health).points)

	require.NotNil(t, gotHero.View())
	assert.Equal(t, []string{"tex/hero.png", "tex/hero_shadow.png"}, texturePaths(gotHero.View().Nodes()))

	gotMarker, ok := restored.Find("marker")
	require.True(t, ok)
	assert.Nil(t, gotMarker.View())
	_, ok = gotMarker.Component(TagSimpleObject)
	assert.True(t, ok)
}

func TestUnknownComponentFailsInsert(t *testing.T) {
	registry := DefaultRegistry()
	registry.MustRegister("health", func() Component { return &health{} })

	e := NewEntity("hero")
	e.AddComponent(&health{points: 1})
	s := New("level", WithRegistry(registry))
	s.Add(e)
	data := Marshal(s)

	target := New("untouched")
	err := binary.Unmarshal(context.Background(), data, nil, target)
	var fe *binary.FormatError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, ErrUnknownComponent)
	assert.Equal(t, "untouched", target.Name())
	assert.Zero(t, target.Len())
}

func TestNewerVersionIsRejected(t *testing.T) {
	w := binary.NewWriter()
	w.WriteUint("version", FormatVersion+1)

	_, err := Unmarshal(context.Background(), w.Bytes(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestEntityComponents(t *testing.T) {
	e := NewEntity("hero")
	e.AddComponent(nil)
	e.AddComponent(NewTransformComponent(0, 0))
	e.AddComponent(NewAudioComponent())

	_, ok := e.RemoveComponent(TagTransform)
	assert.True(t, ok)
	_, ok = e.RemoveComponent(TagTransform)
	assert.False(t, ok)
	assert.Len(t, e.Components(), 1)

	s := New("s")
	s.Add(e)
	assert.True(t, s.Remove(e.ID()))
	assert.False(t, s.Remove(e.ID()))
}

// constant fills a beep buffer with frames of silence.
type constant struct{ n int }

func (c *constant) Stream(samples [][2]float64) (int, bool) {
	if c.n <= 0 {
		return 0, false
	}
	n := min(c.n, len(samples))
	for i := 0; i < n; i++ {
		samples[i] = [2]float64{}
	}
	c.n -= n
	return n, true
}

func (c *constant) Err() error { return nil }

func newSound(path string, out *sound.Output) *sound.Sound {
	buffer := beep.NewBuffer(beep.Format{SampleRate: 8000, NumChannels: 2, Precision: 2})
	buffer.Append(&constant{n: 80})
	return sound.New(path, buffer, out)
}

func TestAudioComponentResolvesSoundsThroughCache(t *testing.T) {
	out := sound.NewOutput(8000)
	cache := asset.NewCache(asset.LoaderFunc(func(ctx context.Context, path string) (asset.Asset, error) {
		return nil, errors.New("not on disk")
	}))
	jump := newSound("snd/jump.wav", out)
	land := newSound("snd/land.wav", out)
	require.NoError(t, cache.Put(jump))
	require.NoError(t, cache.Put(land))

	c := NewAudioComponent(jump, land)
	c.SetAutoplay(true)

	var restored AudioComponent
	require.NoError(t, binary.Unmarshal(context.Background(), binary.Marshal(c), cache, &restored))
	assert.True(t, restored.Autoplay())
	require.Len(t, restored.Sounds(), 2)
	assert.Same(t, jump, restored.Sounds()[0])
	assert.Same(t, land, restored.Sounds()[1])

	restored.PlayAll()
	assert.True(t, jump.Playing())
	restored.StopAll()
	assert.False(t, jump.Playing())
}

func TestAudioComponentRejectsOtherAssetTypes(t *testing.T) {
	tex := newTexture("tex/hero.png")
	cache := asset.NewCache(asset.LoaderFunc(func(ctx context.Context, path string) (asset.Asset, error) {
		return nil, errors.New("not on disk")
	}))
	require.NoError(t, cache.Put(tex))

	w := binary.NewWriter()
	w.WriteAssetArray("sounds", []asset.Asset{tex})

	var c AudioComponent
	err := binary.Unmarshal(context.Background(), w.Bytes(), cache, &c)
	assert.ErrorIs(t, err, binary.ErrAssetType)
}
