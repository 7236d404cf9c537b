package scene

import (
	"github.com/alchemy-engine/alchemy/internal/core/asset/sound"
	"github.com/alchemy-engine/alchemy/internal/core/binary"
)

const TagAudio = "audio"

// AudioComponent references the sounds an entity can emit. The sounds are
// owned by the asset cache.
type AudioComponent struct {
	BaseComponent
	sounds   []*sound.Sound
	autoplay bool
}

func NewAudioComponent(sounds ...*sound.Sound) *AudioComponent {
	return &AudioComponent{sounds: sounds}
}

func (c *AudioComponent) TypeTag() string {
	return TagAudio
}

func (c *AudioComponent) Sounds() []*sound.Sound {
	return append([]*sound.Sound(nil), c.sounds...)
}

func (c *AudioComponent) AddSound(s *sound.Sound) {
	c.sounds = append(c.sounds, s)
}

func (c *AudioComponent) Autoplay() bool {
	return c.autoplay
}

func (c *AudioComponent) SetAutoplay(autoplay bool) {
	c.autoplay = autoplay
}

// PlayAll starts every referenced sound unless the component is disabled.
func (c *AudioComponent) PlayAll() {
	if !c.Enabled() {
		return
	}
	for _, s := range c.sounds {
		s.Play()
	}
}

func (c *AudioComponent) StopAll() {
	for _, s := range c.sounds {
		s.Stop()
	}
}

func (c *AudioComponent) Export(w *binary.Writer) {
	c.BaseComponent.Export(w)
	binary.WriteAssets(w, "sounds", c.sounds)
	w.WriteBool("autoplay", c.autoplay)
}

func (c *AudioComponent) Insert(r *binary.Reader) error {
	var base BaseComponent
	if err := base.Insert(r); err != nil {
		return err
	}
	sounds, err := binary.ReadAssets[*sound.Sound](r, "sounds", nil)
	if err != nil {
		return err
	}
	autoplay, err := r.ReadBool("autoplay", false)
	if err != nil {
		return err
	}

	c.BaseComponent = base
	c.sounds = sounds
	c.autoplay = autoplay
	return nil
}
