package sound

import (
	"sync"

	"github.com/gopxl/beep"
)

// Output mixes every playing Sound into one stream.
//
// Output is itself a beep.Streamer: a host hands it to its audio device
// (speaker.Play, an offline encoder, a test harness) and pulls samples from it.
// All mutation of playing chains happens under the Output lock so that the
// device goroutine never observes a half-updated chain.
type Output struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	mixer      beep.Mixer
}

func NewOutput(sampleRate beep.SampleRate) *Output {
	return &Output{sampleRate: sampleRate}
}

func (o *Output) SampleRate() beep.SampleRate {
	return o.sampleRate
}

func (o *Output) Stream(samples [][2]float64) (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mixer.Stream(samples)
}

func (o *Output) Err() error {
	return nil
}

// Voices is the number of chains still attached to the mixer.
func (o *Output) Voices() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mixer.Len()
}

// Clear silences and detaches every chain.
func (o *Output) Clear() {
	o.mu.Lock()
	o.mixer.Clear()
	o.mu.Unlock()
}

func (o *Output) add(s beep.Streamer) {
	o.mu.Lock()
	o.mixer.Add(s)
	o.mu.Unlock()
}

func (o *Output) do(fn func()) {
	o.mu.Lock()
	fn()
	o.mu.Unlock()
}
