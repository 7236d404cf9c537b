// Package sound provides the playable audio Asset and its loader.
package sound

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Indefinite is the cycle count that loops a sound until it is stopped.
const Indefinite = -1

const resampleQuality = 4

// Sound is a decoded audio clip addressed by its source path.
//
// Setters return the receiver so they can be chained. Speed and volume apply
// to the running playback immediately; the cycle count applies from the next
// Play. Playing a Sound after Cleanup panics.
type Sound struct {
	mu     sync.Mutex
	path   string
	buffer *beep.Buffer
	out    *Output

	speed  float64
	volume float64
	cycles int

	voice    *voice
	released bool
}

// voice is one running playback chain.
type voice struct {
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	gain      *effects.Volume
	finished  atomic.Bool
}

// New wraps buffer as a Sound played through out.
func New(path string, buffer *beep.Buffer, out *Output) *Sound {
	return &Sound{
		path:   path,
		buffer: buffer,
		out:    out,
		speed:  1,
		volume: 1,
		cycles: 1,
	}
}

func (s *Sound) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Duration of a single cycle at normal speed.
func (s *Sound) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer == nil {
		return 0
	}
	return s.buffer.Format().SampleRate.D(s.buffer.Len())
}

func (s *Sound) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

func (s *Sound) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Sound) CycleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

// SetSpeed sets the playback rate multiplier. Rates <= 0 are ignored.
func (s *Sound) SetSpeed(speed float64) *Sound {
	s.mu.Lock()
	defer s.mu.Unlock()
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) || s.released {
		return s
	}
	s.speed = speed
	if v := s.voice; v != nil {
		ratio := s.ratio()
		s.out.do(func() { v.resampler.SetRatio(ratio) })
	}
	return s
}

// SetVolume sets the volume, clamped to [0, 1].
func (s *Sound) SetVolume(volume float64) *Sound {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(volume) || s.released {
		return s
	}
	s.volume = math.Max(0, math.Min(1, volume))
	if v := s.voice; v != nil {
		level, silent := gain(s.volume)
		s.out.do(func() {
			v.gain.Volume = level
			v.gain.Silent = silent
		})
	}
	return s
}

// SetCycleCount sets how many times the sound plays in a row. Counts below 1
// other than Indefinite are ignored.
func (s *Sound) SetCycleCount(count int) *Sound {
	s.mu.Lock()
	defer s.mu.Unlock()
	if (count < 1 && count != Indefinite) || s.released {
		return s
	}
	s.cycles = count
	return s
}

// Play starts playback, restarting it if the sound is already playing. It
// returns immediately; samples are pulled by whoever streams the Output.
func (s *Sound) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		panic("sound: play after cleanup")
	}
	s.stopLocked()

	v := &voice{}
	loop := beep.Loop(s.cycles, s.buffer.Streamer(0, s.buffer.Len()))
	v.resampler = beep.ResampleRatio(resampleQuality, s.ratio(), loop)
	level, silent := gain(s.volume)
	v.gain = &effects.Volume{
		Streamer: beep.Seq(v.resampler, beep.Callback(func() { v.finished.Store(true) })),
		Base:     2,
		Volume:   level,
		Silent:   silent,
	}
	v.ctrl = &beep.Ctrl{Streamer: v.gain}

	s.voice = v
	s.out.add(v.ctrl)
}

// Stop halts playback immediately. It is a no-op when nothing plays or the
// sound has been cleaned up.
func (s *Sound) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Playing reports whether a started playback has not finished or been stopped.
func (s *Sound) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice != nil && !s.voice.finished.Load()
}

// Cleanup stops playback, drops the decoded samples and forgets the path.
// Calling it again is a no-op.
func (s *Sound) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.stopLocked()
	s.buffer = nil
	s.path = ""
	s.released = true
	return nil
}

func (s *Sound) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func (s *Sound) stopLocked() {
	v := s.voice
	if v == nil {
		return
	}
	// A nil Streamer makes the Ctrl report exhaustion, the mixer then drops it.
	s.out.do(func() { v.ctrl.Streamer = nil })
	v.finished.Store(true)
	s.voice = nil
}

func (s *Sound) ratio() float64 {
	return float64(s.buffer.Format().SampleRate) / float64(s.out.SampleRate()) * s.speed
}

func gain(volume float64) (level float64, silent bool) {
	if volume <= 0 {
		return 0, true
	}
	return math.Log2(volume), false
}
