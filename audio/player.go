package audio

import (
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep"
)

// DefaultMaxPerFrame caps cues started in one frame
const DefaultMaxPerFrame = 4

// CuePlayer mixes active cues; the speaker pulls from it on its own goroutine
// Play is called from the frame, Stream from the audio callback, so both lock
type CuePlayer struct {
	mu     sync.Mutex
	mixer  beep.Mixer
	rate   beep.SampleRate
	volume float64
	muted  atomic.Bool

	maxPerFrame int
	frameCount  int
}

// NewCuePlayer creates a player; volume is linear in [0, 1]
func NewCuePlayer(rate beep.SampleRate, volume float64, maxPerFrame int) *CuePlayer {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if maxPerFrame <= 0 {
		maxPerFrame = DefaultMaxPerFrame
	}
	return &CuePlayer{rate: rate, volume: min(max(volume, 0), 1), maxPerFrame: maxPerFrame}
}

// SampleRate returns the output rate
func (p *CuePlayer) SampleRate() beep.SampleRate {
	return p.rate
}

// Play starts a cue; false when muted, over the frame cap or unknown
func (p *CuePlayer) Play(kind CueKind) bool {
	if p.muted.Load() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frameCount >= p.maxPerFrame {
		return false
	}
	s := NewCue(kind, p.volume, p.rate)
	if s == nil {
		return false
	}
	p.mixer.Add(s)
	p.frameCount++
	return true
}

// BeginFrame resets the per-frame cap
func (p *CuePlayer) BeginFrame() {
	p.mu.Lock()
	p.frameCount = 0
	p.mu.Unlock()
}

// Active returns the number of cues still sounding
func (p *CuePlayer) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mixer.Len()
}

// SetMuted silences new cues and drops active ones
func (p *CuePlayer) SetMuted(m bool) {
	p.muted.Store(m)
	if m {
		p.mu.Lock()
		p.mixer.Clear()
		p.mu.Unlock()
	}
}

// IsMuted reports the mute state
func (p *CuePlayer) IsMuted() bool {
	return p.muted.Load()
}

// Stream implements beep.Streamer; it never drains so the speaker keeps pulling silence
func (p *CuePlayer) Stream(samples [][2]float64) (n int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mixer.Len() == 0 {
		for i := range samples {
			samples[i] = [2]float64{}
		}
		return len(samples), true
	}
	return p.mixer.Stream(samples)
}

// Err implements beep.Streamer
func (p *CuePlayer) Err() error { return nil }
