// Package audio turns physics contact events into short synthesized cues for client mode
package audio

import (
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

// DefaultSampleRate is the mixer output rate
const DefaultSampleRate = beep.SampleRate(44100)

// CueKind selects one of the built-in cues
type CueKind uint8

const (
	CueCollision CueKind = iota
	CueTriggerEnter
	CueTriggerExit
	cueCount
)

func (k CueKind) String() string {
	switch k {
	case CueCollision:
		return "collision"
	case CueTriggerEnter:
		return "trigger_enter"
	case CueTriggerExit:
		return "trigger_exit"
	}
	return "unknown"
}

// Cue durations and envelope times
const (
	collisionDuration = 60 * time.Millisecond
	collisionAttack   = 2 * time.Millisecond
	collisionRelease  = 40 * time.Millisecond

	enterNoteDuration = 70 * time.Millisecond
	enterAttack       = 5 * time.Millisecond
	enterRelease      = 50 * time.Millisecond

	exitDuration = 120 * time.Millisecond
	exitAttack   = 10 * time.Millisecond
	exitRelease  = 90 * time.Millisecond
)

// Wave shapes
type wave uint8

const (
	waveSine wave = iota
	waveSquare
	waveSaw
	waveNoise
)

// oscillator is a fixed-length periodic or noise source
type oscillator struct {
	freq     float64
	phase    float64
	length   int
	position int
	wave     wave
	rate     beep.SampleRate
}

func newOscillator(freq float64, d time.Duration, w wave, rate beep.SampleRate) beep.Streamer {
	return &oscillator{freq: freq, length: rate.N(d), wave: w, rate: rate}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.length {
			return i, i > 0
		}
		var v float64
		switch o.wave {
		case waveSine:
			v = math.Sin(2 * math.Pi * o.phase)
		case waveSquare:
			v = -1
			if o.phase < 0.5 {
				v = 1
			}
		case waveSaw:
			v = 2 * (o.phase - 0.5)
		case waveNoise:
			v = rand.Float64()*2 - 1
		}
		samples[i][0], samples[i][1] = v, v

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// envelope applies a linear attack and release over a fixed length
type envelope struct {
	streamer beep.Streamer
	position int
	attack   int
	release  int
	total    int
}

func newEnvelope(s beep.Streamer, d, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	total := rate.N(d)
	att, rel := rate.N(attack), rate.N(release)
	if att+rel > total {
		rel = max(total-att, 0)
	}
	return &envelope{streamer: beep.Take(total, s), attack: att, release: rel, total: total}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)
	releaseStart := e.total - e.release
	for i := 0; i < n; i++ {
		gain := 1.0
		if e.position < e.attack {
			gain = float64(e.position) / float64(e.attack)
		} else if e.position >= releaseStart && e.release > 0 {
			gain = float64(e.total-e.position) / float64(e.release)
		}
		samples[i][0] *= gain
		samples[i][1] *= gain
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

// newVolume scales linearly; vol <= 0 is silent since log2(0) is -Inf
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 || math.IsNaN(vol) {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// NewCue builds a fresh streamer for kind at the given linear volume; nil for unknown kinds
func NewCue(kind CueKind, volume float64, rate beep.SampleRate) beep.Streamer {
	switch kind {
	case CueCollision:
		// low thud: saw body under a noise click
		body := newEnvelope(newOscillator(110, collisionDuration, waveSaw, rate),
			collisionDuration, collisionAttack, collisionRelease, rate)
		click := newEnvelope(newOscillator(0, collisionDuration/3, waveNoise, rate),
			collisionDuration/3, 0, collisionDuration/4, rate)
		mixed := beep.Take(rate.N(collisionDuration), beep.Mix(newVolume(body, 0.7), newVolume(click, 0.3)))
		return newVolume(mixed, volume)

	case CueTriggerEnter:
		// rising two-note chime
		lo, err := generators.SineTone(rate, 659.25)
		if err != nil {
			return nil
		}
		hi := newOscillator(987.77, enterNoteDuration, waveSquare, rate)
		seq := beep.Seq(
			newEnvelope(lo, enterNoteDuration, enterAttack, enterRelease, rate),
			newVolume(newEnvelope(hi, enterNoteDuration, enterAttack, enterRelease, rate), 0.4),
		)
		return newVolume(seq, volume)

	case CueTriggerExit:
		tone := newEnvelope(newOscillator(440, exitDuration, waveSine, rate),
			exitDuration, exitAttack, exitRelease, rate)
		return newVolume(tone, volume*0.8)
	}
	return nil
}
