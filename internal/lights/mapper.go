// Package lights maps smoothed band levels to output channel intensities.
package lights

import (
	"math"

	"github.com/glowlab/glowsync/internal/beat"
	"github.com/glowlab/glowsync/internal/dsp"
)

// Frame is one output frame: five channel intensities in the fixed order
// [vocals chord snares claps bass], each in [0, 255].
type Frame [5]int

// Channel indices within a Frame.
const (
	ChVocals = iota
	ChChord
	ChSnares
	ChClaps
	ChBass
)

// gateThreshold is the minimum smoothed level for a tempo-gated channel to
// light at all; it keeps near-silent bass and snares from flickering.
const gateThreshold = 20

// Map converts smoothed band levels plus the current tempo state into a
// channel frame. With tempo sync enabled, bass fires only on beats 1 and 3
// and snares only on beats 2 and 4 (the 4/4 backbeat); without it, both
// follow their levels directly. Vocals, chord, and claps always follow
// their levels.
func Map(levels dsp.Levels, st beat.State) Frame {
	var f Frame
	f[ChVocals] = intensity(levels[dsp.Vocals])
	f[ChChord] = intensity(levels[dsp.Chord])
	f[ChClaps] = intensity(levels[dsp.Claps])

	if st.SyncEnabled {
		onBeat := st.BeatPosition == 0 || st.BeatPosition == 2
		if onBeat && levels[dsp.Bass] > gateThreshold {
			f[ChBass] = intensity(levels[dsp.Bass])
		}
		offBeat := st.BeatPosition == 1 || st.BeatPosition == 3
		if offBeat && levels[dsp.Snares] > gateThreshold {
			f[ChSnares] = intensity(levels[dsp.Snares])
		}
	} else {
		f[ChSnares] = intensity(levels[dsp.Snares])
		f[ChBass] = intensity(levels[dsp.Bass])
	}
	return f
}

// intensity scales a [0,100] level to a [0,255] channel value.
func intensity(level float64) int {
	v := int(math.Round(level * 2.55))
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
