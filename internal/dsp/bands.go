package dsp

// Band names one analyzed frequency range. Each band drives one output
// channel on the microcontroller.
type Band string

const (
	Vocals Band = "vocals"
	Chord  Band = "chord"
	Snares Band = "snares"
	Claps  Band = "claps"
	Bass   Band = "bass"
)

// BandOrder is the fixed channel order for output frames, matching the
// hardware pin assignment {3, 9, 5, 6, 10}.
var BandOrder = [5]Band{Vocals, Chord, Snares, Claps, Bass}

// Range is a band's frequency bounds in Hz, Low < High.
type Range struct {
	Low  float64
	High float64
}

// DefaultBands returns the standard band table: vocal range, chord body,
// snare crack, clap transients, and kick-drum fundamentals.
func DefaultBands() map[Band]Range {
	return map[Band]Range{
		Vocals: {300, 3000},
		Chord:  {200, 2000},
		Snares: {150, 250},
		Claps:  {2000, 5000},
		Bass:   {50, 120},
	}
}

// Levels maps a band name to a level in [0, 100].
type Levels map[Band]float64

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
