package dsp

import "math"

// Smoother applies per-band exponential smoothing with adaptive attack.
// Percussive bands get factors close to 1 so they track transients;
// sustained bands get lower factors for stable output. State persists for
// the life of the Smoother and is never reset. Owned by the visualizer
// loop; not safe for concurrent use.
type Smoother struct {
	factors map[Band]float64
	state   Levels
}

// NewSmoother creates a Smoother with all bands at level 0.
func NewSmoother() *Smoother {
	s := &Smoother{
		factors: map[Band]float64{
			Vocals: 0.4,
			Chord:  0.5,
			Snares: 0.9,
			Claps:  0.9,
			Bass:   0.7,
		},
		state: make(Levels, len(BandOrder)),
	}
	for _, band := range BandOrder {
		s.state[band] = 0
	}
	return s
}

// Smooth folds raw band levels into the persistent smoothed state and
// returns it. A raw level more than 1.5x the current smoothed value gets a
// boosted factor (capped at 0.9) to snap to sudden transients.
func (s *Smoother) Smooth(raw Levels) Levels {
	for band, level := range raw {
		factor, ok := s.factors[band]
		if !ok {
			factor = 0.3
		}
		current := s.state[band]
		if level > current*1.5 {
			factor = math.Min(0.9, factor*1.5)
		}
		s.state[band] = clamp(current*(1-factor)+level*factor, 0, 100)
	}
	return s.state
}

// Levels returns the current smoothed state.
func (s *Smoother) Levels() Levels {
	return s.state
}
