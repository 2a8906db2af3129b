package dsp

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	// DefaultSensitivity scales band levels after perceptual normalization.
	DefaultSensitivity = 1.2
	// DefaultNoiseFloor zeroes band levels below this value to suppress hiss.
	DefaultNoiseFloor = 15
)

// Analyzer converts one chunk of mono PCM samples into normalized energy
// levels per frequency band. It keeps a single-slot cache of the previous
// chunk's bass-bin magnitudes for transient detection, so one Analyzer
// serves one audio stream. Analyze is not safe for concurrent use; only
// the tuning knobs may be adjusted from another goroutine.
type Analyzer struct {
	sampleRate int
	bands      map[Band]Range

	mu          sync.RWMutex
	sensitivity float64
	noiseFloor  float64

	buf      []float64 // windowed copy of the current chunk
	prevBass []float64 // previous chunk's bass-bin magnitudes
}

// NewAnalyzer creates an Analyzer for the given sample rate and band table.
func NewAnalyzer(sampleRate int, bands map[Band]Range) *Analyzer {
	return &Analyzer{
		sampleRate:  sampleRate,
		bands:       bands,
		sensitivity: DefaultSensitivity,
		noiseFloor:  DefaultNoiseFloor,
	}
}

// SetTuning adjusts sensitivity and noise floor. Safe to call while the
// visualizer loop is running (used by config hot reload).
func (a *Analyzer) SetTuning(sensitivity, noiseFloor float64) {
	a.mu.Lock()
	a.sensitivity = sensitivity
	a.noiseFloor = noiseFloor
	a.mu.Unlock()
}

// Analyze computes the level of every configured band for one chunk of
// mono samples in [-1, 1]. Silent input yields all-zero levels; no input
// produces NaN or Inf.
func (a *Analyzer) Analyze(chunk []float64) Levels {
	n := len(chunk)
	if len(a.buf) != n {
		a.buf = make([]float64, n)
	}
	copy(a.buf, chunk)
	window.Apply(a.buf, window.Hann)

	spectrum := fft.FFTReal(a.buf)
	half := n / 2
	mags := make([]float64, half)
	for i := range mags {
		mags[i] = cmplx.Abs(spectrum[i]) / float64(n)
	}
	binWidth := float64(a.sampleRate) / float64(n)

	a.mu.RLock()
	sensitivity, noiseFloor := a.sensitivity, a.noiseFloor
	a.mu.RUnlock()

	levels := make(Levels, len(a.bands))
	for band, r := range a.bands {
		low := int(r.Low / binWidth)
		if low < 1 {
			low = 1
		}
		high := int(r.High / binWidth)
		if high > half-1 {
			high = half - 1
		}
		if high <= low {
			// Band too narrow for this chunk size / sample rate.
			levels[band] = 0
			continue
		}

		bins := mags[low : high+1]
		peak, mean := peakMean(bins)

		var mag float64
		switch band {
		case Snares, Claps:
			// Transient sounds: heavy peak emphasis.
			mag = 0.9*peak + 0.1*mean
		case Bass:
			if len(a.prevBass) == len(bins) {
				var transient float64
				for i, v := range bins {
					transient += math.Abs(v - a.prevBass[i])
				}
				mag = 0.5*peak + 0.2*mean + 0.3*transient
			} else {
				mag = 0.7*peak + 0.3*mean
			}
			a.prevBass = append(a.prevBass[:0], bins...)
		default:
			mag = 0.5*peak + 0.5*mean
		}

		// Log scaling matches perceived loudness; the 1e-10 floor keeps
		// silence out of log10(0).
		db := 20 * math.Log10(mag+1e-10)
		level := clamp((db+50)/50*100, 0, 100)
		level = clamp(level*sensitivity, 0, 100)
		if level < noiseFloor {
			level = 0
		}
		levels[band] = level
	}
	return levels
}

func peakMean(bins []float64) (peak, mean float64) {
	var sum float64
	for _, v := range bins {
		if v > peak {
			peak = v
		}
		sum += v
	}
	return peak, sum / float64(len(bins))
}
