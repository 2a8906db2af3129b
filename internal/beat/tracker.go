// Package beat detects rhythmic onsets in chunk energy and keeps an
// adaptive tempo estimate with a 4-beat position counter.
package beat

import (
	"math"
	"sync"
	"time"
)

const (
	historySize     = 20   // energy samples kept for the onset baseline
	warmupSamples   = 4    // minimum history before any detection
	onsetMultiplier = 1.5  // energy must exceed baseline by this factor
	energyFloor     = 0.01 // absolute floor, rejects near-silence
	minBeatDuration = 0.2  // seconds, caps tempo at 300 bpm
	maxBeatDuration = 0.8  // seconds, floors tempo at 75 bpm

	// MinBPM and MaxBPM bound explicit tempo commands.
	MinBPM = 60
	MaxBPM = 200
)

// State is a point-in-time copy of the tracker's tempo fields, taken for
// one mapper invocation.
type State struct {
	TempoBPM     float64
	BeatPosition int     // 0-3, beats 1-4 of the bar
	BeatDuration float64 // seconds
	LastBeat     time.Time
	SyncEnabled  bool
}

// Tracker consumes per-chunk energy, detects onsets, and maintains the
// shared tempo state. The visualizer loop calls Update and Advance; the
// command dispatcher calls SetTempo and SetSync concurrently, so all
// fields are guarded by the mutex.
type Tracker struct {
	mu           sync.RWMutex
	tempoBPM     float64
	beatPosition int
	beatDuration float64
	lastBeat     time.Time
	syncEnabled  bool
	history      []float64
}

// New creates a Tracker at the default 120 bpm with tempo sync enabled.
func New() *Tracker {
	return &Tracker{
		tempoBPM:     120,
		beatDuration: 0.5,
		syncEnabled:  true,
		history:      make([]float64, 0, historySize),
	}
}

// Update feeds one chunk's energy (sum of absolute sample values) into the
// onset detector and reports whether a beat was accepted. An onset counts
// as a beat only when the energy exceeds 1.5x the recent average, clears
// the absolute floor, and falls outside the debounce window of half a beat
// since the last accepted beat.
func (t *Tracker) Update(energy float64, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastBeat.IsZero() {
		t.lastBeat = now
	}

	t.history = append(t.history, energy)
	if len(t.history) > historySize {
		n := copy(t.history, t.history[1:])
		t.history = t.history[:n]
	}
	if len(t.history) < warmupSamples {
		return false
	}

	prev := t.history[:len(t.history)-1]
	var sum float64
	for _, e := range prev {
		sum += e
	}
	baseline := sum / float64(len(prev))

	if energy <= baseline*onsetMultiplier || energy <= energyFloor {
		return false
	}
	gap := now.Sub(t.lastBeat).Seconds()
	if gap < 0.5*t.beatDuration {
		return false
	}

	// The gap since the previous accepted beat is the new beat duration,
	// measured before lastBeat is overwritten.
	t.beatDuration = math.Min(maxBeatDuration, math.Max(minBeatDuration, gap))
	t.tempoBPM = 60 / t.beatDuration
	t.beatPosition = (t.beatPosition + 1) % 4
	t.lastBeat = now
	return true
}

// Advance steps the beat position by one, used by the fixed-tempo fallback
// clock. It does not touch the tempo estimate or the last-beat time, so
// fallback ticks never masquerade as detected beats.
func (t *Tracker) Advance() {
	t.mu.Lock()
	t.beatPosition = (t.beatPosition + 1) % 4
	t.mu.Unlock()
}

// SetTempo sets an explicit tempo in bpm. Values outside [MinBPM, MaxBPM]
// are rejected and the state is left unchanged.
func (t *Tracker) SetTempo(bpm float64) bool {
	if bpm < MinBPM || bpm > MaxBPM {
		return false
	}
	t.mu.Lock()
	t.tempoBPM = bpm
	t.beatDuration = 60 / bpm
	t.mu.Unlock()
	return true
}

// SetSync enables or disables tempo-synced output gating.
func (t *Tracker) SetSync(enabled bool) {
	t.mu.Lock()
	t.syncEnabled = enabled
	t.mu.Unlock()
}

// SyncEnabled reports whether tempo-synced gating is active.
func (t *Tracker) SyncEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.syncEnabled
}

// Tempo returns the current tempo estimate in bpm.
func (t *Tracker) Tempo() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tempoBPM
}

// LastBeat returns the time of the last accepted beat (zero before the
// first Update).
func (t *Tracker) LastBeat() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastBeat
}

// Snapshot copies the tempo state for a single mapper invocation.
func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return State{
		TempoBPM:     t.tempoBPM,
		BeatPosition: t.beatPosition,
		BeatDuration: t.beatDuration,
		LastBeat:     t.lastBeat,
		SyncEnabled:  t.syncEnabled,
	}
}
