// Package audio provides chunked mono audio sources: live capture via
// PortAudio and file replay for running without a microphone.
package audio

import (
	"errors"
	"math"
)

// Chunk is one fixed-size window of mono samples normalized to [-1, 1].
type Chunk []float64

// Energy returns the sum of absolute sample values, the onset detector's
// per-chunk energy measure.
func Energy(c Chunk) float64 {
	var sum float64
	for _, s := range c {
		sum += math.Abs(s)
	}
	return sum
}

// Source produces fixed-size chunks of mono audio. ReadChunk blocks until
// a full chunk is available; implementations bound the wait by the chunk
// duration (live capture) or pace to real time (file replay).
type Source interface {
	ReadChunk() (Chunk, error)
	SampleRate() int
	Close() error
}

var (
	// ErrNoInputDevice means no capture device could be opened.
	ErrNoInputDevice = errors.New("audio: no usable input device")
	// ErrUnknownFormat means a replay file has no registered decoder.
	ErrUnknownFormat = errors.New("audio: unknown file format")
)
