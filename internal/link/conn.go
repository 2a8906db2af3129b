// Package link is the line protocol to the microcontroller: outgoing
// DECAY and L frames, incoming MODE/VOL/CMD command lines.
package link

import (
	"errors"

	"github.com/glowlab/glowsync/internal/lights"
)

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = errors.New("link: closed")

// Conn is a bidirectional line link to the microcontroller. WriteFrame and
// WriteDecay may be called from a different goroutine than ReadLine.
type Conn interface {
	// WriteFrame sends one L: frame.
	WriteFrame(f lights.Frame) error
	// WriteDecay sends the one-time DECAY: configuration line.
	WriteDecay(rates []float64) error
	// ReadLine returns the next pending command line without its newline,
	// or "" when nothing is waiting. It never blocks longer than the
	// port's read timeout.
	ReadLine() (string, error)
	Close() error
}
