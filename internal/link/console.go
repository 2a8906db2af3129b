package link

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/glowlab/glowsync/internal/lights"
)

// Console is a debug Conn for running without the microcontroller
// attached: protocol lines go to a writer (usually stdout) and command
// lines come from an optional reader (usually stdin), so MODE/VOL/CMD
// input can be typed interactively.
type Console struct {
	mu sync.Mutex
	w  io.Writer

	lines chan string
}

// NewConsole creates a console link writing to w. When commands is not
// nil, lines read from it are delivered through ReadLine.
func NewConsole(w io.Writer, commands io.Reader) *Console {
	c := &Console{w: w, lines: make(chan string, 16)}
	if commands == nil {
		close(c.lines)
		return c
	}
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(commands)
		for sc.Scan() {
			c.lines <- sc.Text()
		}
	}()
	return c
}

func (c *Console) WriteFrame(f lights.Frame) error {
	return c.write(EncodeFrame(f))
}

func (c *Console) WriteDecay(rates []float64) error {
	return c.write(EncodeDecay(rates))
}

func (c *Console) write(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprint(c.w, line)
	return err
}

// ReadLine returns the next typed command line, or "" when none is
// waiting.
func (c *Console) ReadLine() (string, error) {
	select {
	case line := <-c.lines:
		return line, nil
	default:
		return "", nil
	}
}

func (c *Console) Close() error { return nil }
