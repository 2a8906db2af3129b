package link

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glowlab/glowsync/internal/lights"
	"go.bug.st/serial"
)

const (
	// DefaultBaud matches the Arduino sketch's Serial.begin rate.
	DefaultBaud = 9600
	// DefaultHandshakeDelay waits out the board reset that opening the
	// port triggers before the DECAY line is sent.
	DefaultHandshakeDelay = 2 * time.Second

	readTimeout = 20 * time.Millisecond
)

// Serial is a Conn over a hardware serial port. Writes come from the
// visualizer loop, reads from the command dispatcher; each direction has
// its own lock.
type Serial struct {
	port serial.Port

	wmu sync.Mutex
	rmu sync.Mutex

	pending []byte // bytes read but not yet terminated by a newline

	mu     sync.Mutex
	closed bool
}

// OpenSerial opens the port, waits for the board to come back from its
// reset, and sends the DECAY configuration line.
func OpenSerial(portName string, baud int, handshake time.Duration, decay []float64) (*Serial, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	slog.Info("connected to microcontroller", "port", portName, "baud", baud)

	time.Sleep(handshake)

	s := &Serial{port: port}
	if err := s.WriteDecay(decay); err != nil {
		port.Close()
		return nil, fmt.Errorf("send decay rates: %w", err)
	}
	slog.Info("sent decay rates", "decay", decay)
	return s, nil
}

func (s *Serial) WriteFrame(f lights.Frame) error {
	return s.write(EncodeFrame(f))
}

func (s *Serial) WriteDecay(rates []float64) error {
	return s.write(EncodeDecay(rates))
}

func (s *Serial) write(line string) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// ReadLine returns the next complete command line, or "" when none has
// arrived within the port's read timeout.
func (s *Serial) ReadLine() (string, error) {
	if s.isClosed() {
		return "", ErrClosed
	}
	s.rmu.Lock()
	defer s.rmu.Unlock()

	if line, ok := s.popLine(); ok {
		return line, nil
	}
	buf := make([]byte, 64)
	n, err := s.port.Read(buf) // n == 0 on timeout
	if err != nil {
		if s.isClosed() {
			return "", ErrClosed
		}
		return "", fmt.Errorf("serial read: %w", err)
	}
	s.pending = append(s.pending, buf[:n]...)
	line, _ := s.popLine()
	return line, nil
}

func (s *Serial) popLine() (string, bool) {
	for i, b := range s.pending {
		if b == '\n' {
			line := strings.TrimSpace(string(s.pending[:i]))
			s.pending = s.pending[i+1:]
			return line, true
		}
	}
	return "", false
}

func (s *Serial) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Serial) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.port.Close()
}
