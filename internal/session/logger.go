// Package session writes an optional per-run CSV trace of output frames
// and beat events, for tuning band ranges and thresholds offline.
package session

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/glowlab/glowsync/internal/beat"
	"github.com/glowlab/glowsync/internal/lights"
)

// Logger records one row per output frame. One file per run:
// <dir>/glowsync_<date>_<time>.csv.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// New creates the trace file and writes the header row.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session log dir: %w", err)
	}
	name := fmt.Sprintf("glowsync_%s.csv", time.Now().Format("20060102_150405"))
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("create session log: %w", err)
	}

	w := csv.NewWriter(f)
	w.Write([]string{"time", "vocals", "chord", "snares", "claps", "bass", "beat", "position", "tempo_bpm"})
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write session log header: %w", err)
	}
	return &Logger{file: f, writer: w}, nil
}

// Frame appends one row for an output frame.
func (l *Logger) Frame(f lights.Frame, detected bool, st beat.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer == nil {
		return
	}
	l.writer.Write([]string{
		time.Now().Format("15:04:05.000"),
		strconv.Itoa(f[0]),
		strconv.Itoa(f[1]),
		strconv.Itoa(f[2]),
		strconv.Itoa(f[3]),
		strconv.Itoa(f[4]),
		strconv.FormatBool(detected),
		strconv.Itoa(st.BeatPosition),
		strconv.FormatFloat(st.TempoBPM, 'f', 1, 64),
	})
	l.writer.Flush()
}

// Path returns the trace file path.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close flushes and closes the file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer != nil {
		l.writer.Flush()
		l.writer = nil
	}
	if l.file != nil {
		f := l.file
		l.file = nil
		return f.Close()
	}
	return nil
}
