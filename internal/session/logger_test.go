package session

import (
	"encoding/csv"
	"os"
	"testing"

	"github.com/glowlab/glowsync/internal/beat"
	"github.com/glowlab/glowsync/internal/lights"
)

func TestLoggerWritesFrames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Frame(lights.Frame{10, 20, 30, 40, 50}, true, beat.State{BeatPosition: 2, TempoBPM: 128})
	l.Frame(lights.Frame{0, 0, 0, 0, 0}, false, beat.State{})
	path := l.Path()
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trace: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if len(rows) != 3 { // header + 2 frames
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	first := rows[1]
	if first[1] != "10" || first[5] != "50" {
		t.Errorf("frame row = %v, want channels 10..50", first)
	}
	if first[6] != "true" || first[7] != "2" || first[8] != "128.0" {
		t.Errorf("beat columns = %v, want true/2/128.0", first[6:])
	}
}

func TestLoggerSafeAfterClose(t *testing.T) {
	t.Parallel()
	l, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Writes after close are dropped, not a panic.
	l.Frame(lights.Frame{}, false, beat.State{})
	if err := l.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
