package link

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/glowlab/glowsync/internal/lights"
)

func TestEncodeFrame(t *testing.T) {
	t.Parallel()
	tests := []struct {
		frame lights.Frame
		want  string
	}{
		{lights.Frame{0, 0, 0, 0, 0}, "L:0,0,0,0,0\n"},
		{lights.Frame{102, 153, 0, 26, 64}, "L:102,153,0,26,64\n"},
		{lights.Frame{255, 255, 255, 255, 255}, "L:255,255,255,255,255\n"},
	}
	for _, tt := range tests {
		if got := EncodeFrame(tt.frame); got != tt.want {
			t.Errorf("EncodeFrame(%v) = %q, want %q", tt.frame, got, tt.want)
		}
	}
}

func TestEncodeDecay(t *testing.T) {
	t.Parallel()
	got := EncodeDecay(DefaultDecay)
	want := "DECAY:0.6,0.5,0.1,0.1,0.3\n"
	if got != want {
		t.Errorf("EncodeDecay(default) = %q, want %q", got, want)
	}
}

func TestConsoleWritesProtocolLines(t *testing.T) {
	t.Parallel()
	var sb strings.Builder
	c := NewConsole(&sb, nil)

	if err := c.WriteDecay(DefaultDecay); err != nil {
		t.Fatalf("WriteDecay: %v", err)
	}
	if err := c.WriteFrame(lights.Frame{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if line, err := c.ReadLine(); line != "" || err != nil {
		t.Errorf("ReadLine = (%q, %v), want empty and nil", line, err)
	}

	want := "DECAY:0.6,0.5,0.1,0.1,0.3\nL:1,2,3,4,5\n"
	if got := sb.String(); got != want {
		t.Errorf("console output = %q, want %q", got, want)
	}
}

func TestConsoleDeliversCommandLines(t *testing.T) {
	t.Parallel()
	c := NewConsole(io.Discard, strings.NewReader("MODE:VISUALIZER\nCMD:TEMPO_OFF\n"))

	want := []string{"MODE:VISUALIZER", "CMD:TEMPO_OFF"}
	var got []string
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < len(want) && time.Now().Before(deadline) {
		line, err := c.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if line != "" {
			got = append(got, line)
		} else {
			time.Sleep(time.Millisecond)
		}
	}
	for i, w := range want {
		if i >= len(got) || got[i] != w {
			t.Fatalf("command lines = %q, want %q", got, want)
		}
	}

	// Drained input reads as no line pending, never an error.
	if line, err := c.ReadLine(); line != "" || err != nil {
		t.Errorf("ReadLine after drain = (%q, %v), want empty and nil", line, err)
	}
}
