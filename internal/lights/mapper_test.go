package lights

import (
	"testing"

	"github.com/glowlab/glowsync/internal/beat"
	"github.com/glowlab/glowsync/internal/dsp"
)

func TestMapTempoSyncGating(t *testing.T) {
	t.Parallel()
	levels := dsp.Levels{
		dsp.Vocals: 40,
		dsp.Chord:  60,
		dsp.Snares: 50,
		dsp.Claps:  10,
		dsp.Bass:   25,
	}
	tests := []struct {
		name       string
		position   int
		sync       bool
		wantBass   int
		wantSnares int
	}{
		{"beat 1 drives bass", 0, true, 64, 0},
		{"beat 2 drives snares", 1, true, 0, 128},
		{"beat 3 drives bass", 2, true, 64, 0},
		{"beat 4 drives snares", 3, true, 0, 128},
		{"sync off, beat 1", 0, false, 64, 128},
		{"sync off, beat 2", 1, false, 64, 128},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Map(levels, beat.State{BeatPosition: tt.position, SyncEnabled: tt.sync})
			if f[ChBass] != tt.wantBass {
				t.Errorf("bass channel = %d, want %d", f[ChBass], tt.wantBass)
			}
			if f[ChSnares] != tt.wantSnares {
				t.Errorf("snares channel = %d, want %d", f[ChSnares], tt.wantSnares)
			}
			// Ungated channels always follow their levels.
			if f[ChVocals] != 102 {
				t.Errorf("vocals channel = %d, want 102", f[ChVocals])
			}
			if f[ChChord] != 153 {
				t.Errorf("chord channel = %d, want 153", f[ChChord])
			}
			if f[ChClaps] != 26 {
				t.Errorf("claps channel = %d, want 26", f[ChClaps])
			}
		})
	}
}

func TestMapGateThreshold(t *testing.T) {
	t.Parallel()
	// Levels at or below the gate threshold stay dark on a gated beat.
	levels := dsp.Levels{dsp.Bass: 20, dsp.Snares: 20}
	f := Map(levels, beat.State{BeatPosition: 0, SyncEnabled: true})
	if f[ChBass] != 0 {
		t.Errorf("bass channel = %d, want 0 at gate threshold", f[ChBass])
	}
	f = Map(levels, beat.State{BeatPosition: 1, SyncEnabled: true})
	if f[ChSnares] != 0 {
		t.Errorf("snares channel = %d, want 0 at gate threshold", f[ChSnares])
	}
}

func TestMapClampsToByteRange(t *testing.T) {
	t.Parallel()
	levels := dsp.Levels{
		dsp.Vocals: 100,
		dsp.Chord:  100,
		dsp.Snares: 100,
		dsp.Claps:  100,
		dsp.Bass:   100,
	}
	f := Map(levels, beat.State{SyncEnabled: false})
	for i, v := range f {
		if v < 0 || v > 255 {
			t.Errorf("channel %d = %d, out of [0,255]", i, v)
		}
	}
	if f[ChVocals] != 255 {
		t.Errorf("vocals channel = %d, want 255 for level 100", f[ChVocals])
	}
}
