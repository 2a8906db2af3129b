package dsp

import (
	"math"
	"math/rand"
	"testing"
)

const (
	testRate  = 44100
	testChunk = 2048
)

func sineChunk(freq, amplitude float64, n int) []float64 {
	chunk := make([]float64, n)
	for i := range chunk {
		chunk[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return chunk
}

func TestAnalyzeSilence(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer(testRate, DefaultBands())
	levels := a.Analyze(make([]float64, testChunk))
	for band, level := range levels {
		if level != 0 {
			t.Errorf("band %s: got %v, want 0 for silence", band, level)
		}
		if math.IsNaN(level) || math.IsInf(level, 0) {
			t.Errorf("band %s: got non-finite level %v", band, level)
		}
	}
}

func TestAnalyzeBassToneIsolation(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer(testRate, DefaultBands())
	levels := a.Analyze(sineChunk(80, 0.5, testChunk))

	if levels[Bass] <= 0 {
		t.Errorf("bass level = %v, want > 0 for an 80Hz tone", levels[Bass])
	}
	if levels[Snares] != 0 {
		t.Errorf("snares level = %v, want 0 for an 80Hz tone", levels[Snares])
	}
	if levels[Claps] != 0 {
		t.Errorf("claps level = %v, want 0 for an 80Hz tone", levels[Claps])
	}
}

func TestAnalyzeRangeInvariant(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer(testRate, DefaultBands())
	rng := rand.New(rand.NewSource(1))
	chunk := make([]float64, testChunk)
	for trial := 0; trial < 50; trial++ {
		for i := range chunk {
			chunk[i] = rng.Float64()*2 - 1
		}
		for band, level := range a.Analyze(chunk) {
			if level < 0 || level > 100 || math.IsNaN(level) {
				t.Fatalf("trial %d band %s: level %v out of [0,100]", trial, band, level)
			}
		}
	}
}

func TestAnalyzeNarrowBand(t *testing.T) {
	t.Parallel()
	// 50-60Hz maps to a single bin at 44.1kHz / 2048 samples, so the band
	// is too narrow to measure and must read zero.
	bands := map[Band]Range{Bass: {50, 60}}
	a := NewAnalyzer(testRate, bands)
	levels := a.Analyze(sineChunk(55, 0.9, testChunk))
	if levels[Bass] != 0 {
		t.Errorf("bass level = %v, want 0 for a zero-width bin range", levels[Bass])
	}
}

func TestAnalyzeBassTransientBlend(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer(testRate, DefaultBands())

	quiet := sineChunk(80, 0.05, testChunk)
	loud := sineChunk(80, 0.8, testChunk)

	a.Analyze(quiet)
	withTransient := a.Analyze(loud)[Bass]

	b := NewAnalyzer(testRate, DefaultBands())
	b.Analyze(loud)
	steady := b.Analyze(loud)[Bass]

	// A jump from quiet to loud carries transient energy, so it must read
	// at least as hot as an unchanged loud tone.
	if withTransient < steady {
		t.Errorf("transient bass = %v, steady bass = %v; transient should not read lower", withTransient, steady)
	}
}

func TestSetTuningNoiseFloor(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer(testRate, DefaultBands())
	chunk := sineChunk(80, 0.5, testChunk)
	before := a.Analyze(chunk)[Bass]
	if before == 0 {
		t.Fatal("expected a nonzero bass level before retuning")
	}

	a.SetTuning(DefaultSensitivity, 101) // floor above any possible level
	after := a.Analyze(chunk)[Bass]
	if after != 0 {
		t.Errorf("bass level = %v, want 0 with noise floor above max", after)
	}
}
