package config

import (
	"os"
	"testing"
	"time"
)

func TestHotConfigReloadsOnWrite(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "analyzer:\n  sensitivity: 1.0\n")
	hot, err := NewHotConfig(path)
	if err != nil {
		t.Fatalf("NewHotConfig: %v", err)
	}

	reloaded := make(chan *Config, 4)
	hot.OnReload(func(c *Config) { reloaded <- c })
	if err := hot.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("analyzer:\n  sensitivity: 1.8\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Analyzer.Sensitivity != 1.8 {
			t.Errorf("reloaded sensitivity = %v, want 1.8", cfg.Analyzer.Sensitivity)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback not invoked after rewrite")
	}
	if got := hot.Get().Analyzer.Sensitivity; got != 1.8 {
		t.Errorf("Get sensitivity = %v, want 1.8", got)
	}
}

func TestHotConfigRejectsInvalidRewrite(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "tempo:\n  bpm: 120\n")
	hot, err := NewHotConfig(path)
	if err != nil {
		t.Fatalf("NewHotConfig: %v", err)
	}
	if err := hot.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("tempo:\n  bpm: 500\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// The invalid rewrite must never replace the active config.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got := hot.Get().Tempo.BPM; got != 120 {
			t.Fatalf("invalid rewrite replaced config, bpm = %v", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
