// Package visualizer owns the process mode and the real-time loop that
// turns audio chunks into output frames.
package visualizer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glowlab/glowsync/internal/audio"
	"github.com/glowlab/glowsync/internal/beat"
	"github.com/glowlab/glowsync/internal/dsp"
	"github.com/glowlab/glowsync/internal/lights"
	"github.com/glowlab/glowsync/internal/link"
	"github.com/glowlab/glowsync/internal/session"
)

// Mode is the process-wide operating mode, switched by commands from the
// microcontroller's mode button.
type Mode string

const (
	ModeAudioControl Mode = "AUDIO_CONTROL"
	ModeAnimation    Mode = "ANIMATION"
	ModeVisualizer   Mode = "VISUALIZER"
)

// ParseMode maps a command payload to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeAudioControl, ModeAnimation, ModeVisualizer:
		return Mode(s), true
	}
	return "", false
}

const (
	// DefaultInterval bounds the output frame rate.
	DefaultInterval = 30 * time.Millisecond
	// DefaultJoinTimeout bounds the wait for the loop goroutine to stop
	// before the capture handle is force-closed.
	DefaultJoinTimeout = time.Second

	// fallbackAfter is how long without a detected beat before the loop
	// falls back to the fixed-tempo clock.
	fallbackAfter = 2 * time.Second
)

// Options configures an Engine. Source, Conn, Tracker, Analyzer, and
// Smoother are required; Trace is optional.
type Options struct {
	Source   audio.Source
	Conn     link.Conn
	Tracker  *beat.Tracker
	Analyzer *dsp.Analyzer
	Smoother *dsp.Smoother
	Trace    *session.Logger

	Interval    time.Duration
	JoinTimeout time.Duration
}

// Engine holds the operating mode and runs the visualizer loop while the
// mode is VISUALIZER. The loop goroutine owns the analyzer and smoother
// exclusively; the mode and the tracker's tempo fields are the only state
// shared with the command dispatcher.
type Engine struct {
	source   audio.Source
	conn     link.Conn
	tracker  *beat.Tracker
	analyzer *dsp.Analyzer
	smoother *dsp.Smoother
	trace    *session.Logger

	interval    time.Duration
	joinTimeout time.Duration

	mu     sync.Mutex
	mode   Mode
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an Engine in AUDIO_CONTROL mode.
func New(o Options) *Engine {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = DefaultJoinTimeout
	}
	return &Engine{
		source:      o.Source,
		conn:        o.Conn,
		tracker:     o.Tracker,
		analyzer:    o.Analyzer,
		smoother:    o.Smoother,
		trace:       o.Trace,
		interval:    o.Interval,
		joinTimeout: o.JoinTimeout,
		mode:        ModeAudioControl,
	}
}

// Mode returns the current operating mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetMode switches the operating mode. Entering VISUALIZER starts the loop
// goroutine; leaving it stops the loop, waiting up to the join timeout
// before force-closing the capture source to unblock an in-flight read.
// Setting the current mode again is a no-op.
func (e *Engine) SetMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m == e.mode {
		return
	}
	prev := e.mode
	e.mode = m
	slog.Info("mode switched", "from", prev, "to", m)

	if m == ModeVisualizer {
		e.startLoopLocked()
	} else if prev == ModeVisualizer {
		e.stopLoopLocked()
	}
}

// Close stops the loop if it is running. Called at process shutdown.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLoopLocked()
	return nil
}

func (e *Engine) startLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel, e.done = cancel, done
	go func() {
		defer close(done)
		e.loop(ctx)
	}()
}

func (e *Engine) stopLoopLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	select {
	case <-e.done:
	case <-time.After(e.joinTimeout):
		slog.Warn("visualizer loop slow to stop, force-closing capture")
		if err := e.source.Close(); err != nil {
			slog.Warn("close capture source", "err", err)
		}
		<-e.done
	}
	e.cancel, e.done = nil, nil
}

// loop is the real-time pipeline: read chunk, detect beat, analyze bands,
// smooth, map, write frame — once per interval until cancelled. Read and
// write failures are logged and skipped, never fatal.
func (e *Engine) loop(ctx context.Context) {
	slog.Info("visualizer loop started", "interval", e.interval)
	defer slog.Info("visualizer loop stopped")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	// Until onsets prove reliable, a fixed-tempo clock advances the beat
	// position so the backbeat pattern keeps moving.
	fallback := true
	fallbackAt := time.Now()
	readFailures := 0

	for ctx.Err() == nil {
		now := time.Now()
		if fallback {
			interval := time.Duration(60 / e.tracker.Tempo() * float64(time.Second))
			if now.Sub(fallbackAt) >= interval {
				e.tracker.Advance()
				fallbackAt = now
			}
		}

		chunk, err := e.source.ReadChunk()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			readFailures++
			if readFailures == 1 || readFailures%100 == 0 {
				slog.Warn("capture read failed", "err", err, "failures", readFailures)
			}
			if !sleepTick(ctx, ticker) {
				return
			}
			continue
		}
		if readFailures > 0 {
			slog.Info("capture recovered", "failures", readFailures)
			readFailures = 0
		}

		now = time.Now()
		detected := e.tracker.Update(audio.Energy(chunk), now)
		levels := e.analyzer.Analyze(chunk)

		if detected {
			fallback = false
			fallbackAt = now
		} else if now.Sub(e.tracker.LastBeat()) > fallbackAfter {
			fallback = true
		}

		smoothed := e.smoother.Smooth(levels)
		st := e.tracker.Snapshot()
		frame := lights.Map(smoothed, st)

		if err := e.conn.WriteFrame(frame); err != nil {
			// Dropped frame; the next one carries fresher state anyway.
			slog.Warn("frame write failed", "err", err)
		}
		if e.trace != nil {
			e.trace.Frame(frame, detected, st)
		}

		if !sleepTick(ctx, ticker) {
			return
		}
	}
}

func sleepTick(ctx context.Context, ticker *time.Ticker) bool {
	select {
	case <-ctx.Done():
		return false
	case <-ticker.C:
		return true
	}
}
