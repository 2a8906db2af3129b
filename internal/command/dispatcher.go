// Package command parses control lines from the microcontroller and
// applies them to the shared mode, tempo, and volume state.
package command

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/glowlab/glowsync/internal/beat"
	"github.com/glowlab/glowsync/internal/link"
	"github.com/glowlab/glowsync/internal/visualizer"
	"github.com/glowlab/glowsync/internal/volume"
)

// pollIdle is how long Run sleeps when no command line is waiting.
const pollIdle = 10 * time.Millisecond

// Dispatcher reads newline-terminated command lines and mutates the shared
// configuration state. It never touches the analysis pipeline directly.
type Dispatcher struct {
	conn    link.Conn
	engine  *visualizer.Engine
	tracker *beat.Tracker
	vol     volume.Service
}

// New creates a Dispatcher.
func New(conn link.Conn, engine *visualizer.Engine, tracker *beat.Tracker, vol volume.Service) *Dispatcher {
	return &Dispatcher{conn: conn, engine: engine, tracker: tracker, vol: vol}
}

// Run polls the link for command lines until ctx is cancelled or the link
// closes. Malformed and unrecognized lines are ignored.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("command dispatcher started")
	for ctx.Err() == nil {
		line, err := d.conn.ReadLine()
		if err != nil {
			if errors.Is(err, link.ErrClosed) || ctx.Err() != nil {
				return
			}
			slog.Warn("read command line", "err", err)
			line = ""
		}
		if line == "" {
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollIdle):
			}
			continue
		}
		d.Handle(line)
	}
}

// Handle applies one command line.
func (d *Dispatcher) Handle(line string) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "MODE:"):
		d.handleMode(strings.TrimPrefix(line, "MODE:"))
	case strings.HasPrefix(line, "VOL:"):
		d.handleVolume(strings.TrimPrefix(line, "VOL:"))
	case strings.HasPrefix(line, "CMD:"):
		d.handleCommand(strings.TrimPrefix(line, "CMD:"))
	case line != "":
		slog.Debug("unrecognized line", "line", line)
	}
}

func (d *Dispatcher) handleMode(name string) {
	mode, ok := visualizer.ParseMode(name)
	if !ok {
		slog.Debug("unknown mode", "mode", name)
		return
	}
	d.engine.SetMode(mode)
}

func (d *Dispatcher) handleVolume(arg string) {
	percent, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		slog.Debug("bad volume value", "arg", arg)
		return
	}
	if err := d.vol.Set(int(math.Round(percent))); err != nil {
		slog.Warn("set system volume", "percent", percent, "err", err)
		return
	}
	slog.Info("system volume set", "percent", percent)
}

func (d *Dispatcher) handleCommand(cmd string) {
	switch {
	case cmd == "TEMPO_ON":
		d.tracker.SetSync(true)
		slog.Info("tempo sync enabled")
	case cmd == "TEMPO_OFF":
		d.tracker.SetSync(false)
		slog.Info("tempo sync disabled")
	case strings.HasPrefix(cmd, "TEMPO_SET:"):
		arg := strings.TrimPrefix(cmd, "TEMPO_SET:")
		bpm, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			slog.Debug("bad tempo value", "arg", arg)
			return
		}
		if !d.tracker.SetTempo(bpm) {
			slog.Debug("tempo out of range", "bpm", bpm)
			return
		}
		slog.Info("tempo set", "bpm", bpm)
	default:
		slog.Debug("unknown command", "cmd", cmd)
	}
}
