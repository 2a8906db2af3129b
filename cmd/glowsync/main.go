package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/glowlab/glowsync/internal/audio"
	"github.com/glowlab/glowsync/internal/beat"
	"github.com/glowlab/glowsync/internal/command"
	"github.com/glowlab/glowsync/internal/config"
	"github.com/glowlab/glowsync/internal/dsp"
	"github.com/glowlab/glowsync/internal/link"
	"github.com/glowlab/glowsync/internal/session"
	"github.com/glowlab/glowsync/internal/visualizer"
	"github.com/glowlab/glowsync/internal/volume"
	"github.com/spf13/cobra"
)

const version = "0.2.0"

var (
	cfgFile  string
	verbose  bool
	portFlag string
	input    string
	linkKind string
	noVolume bool
)

var rootCmd = &cobra.Command{
	Use:   "glowsync",
	Short: "Audio-reactive LED control over a serial link",
	Long: `Glowsync captures live audio, splits it into frequency bands, tracks
the beat, and streams brightness frames to a microcontroller driving LEDs.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the visualizer pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := audio.Devices()
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("no input devices found")
			return nil
		}
		for _, d := range devices {
			fmt.Printf("%d: %s (input channels: %d, default rate: %.0f)\n",
				d.Index, d.Name, d.InputChannels, d.DefaultRate)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("glowsync", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults to built-in settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	runCmd.Flags().StringVar(&portFlag, "port", "", "serial port (overrides config)")
	runCmd.Flags().StringVar(&input, "input", "", "capture device index or audio file to replay (default: auto)")
	runCmd.Flags().StringVar(&linkKind, "link", "serial", "output link: serial or console")
	runCmd.Flags().BoolVar(&noVolume, "no-volume", false, "ignore VOL commands")
	rootCmd.AddCommand(runCmd, devicesCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("glowsync failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	var hot *config.HotConfig
	if cfgFile != "" {
		var err error
		hot, err = config.NewHotConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = hot.Get()
	}
	if portFlag != "" {
		cfg.Serial.Port = portFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Transport to the microcontroller.
	var conn link.Conn
	switch linkKind {
	case "console":
		conn = link.NewConsole(os.Stdout, os.Stdin)
		if err := conn.WriteDecay(cfg.Serial.Decay); err != nil {
			return fmt.Errorf("write decay rates: %w", err)
		}
	case "serial":
		handshake := time.Duration(cfg.Serial.HandshakeDelayMS) * time.Millisecond
		serialConn, err := link.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud, handshake, cfg.Serial.Decay)
		if err != nil {
			return fmt.Errorf("connect microcontroller: %w", err)
		}
		conn = serialConn
	default:
		return fmt.Errorf("unknown link kind %q", linkKind)
	}
	defer conn.Close()

	// System volume collaborator.
	var vol volume.Service = volume.System{}
	if noVolume {
		vol = volume.Noop{}
	}
	if current, err := vol.Get(); err != nil {
		slog.Warn("read system volume", "err", err)
	} else {
		slog.Info("system volume", "percent", current)
	}

	// Audio capture (mic or file replay).
	source, err := openSource(cfg)
	if err != nil {
		return fmt.Errorf("open audio input: %w", err)
	}
	defer source.Close()

	// Analysis pipeline.
	analyzer := dsp.NewAnalyzer(source.SampleRate(), cfg.BandRanges())
	analyzer.SetTuning(cfg.Analyzer.Sensitivity, cfg.Analyzer.NoiseFloor)
	tracker := beat.New()
	tracker.SetTempo(cfg.Tempo.BPM)
	tracker.SetSync(cfg.Tempo.Sync)

	var trace *session.Logger
	if cfg.SessionLogDir != "" {
		trace, err = session.New(cfg.SessionLogDir)
		if err != nil {
			return fmt.Errorf("open session log: %w", err)
		}
		defer trace.Close()
		slog.Info("session trace enabled", "path", trace.Path())
	}

	engine := visualizer.New(visualizer.Options{
		Source:   source,
		Conn:     conn,
		Tracker:  tracker,
		Analyzer: analyzer,
		Smoother: dsp.NewSmoother(),
		Trace:    trace,
		Interval: time.Duration(cfg.UpdateRateMS) * time.Millisecond,
	})
	defer engine.Close()

	// Without hardware there is no mode button, so the console link goes
	// straight into visualizer mode.
	if linkKind == "console" {
		engine.SetMode(visualizer.ModeVisualizer)
	}

	if hot != nil {
		hot.OnReload(func(c *config.Config) {
			analyzer.SetTuning(c.Analyzer.Sensitivity, c.Analyzer.NoiseFloor)
		})
		if err := hot.Watch(); err != nil {
			slog.Warn("config hot reload unavailable", "err", err)
		}
	}

	slog.Info("glowsync started", "link", linkKind, "port", cfg.Serial.Port, "mode", engine.Mode())
	command.New(conn, engine, tracker, vol).Run(ctx)

	slog.Info("shutting down")
	return nil
}

// openSource decides between live capture and file replay: an empty
// --input means auto device selection, an integer selects a capture device
// index, anything else is an audio file path.
func openSource(cfg *config.Config) (audio.Source, error) {
	if input == "" {
		return audio.OpenMic(cfg.Audio.Device, cfg.Audio.SampleRate, cfg.Audio.ChunkSize)
	}
	if idx, err := strconv.Atoi(input); err == nil {
		return audio.OpenMic(idx, cfg.Audio.SampleRate, cfg.Audio.ChunkSize)
	}
	return audio.OpenFile(input, cfg.Audio.ChunkSize)
}
