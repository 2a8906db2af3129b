package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/glowlab/glowsync/internal/dsp"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Serial   SerialConfig          `yaml:"serial"`
	Audio    AudioConfig           `yaml:"audio"`
	Analyzer AnalyzerConfig        `yaml:"analyzer"`
	Tempo    TempoConfig           `yaml:"tempo"`
	Bands    map[string]BandConfig `yaml:"bands"`

	// UpdateRateMS bounds the output frame rate.
	UpdateRateMS int `yaml:"update_rate_ms"`
	// SessionLogDir enables the per-run CSV trace when set.
	SessionLogDir string `yaml:"session_log_dir"`
}

type SerialConfig struct {
	Port             string    `yaml:"port"`
	Baud             int       `yaml:"baud"`
	HandshakeDelayMS int       `yaml:"handshake_delay_ms"`
	Decay            []float64 `yaml:"decay"` // per-channel decay hints, pin order
}

type AudioConfig struct {
	Device     int `yaml:"device"` // -1 = default, then every input device
	SampleRate int `yaml:"sample_rate"`
	ChunkSize  int `yaml:"chunk_size"`
}

type AnalyzerConfig struct {
	Sensitivity float64 `yaml:"sensitivity"`
	NoiseFloor  float64 `yaml:"noise_floor"`
}

type TempoConfig struct {
	BPM  float64 `yaml:"bpm"`
	Sync bool    `yaml:"sync"`
}

type BandConfig struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Default returns the built-in configuration, matching the hardware the
// Arduino sketch expects.
func Default() *Config {
	bands := make(map[string]BandConfig)
	for name, r := range dsp.DefaultBands() {
		bands[string(name)] = BandConfig{Low: r.Low, High: r.High}
	}
	return &Config{
		Serial: SerialConfig{
			Port:             defaultSerialPort(),
			Baud:             9600,
			HandshakeDelayMS: 2000,
			Decay:            []float64{0.6, 0.5, 0.1, 0.1, 0.3},
		},
		Audio: AudioConfig{
			Device:     -1,
			SampleRate: 44100,
			ChunkSize:  2048,
		},
		Analyzer: AnalyzerConfig{
			Sensitivity: dsp.DefaultSensitivity,
			NoiseFloor:  dsp.DefaultNoiseFloor,
		},
		Tempo: TempoConfig{
			BPM:  120,
			Sync: true,
		},
		Bands:        bands,
		UpdateRateMS: 30,
	}
}

// Load reads and validates a config file, starting from the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the pipeline depends on.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("audio.chunk_size must be positive, got %d", c.Audio.ChunkSize)
	}
	if c.UpdateRateMS <= 0 {
		return fmt.Errorf("update_rate_ms must be positive, got %d", c.UpdateRateMS)
	}
	if len(c.Serial.Decay) != 5 {
		return fmt.Errorf("serial.decay needs 5 values, got %d", len(c.Serial.Decay))
	}
	if c.Tempo.BPM < 60 || c.Tempo.BPM > 200 {
		return fmt.Errorf("tempo.bpm must be in [60, 200], got %g", c.Tempo.BPM)
	}
	for name, b := range c.Bands {
		if b.Low >= b.High {
			return fmt.Errorf("band %s: low %g must be below high %g", name, b.Low, b.High)
		}
	}
	return nil
}

// defaultSerialPort guesses the usual Arduino port name per platform.
func defaultSerialPort() string {
	switch runtime.GOOS {
	case "windows":
		return "COM5"
	case "darwin":
		return "/dev/tty.usbmodem1101"
	default:
		return "/dev/ttyUSB0"
	}
}

// BandRanges converts the configured bands to the analyzer's band table.
// Bands not named in the config keep their defaults.
func (c *Config) BandRanges() map[dsp.Band]dsp.Range {
	ranges := dsp.DefaultBands()
	for name, b := range c.Bands {
		ranges[dsp.Band(name)] = dsp.Range{Low: b.Low, High: b.High}
	}
	return ranges
}
