package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Device describes one input-capable capture device.
type Device struct {
	Index         int
	Name          string
	InputChannels int
	DefaultRate   float64
}

// Devices lists all input-capable capture devices.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var devices []Device
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			Index:         i,
			Name:          info.Name,
			InputChannels: info.MaxInputChannels,
			DefaultRate:   info.DefaultSampleRate,
		})
	}
	return devices, nil
}

// Mic captures mono chunks from a system input device via PortAudio.
type Mic struct {
	stream     *portaudio.Stream
	buf        []int16
	sampleRate int

	closeOnce sync.Once
	closeErr  error
}

// OpenMic opens a capture stream reading chunkSize frames per chunk.
// device >= 0 selects a specific device index; device < 0 tries the
// default input device and then every input-capable device in order until
// one opens.
func OpenMic(device, sampleRate, chunkSize int) (*Mic, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}
	mic, err := openStream(device, sampleRate, chunkSize)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return mic, nil
}

func openStream(device, sampleRate, chunkSize int) (*Mic, error) {
	buf := make([]int16, chunkSize)

	if device >= 0 {
		infos, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("list devices: %w", err)
		}
		if device >= len(infos) {
			return nil, fmt.Errorf("device %d out of range (%d devices)", device, len(infos))
		}
		stream, err := openDevice(infos[device], sampleRate, chunkSize, buf)
		if err != nil {
			return nil, fmt.Errorf("open device %d (%s): %w", device, infos[device].Name, err)
		}
		slog.Info("audio capture started", "device", infos[device].Name, "rate", sampleRate, "chunk", chunkSize)
		return &Mic{stream: stream, buf: buf, sampleRate: sampleRate}, nil
	}

	// No device requested: default stream first, then every input device.
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), chunkSize, buf)
	if err == nil {
		startErr := stream.Start()
		if startErr == nil {
			slog.Info("audio capture started", "device", "default", "rate", sampleRate, "chunk", chunkSize)
			return &Mic{stream: stream, buf: buf, sampleRate: sampleRate}, nil
		}
		stream.Close()
		err = startErr
	}
	slog.Warn("default input device failed, trying each input device", "err", err)

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		stream, err := openDevice(info, sampleRate, chunkSize, buf)
		if err != nil {
			slog.Warn("input device failed", "index", i, "device", info.Name, "err", err)
			continue
		}
		slog.Info("audio capture started", "device", info.Name, "rate", sampleRate, "chunk", chunkSize)
		return &Mic{stream: stream, buf: buf, sampleRate: sampleRate}, nil
	}
	return nil, ErrNoInputDevice
}

func openDevice(info *portaudio.DeviceInfo, sampleRate, chunkSize int, buf []int16) (*portaudio.Stream, error) {
	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = chunkSize

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}
	return stream, nil
}

// ReadChunk blocks until one chunk of frames is captured. Input overflow
// (the device produced faster than we consumed) drops samples but is not
// an error; the buffer still holds valid audio.
func (m *Mic) ReadChunk() (Chunk, error) {
	if err := m.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, fmt.Errorf("read capture stream: %w", err)
	}
	chunk := make(Chunk, len(m.buf))
	for i, s := range m.buf {
		chunk[i] = float64(s) / 32768.0
	}
	return chunk, nil
}

// SampleRate returns the capture sample rate in Hz.
func (m *Mic) SampleRate() int { return m.sampleRate }

// Close stops the stream and releases PortAudio. Safe to call more than
// once and from a goroutine other than the reader; closing unblocks an
// in-flight ReadChunk.
func (m *Mic) Close() error {
	m.closeOnce.Do(func() {
		if err := m.stream.Stop(); err != nil {
			m.closeErr = err
		}
		if err := m.stream.Close(); err != nil && m.closeErr == nil {
			m.closeErr = err
		}
		portaudio.Terminate()
	})
	return m.closeErr
}
