package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// decoder streams mono samples in [-1, 1] out of one audio file.
type decoder interface {
	// ReadSamples fills dst and returns the number of samples written.
	// Returns io.EOF when the file is exhausted.
	ReadSamples(dst []float64) (int, error)
	SampleRate() int
}

// openDecoder constructs a decoder reading from an open file.
type openDecoder func(f *os.File) (decoder, error)

// decoders is the replay format registry, keyed by file extension.
var decoders = map[string]openDecoder{
	".wav": newWAVDecoder,
	".mp3": newMP3Decoder,
	".ogg": newOGGDecoder,
}

// fileSource replays an audio file as real-time paced chunks, looping at
// EOF by reopening the file. It reports the file's own sample rate.
type fileSource struct {
	path      string
	chunkSize int
	file      *os.File
	dec       decoder
	next      time.Time
	interval  time.Duration
}

// OpenFile opens an audio file (WAV, MP3, or Ogg Vorbis by extension) as a
// chunked Source. Stereo content is downmixed to mono by averaging.
func OpenFile(path string, chunkSize int) (Source, error) {
	open, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	dec, err := open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	s := &fileSource{
		path:      path,
		chunkSize: chunkSize,
		file:      f,
		dec:       dec,
		next:      time.Now(),
		interval:  time.Duration(float64(chunkSize) / float64(dec.SampleRate()) * float64(time.Second)),
	}
	slog.Info("replaying audio file", "path", path, "rate", dec.SampleRate(), "chunk", chunkSize)
	return s, nil
}

func (s *fileSource) SampleRate() int { return s.dec.SampleRate() }

// ReadChunk returns the next chunk, sleeping as needed so chunks arrive at
// the file's natural playback rate.
func (s *fileSource) ReadChunk() (Chunk, error) {
	if wait := time.Until(s.next); wait > 0 {
		time.Sleep(wait)
	}
	s.next = s.next.Add(s.interval)
	if time.Until(s.next) < -s.interval {
		// Fell behind (slow consumer or rewind); restart the clock.
		s.next = time.Now().Add(s.interval)
	}

	chunk := make(Chunk, s.chunkSize)
	filled := 0
	rewinds := 0
	for filled < s.chunkSize {
		n, err := s.dec.ReadSamples(chunk[filled:])
		filled += n
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read replay file: %w", err)
		}
		if err == io.EOF || n == 0 {
			if rewinds++; rewinds > 1 {
				return nil, fmt.Errorf("replay file %s yields no samples", s.path)
			}
			if err := s.rewind(); err != nil {
				return nil, err
			}
		}
	}
	return chunk, nil
}

// rewind reopens the file and rebuilds the decoder so playback loops.
func (s *fileSource) rewind() error {
	s.file.Close()
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("reopen replay file: %w", err)
	}
	dec, err := decoders[strings.ToLower(filepath.Ext(s.path))](f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	s.file, s.dec = f, dec
	return nil
}

func (s *fileSource) Close() error {
	return s.file.Close()
}

// --- WAV (go-audio/wav) ---

type wavDecoder struct {
	dec      *wav.Decoder
	buf      *goaudio.IntBuffer
	channels int
	scale    float64
}

func newWAVDecoder(f *os.File) (decoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file: %w", ErrUnknownFormat)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		// Anything else would corrupt the sample scale below.
		return nil, fmt.Errorf("unsupported wav bit depth %d: %w", dec.BitDepth, ErrUnknownFormat)
	}
	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	return &wavDecoder{
		dec:      dec,
		buf:      &goaudio.IntBuffer{Data: make([]int, 4096)},
		channels: channels,
		scale:    float64(int(1) << (dec.BitDepth - 1)),
	}, nil
}

func (d *wavDecoder) SampleRate() int { return int(d.dec.SampleRate) }

func (d *wavDecoder) ReadSamples(dst []float64) (int, error) {
	want := len(dst) * d.channels
	if cap(d.buf.Data) < want {
		d.buf.Data = make([]int, want)
	}
	d.buf.Data = d.buf.Data[:want]

	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	frames := n / d.channels
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < d.channels; c++ {
			sum += float64(d.buf.Data[i*d.channels+c])
		}
		dst[i] = sum / float64(d.channels) / d.scale
	}
	return frames, nil
}

// --- MP3 (hajimehoshi/go-mp3) ---

// go-mp3 always outputs 16-bit little-endian stereo.
type mp3Decoder struct {
	dec *mp3.Decoder
	buf []byte
}

func newMP3Decoder(f *os.File) (decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) SampleRate() int { return d.dec.SampleRate() }

func (d *mp3Decoder) ReadSamples(dst []float64) (int, error) {
	want := len(dst) * 4 // 2 channels x 2 bytes per sample
	if cap(d.buf) < want {
		d.buf = make([]byte, want)
	}
	n, err := d.dec.Read(d.buf[:want])
	frames := n / 4
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(d.buf[4*i:]))
		right := int16(binary.LittleEndian.Uint16(d.buf[4*i+2:]))
		dst[i] = (float64(left) + float64(right)) / 2 / 32768.0
	}
	if frames == 0 && err == nil {
		return 0, io.EOF
	}
	if err == io.EOF && frames > 0 {
		err = nil
	}
	return frames, err
}

// --- Ogg Vorbis (jfreymuth/oggvorbis) ---

type oggDecoder struct {
	dec *oggvorbis.Reader
	buf []float32
}

func newOGGDecoder(f *os.File) (decoder, error) {
	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, err
	}
	return &oggDecoder{dec: dec}, nil
}

func (d *oggDecoder) SampleRate() int { return d.dec.SampleRate() }

func (d *oggDecoder) ReadSamples(dst []float64) (int, error) {
	channels := d.dec.Channels()
	want := len(dst) * channels
	if cap(d.buf) < want {
		d.buf = make([]float32, want)
	}
	n, err := d.dec.Read(d.buf[:want]) // n is a multiple of the channel count
	frames := n / channels
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(d.buf[i*channels+c])
		}
		dst[i] = sum / float64(channels)
	}
	if frames == 0 && err == nil {
		return 0, io.EOF
	}
	if err == io.EOF && frames > 0 {
		err = nil
	}
	return frames, err
}
