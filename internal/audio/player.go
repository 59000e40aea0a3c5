package audio

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Tone parameters for the built-in chime.
const (
	ToneFrequency = 880
	ToneDuration  = 120 * time.Millisecond
)

// outputRate is the speaker sample rate; decoded files are resampled to it.
const outputRate = beep.SampleRate(44100)

// Player decodes and plays sounds through the default audio device.
type Player struct {
	mu          sync.Mutex
	logger      *slog.Logger
	volume      float64
	initialized bool
	cache       map[string]cachedSound

	// Output, replaced in tests.
	initSpeaker func(sr beep.SampleRate, bufferSize int) error
	play        func(s beep.Streamer)
}

type cachedSound struct {
	buffer  *beep.Buffer
	modTime time.Time
}

// NewPlayer creates a player at full volume. The speaker is opened lazily.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		logger:      logger,
		volume:      1,
		cache:       make(map[string]cachedSound),
		initSpeaker: speaker.Init,
		play:        func(s beep.Streamer) { speaker.Play(s) },
	}
}

// SetVolume sets the playback volume, clamped to 0..1.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = math.Max(0, math.Min(1, volume))
}

// Volume returns the playback volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlayFile plays a WAV, OGG or MP3 file. Decoded files are cached until
// their modification time changes.
func (p *Player) PlayFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("sound file: %w", err)
	}

	p.mu.Lock()
	cached, ok := p.cache[path]
	p.mu.Unlock()

	if !ok || !cached.modTime.Equal(info.ModTime()) {
		buf, err := decodeFile(path)
		if err != nil {
			return err
		}
		cached = cachedSound{buffer: buf, modTime: info.ModTime()}
		p.mu.Lock()
		p.cache[path] = cached
		p.mu.Unlock()
		p.logger.Debug("decoded sound", "path", path, "sample_rate", buf.Format().SampleRate)
	}

	var s beep.Streamer = cached.buffer.Streamer(0, cached.buffer.Len())
	if rate := cached.buffer.Format().SampleRate; rate != outputRate {
		s = beep.Resample(4, rate, outputRate, s)
	}
	return p.output(s)
}

// PlayTone plays the built-in chime.
func (p *Player) PlayTone() error {
	tone, err := generators.SineTone(outputRate, ToneFrequency)
	if err != nil {
		return fmt.Errorf("failed to generate tone: %w", err)
	}
	return p.output(beep.Take(outputRate.N(ToneDuration), tone))
}

func (p *Player) output(s beep.Streamer) error {
	p.mu.Lock()
	if !p.initialized {
		if err := p.initSpeaker(outputRate, outputRate.N(100*time.Millisecond)); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to initialize speaker: %w", err)
		}
		p.initialized = true
		p.logger.Debug("speaker initialized", "sample_rate", outputRate)
	}
	volume := p.volume
	p.mu.Unlock()

	if volume <= 0 {
		return nil
	}
	p.play(withVolume(s, volume))
	return nil
}

// withVolume scales s by a linear volume in 0..1.
func withVolume(s beep.Streamer, volume float64) beep.Streamer {
	if volume >= 1 {
		return s
	}
	return &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   math.Log2(volume),
		Silent:   volume <= 0,
	}
}

// Close stops playback and releases the audio device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
	p.cache = make(map[string]cachedSound)
}

func decodeFile(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode sound: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	return buf, nil
}
