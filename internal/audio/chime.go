package audio

import (
	"log/slog"
	"sync"
)

// Settings selects what the chime plays.
type Settings struct {
	Enabled bool
	File    string // empty = built-in tone
	Volume  float64
}

type sounder interface {
	SetVolume(volume float64)
	PlayFile(path string) error
	PlayTone() error
}

// Chime plays the popup sound according to the current settings.
type Chime struct {
	mu       sync.RWMutex
	settings Settings
	player   sounder
	logger   *slog.Logger
}

// NewChime creates a chime backed by a new Player.
func NewChime(settings Settings, logger *slog.Logger) *Chime {
	if logger == nil {
		logger = slog.Default()
	}
	return newChime(settings, NewPlayer(logger), logger)
}

func newChime(settings Settings, player sounder, logger *slog.Logger) *Chime {
	c := &Chime{player: player, logger: logger}
	c.Update(settings)
	return c
}

// Update applies new settings.
func (c *Chime) Update(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
	c.player.SetVolume(s.Volume)
}

// Play plays the chime if enabled. A configured file that fails to play
// falls back to the tone. Errors are logged, not returned.
func (c *Chime) Play() {
	c.mu.RLock()
	s := c.settings
	c.mu.RUnlock()

	if !s.Enabled {
		return
	}

	if s.File != "" {
		err := c.player.PlayFile(s.File)
		if err == nil {
			return
		}
		c.logger.Warn("failed to play sound file, using tone", "path", s.File, "error", err)
	}
	if err := c.player.PlayTone(); err != nil {
		c.logger.Warn("failed to play chime", "error", err)
	}
}

// Close releases the audio device if the chime owns a Player.
func (c *Chime) Close() {
	if p, ok := c.player.(*Player); ok {
		p.Close()
	}
}
