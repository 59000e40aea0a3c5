// Package selection reads the user's text selection and writes copied
// translations to the clipboard.
package selection

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	atotto "github.com/atotto/clipboard"
	"golang.design/x/clipboard"
)

// MaxLength is the longest selection, in characters, that is translated.
const MaxLength = 1000

// ErrUnavailable is returned when no clipboard backend works.
var ErrUnavailable = errors.New("clipboard unavailable")

// Clipboard reads the PRIMARY selection and writes the regular clipboard.
// All access is serialized.
type Clipboard struct {
	mu     sync.Mutex
	logger *slog.Logger

	initOnce sync.Once
	initErr  error

	// Backends, replaced in tests.
	initNative    func() error
	writeNative   func(text string)
	readPrimary   func() (string, error)
	writeFallback func(text string) error
}

// New creates a clipboard. The native backend is initialised on first write.
func New(logger *slog.Logger) *Clipboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clipboard{
		logger:     logger,
		initNative: clipboard.Init,
		writeNative: func(text string) {
			clipboard.Write(clipboard.FmtText, []byte(text))
		},
		readPrimary: func() (string, error) {
			atotto.Primary = true
			defer func() { atotto.Primary = false }()
			return atotto.ReadAll()
		},
		writeFallback: func(text string) error {
			atotto.Primary = false
			return atotto.WriteAll(text)
		},
	}
}

// Capture returns the current selection, truncated to MaxLength characters.
// It reports false when nothing but whitespace is selected.
func (c *Clipboard) Capture() (string, bool) {
	c.mu.Lock()
	text, err := c.readPrimary()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("failed to read selection", "error", err)
		return "", false
	}
	return Prepare(text)
}

// Prepare applies the selection rules to text: whitespace-only input is
// rejected and long input is cut to MaxLength characters.
func Prepare(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	if utf8.RuneCountInString(text) <= MaxLength {
		return text, true
	}

	n := 0
	for i := range text {
		if n == MaxLength {
			return text[:i], true
		}
		n++
	}
	return text, true
}

// WriteText puts text on the clipboard, preferring the native X11 backend
// and falling back to the command-line tools (wl-copy, xclip, xsel).
func (c *Clipboard) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.initOnce.Do(func() {
		c.initErr = c.initNative()
		if c.initErr != nil {
			c.logger.Debug("native clipboard unavailable, using command-line tools", "error", c.initErr)
		}
	})

	if c.initErr == nil {
		c.writeNative(text)
		return nil
	}

	if err := c.writeFallback(text); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
