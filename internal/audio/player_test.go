package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutput struct {
	inits  int
	played []beep.Streamer
	err    error
}

func newTestPlayer(out *fakeOutput) *Player {
	p := NewPlayer(nil)
	p.initSpeaker = func(beep.SampleRate, int) error {
		out.inits++
		return out.err
	}
	p.play = func(s beep.Streamer) { out.played = append(out.played, s) }
	return p
}

func writeWAV(t *testing.T, rate beep.SampleRate) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chime.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, generators.Silence(rate.N(50*time.Millisecond)), format))
	return path
}

func streamLen(s beep.Streamer) int {
	buf := make([][2]float64, 512)
	total := 0
	for {
		n, ok := s.Stream(buf)
		total += n
		if !ok || n == 0 {
			return total
		}
	}
}

func TestPlayer_PlayTone(t *testing.T) {
	out := &fakeOutput{}
	p := newTestPlayer(out)

	require.NoError(t, p.PlayTone())
	require.NoError(t, p.PlayTone())

	assert.Equal(t, 1, out.inits, "speaker opened once")
	require.Len(t, out.played, 2)
	assert.Equal(t, outputRate.N(ToneDuration), streamLen(out.played[0]))
}

func TestPlayer_PlayFile(t *testing.T) {
	out := &fakeOutput{}
	p := newTestPlayer(out)

	path := writeWAV(t, outputRate)
	require.NoError(t, p.PlayFile(path))
	require.Len(t, out.played, 1)
	assert.Len(t, p.cache, 1)

	require.NoError(t, p.PlayFile(path))
	assert.Len(t, out.played, 2)
}

func TestPlayer_PlayFileResamples(t *testing.T) {
	out := &fakeOutput{}
	p := newTestPlayer(out)

	require.NoError(t, p.PlayFile(writeWAV(t, 22050)))
	require.Len(t, out.played, 1)
	_, resampled := out.played[0].(*beep.Resampler)
	assert.True(t, resampled)
}

func TestPlayer_PlayFileErrors(t *testing.T) {
	out := &fakeOutput{}
	p := newTestPlayer(out)

	assert.Error(t, p.PlayFile(filepath.Join(t.TempDir(), "missing.wav")))

	txt := filepath.Join(t.TempDir(), "sound.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	assert.ErrorContains(t, p.PlayFile(txt), "unsupported audio format")

	bad := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(bad, []byte("not a wav"), 0o644))
	assert.ErrorContains(t, p.PlayFile(bad), "failed to decode")

	assert.Empty(t, out.played)
}

func TestPlayer_SpeakerFailure(t *testing.T) {
	out := &fakeOutput{err: errors.New("no audio device")}
	p := newTestPlayer(out)

	assert.ErrorContains(t, p.PlayTone(), "failed to initialize speaker")
	assert.Empty(t, out.played)
}

func TestPlayer_Volume(t *testing.T) {
	out := &fakeOutput{}
	p := newTestPlayer(out)

	p.SetVolume(2)
	assert.Equal(t, 1.0, p.Volume())

	p.SetVolume(0.5)
	require.NoError(t, p.PlayTone())
	require.Len(t, out.played, 1)
	vol, ok := out.played[0].(*effects.Volume)
	require.True(t, ok)
	assert.InDelta(t, -1, vol.Volume, 1e-9)

	p.SetVolume(-1)
	assert.Zero(t, p.Volume())
	require.NoError(t, p.PlayTone())
	assert.Len(t, out.played, 1, "muted chime is not played")
}

func TestWithVolume(t *testing.T) {
	s := generators.Silence(10)
	_, wrapped := withVolume(s, 1).(*effects.Volume)
	assert.False(t, wrapped, "full volume is passed through")

	v := withVolume(s, 0.25).(*effects.Volume)
	assert.InDelta(t, math.Log2(0.25), v.Volume, 1e-9)
	assert.Equal(t, 2.0, v.Base)
}
