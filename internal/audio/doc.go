// Package audio plays the optional chime when a translation popup appears.
// It decodes WAV, OGG and MP3 files with beep, or synthesises a short tone
// when no file is configured.
package audio
