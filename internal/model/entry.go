package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is one recorded translation in the history file.
type Entry struct {
	ID         string `json:"id" yaml:"id"`
	Timestamp  int64  `json:"timestamp" yaml:"timestamp"`
	SourceText string `json:"source_text" yaml:"source_text"`
	ResultText string `json:"result_text,omitempty" yaml:"result_text,omitempty"`
	SourceLang string `json:"source_lang" yaml:"source_lang"`
	TargetLang string `json:"target_lang" yaml:"target_lang"`
	Success    bool   `json:"success" yaml:"success"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Validation errors.
var (
	ErrEmptyEntryID      = errors.New("id cannot be empty")
	ErrInvalidEntryTime  = errors.New("timestamp must be greater than 0")
	ErrEmptyLanguagePair = errors.New("source_lang and target_lang cannot be empty")
)

// NewEntry creates a history entry with a fresh ULID for a finished translation.
func NewEntry(text string, res Result, sourceLang, targetLang string) (*Entry, error) {
	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}

	return &Entry{
		ID:         id.String(),
		Timestamp:  now.Unix(),
		SourceText: text,
		ResultText: res.Text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Success:    res.Success,
		Error:      res.Error,
	}, nil
}

// Validate checks that the entry has all required fields.
func (e *Entry) Validate() error {
	if e.ID == "" {
		return ErrEmptyEntryID
	}
	if e.Timestamp <= 0 {
		return ErrInvalidEntryTime
	}
	if e.SourceLang == "" || e.TargetLang == "" {
		return ErrEmptyLanguagePair
	}
	return nil
}

// Time returns the timestamp as a time.Time.
func (e *Entry) Time() time.Time {
	return time.Unix(e.Timestamp, 0)
}

// Result returns the translation outcome recorded in the entry.
func (e *Entry) Result() Result {
	return Result{Success: e.Success, Text: e.ResultText, Error: e.Error}
}

// Summary returns s collapsed to a single line and cut to maxLen runes.
func Summary(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	line := []rune(strings.Join(strings.Fields(s), " "))
	if len(line) <= maxLen {
		return string(line)
	}
	if maxLen <= 3 {
		return string(line[:maxLen])
	}
	return string(line[:maxLen-3]) + "..."
}
