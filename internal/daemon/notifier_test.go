package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/poptrans/internal/dbus"
)

type sentNotes struct {
	notes []dbus.Notification
	err   error
}

func (s *sentNotes) send(n dbus.Notification) error {
	s.notes = append(s.notes, n)
	return s.err
}

func TestInternalNotifier_Levels(t *testing.T) {
	tests := []struct {
		level   NotificationLevel
		urgency byte
		icon    string
	}{
		{NotificationLevelInfo, dbus.UrgencyLow, "dialog-information"},
		{NotificationLevelWarning, dbus.UrgencyNormal, "dialog-warning"},
		{NotificationLevelError, dbus.UrgencyCritical, "dialog-error"},
	}

	for _, tt := range tests {
		sent := &sentNotes{}
		n := NewInternalNotifier(sent.send, nil)
		n.Notify("key", "Summary", "Body", tt.level)

		require.Len(t, sent.notes, 1)
		note := sent.notes[0]
		assert.Equal(t, "poptrans", note.AppName)
		assert.Equal(t, "Summary", note.Summary)
		assert.Equal(t, tt.urgency, note.Urgency)
		assert.Equal(t, tt.icon, note.AppIcon)
	}
}

func TestInternalNotifier_RateLimit(t *testing.T) {
	sent := &sentNotes{}
	n := NewInternalNotifier(sent.send, nil)
	now := time.Unix(1000, 0)
	n.now = func() time.Time { return now }

	n.NotifyConfigError(errors.New("bad toml"))
	n.NotifyConfigError(errors.New("still bad"))
	require.Len(t, sent.notes, 1)
	assert.Contains(t, sent.notes[0].Body, "bad toml")

	// Different keys are limited separately
	n.NotifyThemeError(errors.New("missing"))
	assert.Len(t, sent.notes, 2)

	now = now.Add(6 * time.Second)
	n.NotifyConfigError(errors.New("again"))
	assert.Len(t, sent.notes, 3)
}

func TestInternalNotifier_DisabledOrNoSender(t *testing.T) {
	sent := &sentNotes{}
	n := NewInternalNotifier(sent.send, nil)
	n.SetEnabled(false)
	n.NotifySetupNeeded("No API key is set.")
	assert.Empty(t, sent.notes)

	// Without a sender the notification is dropped quietly
	NewInternalNotifier(nil, nil).NotifySetupNeeded("No API key is set.")
}

func TestInternalNotifier_SendErrorDoesNotPanic(t *testing.T) {
	sent := &sentNotes{err: errors.New("no notification daemon")}
	n := NewInternalNotifier(sent.send, nil)
	n.NotifySetupNeeded("No API key is set.")
	assert.Len(t, sent.notes, 1)
	assert.Contains(t, sent.notes[0].Body, "poptrans settings")
}
