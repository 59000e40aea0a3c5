package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/dbus"
)

// NotificationLevel indicates the urgency of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// InternalNotifier sends desktop notifications about the daemon itself.
// The same key is not notified again within the minimum interval.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	send func(dbus.Notification) error
	now  func() time.Time

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
}

// NewInternalNotifier creates a notifier. send may be nil, in which case
// notifications are only logged.
func NewInternalNotifier(send func(dbus.Notification) error, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		send:           send,
		now:            time.Now,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        true,
	}
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notification unless it is disabled or rate-limited.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled {
		return
	}
	if n.send == nil {
		n.logger.Debug("internal notification skipped: no sender", "summary", summary)
		return
	}

	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
		return
	}
	n.lastNotifyTime[key] = now

	note := dbus.Notification{
		AppName:       config.AppName,
		Summary:       summary,
		Body:          body,
		ExpireTimeout: 5000,
	}
	switch level {
	case NotificationLevelInfo:
		note.Urgency = dbus.UrgencyLow
		note.AppIcon = "dialog-information"
	case NotificationLevelWarning:
		note.Urgency = dbus.UrgencyNormal
		note.AppIcon = "dialog-warning"
	case NotificationLevelError:
		note.Urgency = dbus.UrgencyCritical
		note.AppIcon = "dialog-error"
		note.ExpireTimeout = 0
	}

	n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", level)
	if err := n.send(note); err != nil {
		n.logger.Warn("failed to send notification", "summary", summary, "error", err)
	}
}

// NotifySetupNeeded tells the user how to finish setting up.
func (n *InternalNotifier) NotifySetupNeeded(reason string) {
	n.Notify(
		"setup",
		"poptrans needs setup",
		reason+" Run `poptrans settings` to configure it.",
		NotificationLevelWarning,
	)
}

// NotifyConfigError sends a notification about a config file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyThemeError sends a notification about a theme that failed to load.
func (n *InternalNotifier) NotifyThemeError(err error) {
	n.Notify(
		"theme-error",
		"Theme Error",
		"Failed to load theme: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyShortcutError sends a notification about a hotkey that could not be used.
func (n *InternalNotifier) NotifyShortcutError(shortcut string, err error) {
	n.Notify(
		"shortcut-error",
		"Shortcut Unavailable",
		"Cannot listen for "+shortcut+": "+err.Error(),
		NotificationLevelWarning,
	)
}
