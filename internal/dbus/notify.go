package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Desktop notification service, used for messages about the daemon itself.
const (
	notifyBusName    = "org.freedesktop.Notifications"
	notifyObjectPath = "/org/freedesktop/Notifications"
	notifyMethod     = notifyBusName + ".Notify"
)

// Urgency levels from the desktop notification spec.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// Notification is a desktop notification sent by the daemon.
type Notification struct {
	AppName       string
	AppIcon       string
	Summary       string
	Body          string
	Urgency       byte
	ExpireTimeout int32 // milliseconds, -1 = server default
}

// Notifier sends desktop notifications on a session bus connection.
type Notifier struct {
	conn *dbus.Conn
}

// NewNotifier uses conn, which stays owned by the caller.
func NewNotifier(conn *dbus.Conn) *Notifier {
	return &Notifier{conn: conn}
}

// Notify sends n and returns the server's notification ID.
func (n *Notifier) Notify(note Notification) (uint32, error) {
	var id uint32
	obj := n.conn.Object(notifyBusName, notifyObjectPath)
	call := obj.Call(notifyMethod, 0, notifyArgs(note)...)
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}
	return id, nil
}

// notifyArgs builds the Notify argument list.
func notifyArgs(n Notification) []interface{} {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(n.Urgency),
		"transient":     dbus.MakeVariant(true),
		"desktop-entry": dbus.MakeVariant(n.AppName),
	}
	return []interface{}{
		n.AppName,
		uint32(0), // replaces_id
		n.AppIcon,
		n.Summary,
		n.Body,
		[]string{},
		hints,
		n.ExpireTimeout,
	}
}

// Conn returns the server's bus connection, or nil when not started.
func (s *Server) Conn() *dbus.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}
