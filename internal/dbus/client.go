package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ErrNotRunning is returned by the client when no daemon owns the bus name.
var ErrNotRunning = errors.New("poptrans daemon is not running")

// Client calls the daemon's control interface.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens a private session bus connection.
func Connect() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection, which the client then owns.
func NewClient(conn *dbus.Conn) *Client {
	return &Client{conn: conn, obj: conn.Object(BusName, ObjectPath)}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Running reports whether a daemon owns the bus name.
func (c *Client) Running(ctx context.Context) (bool, error) {
	var owned bool
	err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, BusName).Store(&owned)
	return owned, err
}

// Trigger asks the daemon to translate the current selection.
func (c *Client) Trigger(ctx context.Context) error {
	return c.call(ctx, "Trigger")
}

// TranslateAt asks the daemon to translate text at a screen position.
func (c *Client) TranslateAt(ctx context.Context, text string, x, y int) error {
	return c.call(ctx, "TranslateAt", text, int32(x), int32(y))
}

// Hide hides the popup.
func (c *Client) Hide(ctx context.Context) error {
	return c.call(ctx, "Hide")
}

// Copy copies the shown translation.
func (c *Client) Copy(ctx context.Context) error {
	return c.call(ctx, "Copy")
}

// Quit stops the daemon.
func (c *Client) Quit(ctx context.Context) error {
	return c.call(ctx, "Quit")
}

// State returns the popup state name and shown text.
func (c *Client) State(ctx context.Context) (string, string, error) {
	var state, text string
	call := c.obj.CallWithContext(ctx, Interface+".GetState", 0)
	if call.Err != nil {
		return "", "", wrapCallError(call.Err)
	}
	if err := call.Store(&state, &text); err != nil {
		return "", "", err
	}
	return state, text, nil
}

// WatchShown calls fn with the text of every popup shown until ctx is done.
func (c *Client) WatchShown(ctx context.Context, fn func(text string)) error {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember(SignalPopupShown),
	}
	if err := c.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SignalPopupShown, err)
	}
	defer func() { _ = c.conn.RemoveMatchSignal(opts...) }()

	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)
	defer c.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return ErrNotRunning
			}
			if text, ok := popupShownText(sig); ok {
				fn(text)
			}
		}
	}
}

func popupShownText(sig *dbus.Signal) (string, bool) {
	if sig == nil || sig.Name != Interface+"."+SignalPopupShown || len(sig.Body) != 1 {
		return "", false
	}
	text, ok := sig.Body[0].(string)
	return text, ok
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) error {
	call := c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
	return wrapCallError(call.Err)
}

func wrapCallError(err error) error {
	if err == nil {
		return nil
	}
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && dbusErr.Name == "org.freedesktop.DBus.Error.ServiceUnknown" {
		return ErrNotRunning
	}
	return err
}
