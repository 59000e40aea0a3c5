package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	// BusName is the well-known name owned by the daemon.
	BusName = "io.github.jmylchreest.Poptrans"
	// ObjectPath is the path of the exported object.
	ObjectPath = dbus.ObjectPath("/io/github/jmylchreest/Poptrans")
	// Interface is the exported interface name.
	Interface = "io.github.jmylchreest.Poptrans"
)

// ErrAlreadyRunning is returned when another daemon owns the bus name.
var ErrAlreadyRunning = errors.New("poptrans daemon is already running")

// Handler carries out requests received over D-Bus. Methods are called on
// godbus's dispatch goroutine and must not block.
type Handler interface {
	// Trigger translates the current selection at the last click position.
	Trigger()
	// TranslateAt translates text with the popup anchored at x, y.
	TranslateAt(text string, x, y int)
	Hide()
	Copy()
	// State returns the popup state name and the shown text, if any.
	State() (state, text string)
	Quit()
}

// Server owns the bus name and exports the control object.
type Server struct {
	mu      sync.Mutex
	conn    *dbus.Conn
	handler Handler
	logger  *slog.Logger
	running bool
}

// NewServer creates a server dispatching to handler.
func NewServer(handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{handler: handler, logger: logger}
}

// Start connects to the session bus, exports the object and claims the bus
// name. It returns ErrAlreadyRunning if another daemon holds the name.
func (s *Server) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if err := s.StartOn(conn); err != nil {
		conn.Close()
		return err
	}
	return nil
}

// StartOn is Start on an existing connection, which the server then owns.
func (s *Server) StartOn(conn *dbus.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("server already running")
	}

	obj := &object{handler: s.handler, logger: s.logger}
	if err := conn.Export(obj, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}
	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: Interface, Methods: methods(), Signals: signals()},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return ErrAlreadyRunning
	}

	s.conn = conn
	s.running = true
	s.logger.Info("D-Bus control interface started", "bus_name", BusName, "path", ObjectPath)
	return nil
}

// Stop releases the bus name and closes the connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(BusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// object is the exported D-Bus object. Only its D-Bus methods are exported.
type object struct {
	handler Handler
	logger  *slog.Logger
}

func (o *object) Trigger() *dbus.Error {
	o.logger.Debug("D-Bus Trigger called")
	o.handler.Trigger()
	return nil
}

func (o *object) TranslateAt(text string, x, y int32) *dbus.Error {
	o.logger.Debug("D-Bus TranslateAt called", "text_len", len(text), "x", x, "y", y)
	o.handler.TranslateAt(text, int(x), int(y))
	return nil
}

func (o *object) Hide() *dbus.Error {
	o.handler.Hide()
	return nil
}

func (o *object) Copy() *dbus.Error {
	o.handler.Copy()
	return nil
}

func (o *object) GetState() (string, string, *dbus.Error) {
	state, text := o.handler.State()
	return state, text, nil
}

func (o *object) Quit() *dbus.Error {
	o.logger.Info("quit requested over D-Bus")
	o.handler.Quit()
	return nil
}

func methods() []introspect.Method {
	return []introspect.Method{
		{Name: "Trigger"},
		{
			Name: "TranslateAt",
			Args: []introspect.Arg{
				{Name: "text", Type: "s", Direction: "in"},
				{Name: "x", Type: "i", Direction: "in"},
				{Name: "y", Type: "i", Direction: "in"},
			},
		},
		{Name: "Hide"},
		{Name: "Copy"},
		{
			Name: "GetState",
			Args: []introspect.Arg{
				{Name: "state", Type: "s", Direction: "out"},
				{Name: "text", Type: "s", Direction: "out"},
			},
		},
		{Name: "Quit"},
	}
}

func signals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "PopupShown",
			Args: []introspect.Arg{{Name: "text", Type: "s"}},
		},
	}
}
