package dbus

import (
	"errors"
	"fmt"
)

// SignalPopupShown is the member name of the signal sent when a translation is shown.
const SignalPopupShown = "PopupShown"

// EmitPopupShown broadcasts that text is now shown in the popup.
func (s *Server) EmitPopupShown(text string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("not connected to D-Bus")
	}

	if err := conn.Emit(ObjectPath, Interface+"."+SignalPopupShown, text); err != nil {
		return fmt.Errorf("failed to emit %s: %w", SignalPopupShown, err)
	}
	s.logger.Debug("emitted PopupShown signal", "text_len", len(text))
	return nil
}
