package dbus

import (
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	calls []string
	text  string
	x, y  int
}

func (h *fakeHandler) Trigger() { h.calls = append(h.calls, "trigger") }
func (h *fakeHandler) TranslateAt(text string, x, y int) {
	h.calls = append(h.calls, "translate")
	h.text, h.x, h.y = text, x, y
}
func (h *fakeHandler) Hide()                   { h.calls = append(h.calls, "hide") }
func (h *fakeHandler) Copy()                   { h.calls = append(h.calls, "copy") }
func (h *fakeHandler) State() (string, string) { return "done", "你好" }
func (h *fakeHandler) Quit()                   { h.calls = append(h.calls, "quit") }

func TestObject_Dispatch(t *testing.T) {
	h := &fakeHandler{}
	o := &object{handler: h, logger: slog.Default()}

	assert.Nil(t, o.Trigger())
	assert.Nil(t, o.TranslateAt("hello", 10, -20))
	assert.Nil(t, o.Hide())
	assert.Nil(t, o.Copy())
	assert.Nil(t, o.Quit())

	assert.Equal(t, []string{"trigger", "translate", "hide", "copy", "quit"}, h.calls)
	assert.Equal(t, "hello", h.text)
	assert.Equal(t, 10, h.x)
	assert.Equal(t, -20, h.y)

	state, text, derr := o.GetState()
	assert.Nil(t, derr)
	assert.Equal(t, "done", state)
	assert.Equal(t, "你好", text)
}

func TestIntrospection_MatchesExportedMethods(t *testing.T) {
	typ := reflect.TypeOf(&object{})
	var exported []string
	for i := 0; i < typ.NumMethod(); i++ {
		exported = append(exported, typ.Method(i).Name)
	}

	var declared []string
	for _, m := range methods() {
		declared = append(declared, m.Name)
	}
	assert.ElementsMatch(t, exported, declared)

	require.Len(t, signals(), 1)
	assert.Equal(t, SignalPopupShown, signals()[0].Name)
}

func TestEmitPopupShown_NotConnected(t *testing.T) {
	s := NewServer(&fakeHandler{}, nil)
	assert.Error(t, s.EmitPopupShown("hello"))
	assert.NoError(t, s.Stop(), "stopping a server that never started")
}

func TestPopupShownText(t *testing.T) {
	text, ok := popupShownText(&dbus.Signal{Name: Interface + ".PopupShown", Body: []interface{}{"hi"}})
	assert.True(t, ok)
	assert.Equal(t, "hi", text)

	_, ok = popupShownText(&dbus.Signal{Name: "org.other.Signal", Body: []interface{}{"hi"}})
	assert.False(t, ok)

	_, ok = popupShownText(&dbus.Signal{Name: Interface + ".PopupShown", Body: []interface{}{42}})
	assert.False(t, ok)

	_, ok = popupShownText(nil)
	assert.False(t, ok)
}

func TestWrapCallError(t *testing.T) {
	assert.NoError(t, wrapCallError(nil))

	unknown := dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown"}
	assert.ErrorIs(t, wrapCallError(unknown), ErrNotRunning)

	other := errors.New("boom")
	assert.Equal(t, other, wrapCallError(other))
}

func TestNotifyArgs(t *testing.T) {
	args := notifyArgs(Notification{
		AppName:       "poptrans",
		AppIcon:       "dialog-warning",
		Summary:       "Setup needed",
		Body:          "Run poptrans settings",
		Urgency:       UrgencyNormal,
		ExpireTimeout: 5000,
	})

	require.Len(t, args, 8)
	assert.Equal(t, "poptrans", args[0])
	assert.Equal(t, uint32(0), args[1])
	assert.Equal(t, "dialog-warning", args[2])
	assert.Equal(t, "Setup needed", args[3])
	assert.Equal(t, "Run poptrans settings", args[4])
	assert.Equal(t, int32(5000), args[7])

	hints, ok := args[6].(map[string]dbus.Variant)
	require.True(t, ok)
	assert.Equal(t, UrgencyNormal, hints["urgency"].Value())
	assert.Equal(t, true, hints["transient"].Value())
}
