// Package dbus exposes the poptrans daemon on the session bus. Owning the
// bus name enforces a single daemon per session, and the exported methods
// let the CLI, the tray and compositor key bindings drive the popup.
package dbus
