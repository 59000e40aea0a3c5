// Package daemon wires poptransd together. It adapts the translate client
// and history store to the popup controller, serves D-Bus calls, applies
// config hot reload, and reports setup problems as desktop notifications.
package daemon
