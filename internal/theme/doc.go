// Package theme resolves the CSS that styles the translation popup. Themes are
// bundled (default, minimal), read from ~/.config/poptrans/themes/, or given
// as a path to a .css file. A theme read from disk is reloaded when it changes.
package theme
