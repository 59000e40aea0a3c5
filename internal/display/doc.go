// Package display drives the translation popup: when it appears, where it
// is placed, how it resizes to its content and when it hides again.
package display
