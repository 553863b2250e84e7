// Package console implements the Operator Console from spec.md §4.5: a
// cbreak-mode keyboard reader that maps three single-key commands onto the
// Interception Gate.
//
// Grounded on docker-compose/pkg/compose/up.go's navigation-menu goroutine
// (keyboard.GetKeys as an event channel selected alongside a shutdown
// signal, with keyboard.Close() on every exit path) and
// docker-compose/cmd/formatter/shortcut.go's KeyCtrlC handling. The key
// assignments themselves (s toggles mode, f forwards one, d drops one) come
// from original_source/netzy-proxy-https.py's keyboard_handler.
package console
