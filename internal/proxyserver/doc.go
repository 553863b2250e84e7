// Package proxyserver binds the listening socket and coordinates its
// lifecycle with the Operator Console, per spec.md §4.6's description of
// the accept loop and shutdown behavior.
//
// Grounded on the teacher's internal/tunnel/server.go Server (the
// sync.Map/atomic active-connection tracking in Add/Remove) and
// internal/tunnel/listen.go's serveListener (an accept loop cancelled via a
// context rather than the teacher's own running flag / 2s accept
// deadline, since a single plaintext listener has no TLS variant to run
// alongside it here). The console and the listener are run as sibling
// errgroup.Group goroutines, grounded on docker-compose/pkg/compose/up.go's
// combination of a context-cancelling goroutine with a keyboard-event
// goroutine.
package proxyserver
