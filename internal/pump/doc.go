// Package pump implements the Byte Pump from spec.md §4.3: bidirectional,
// opaque, fixed-chunk copying between two byte streams until either side
// closes, with resource discipline (each stream closed exactly once) and
// liveness (a stalled direction never blocks its peer).
//
// Grounded on the teacher's internal/tunnel/handler.go Relay method (two
// goroutines closing their peer on EOF to unblock the other io.Copy) and
// internal/tunnel/buffers.go's pooled-buffer CopyWithBuffer, generalized to
// use golang.org/x/sync/errgroup so a direction's error is observable by the
// caller instead of only logged from inside the goroutine.
package pump
