// Package gate implements the Interception Gate from spec.md §4.4: a single
// process-wide value holding the current mode (auto or manual) and a FIFO
// queue of pending requests, with atomic mode transitions and per-request
// release operations.
//
// All mutating operations are serialized behind one mutex. Gate-mutex
// critical sections never perform I/O — a pop returns ownership of a
// PendingRequest to the caller, who releases it (dials upstream, starts a
// pump) after the lock is released. This mirrors the teacher's
// sync.Map-guarded connection tracking in internal/tunnel/server.go,
// generalized to a FIFO because forward_one/set_auto require strict
// enqueue-order release (sync.Map cannot give that).
package gate
