package gate

import "sync"

// Mode is the Gate's process-wide interception mode.
type Mode int

const (
	// Auto forwards every accepted request without operator intervention.
	Auto Mode = iota
	// Manual enqueues every accepted request pending an operator decision.
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "manual"
	}
	return "auto"
}

// Releaser dials upstream and starts a Byte Pump for a PendingRequest. It is
// called with the Gate's mutex already released, per spec.md §5's
// "no I/O inside Gate critical sections" rule.
type Releaser interface {
	Release(PendingRequest)
}

// Gate is the Interception Gate from spec.md §4.4. The zero value is not
// usable; construct with New.
type Gate struct {
	releaser Releaser

	mu    sync.Mutex
	mode  Mode
	queue []PendingRequest
}

// New creates a Gate in Auto mode with an empty queue.
func New(releaser Releaser) *Gate {
	return &Gate{releaser: releaser, mode: Auto}
}

// Mode returns a lock-free-at-the-callsite snapshot of the current mode.
func (g *Gate) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Len returns the current queue depth.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// TryEnqueue is the checked_enqueue primitive from spec.md §4.4/§9: it
// enqueues pr and returns true only if the Gate is in Manual mode at the
// moment of the call. If the mode has already flipped to Auto, it returns
// false and pr is NOT enqueued — the caller must release pr itself (the
// same way Auto-mode requests are dispatched), closing the mode-flip race
// window described in spec.md §9.
func (g *Gate) TryEnqueue(pr PendingRequest) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode != Manual {
		return false
	}
	g.queue = append(g.queue, pr)
	return true
}

// SetManual transitions Auto -> Manual. Idempotent.
func (g *Gate) SetManual() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = Manual
}

// SetAuto transitions Manual -> Auto and drains the queue, releasing every
// pending request in FIFO order before returning. It returns the number of
// requests drained. Idempotent when already Auto (returns 0).
func (g *Gate) SetAuto() int {
	g.mu.Lock()
	g.mode = Auto
	drained := g.queue
	g.queue = nil
	g.mu.Unlock()

	for _, pr := range drained {
		g.releaser.Release(pr)
	}
	return len(drained)
}

// ForwardOne pops the head of the queue and releases it, returning the
// remaining queue depth. If the queue is empty it returns -1 and releases
// nothing.
func (g *Gate) ForwardOne() int {
	pr, remaining, ok := g.pop()
	if !ok {
		return -1
	}
	g.releaser.Release(pr)
	return remaining
}

// DropOne pops the head of the queue and closes its client connection
// without dialing upstream, returning the remaining queue depth. If the
// queue is empty it returns -1 and drops nothing.
func (g *Gate) DropOne() int {
	pr, remaining, ok := g.pop()
	if !ok {
		return -1
	}
	_ = pr.Client.Close()
	return remaining
}

// pop removes and returns the head of the queue under the lock, handing
// ownership back to the caller to act on after the lock is released.
func (g *Gate) pop() (PendingRequest, int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return PendingRequest{}, 0, false
	}
	pr := g.queue[0]
	g.queue = g.queue[1:]
	return pr, len(g.queue), true
}
