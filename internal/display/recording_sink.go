package display

import "sync"

// RecordingSink is a Sink that stores every event it receives, for use in
// tests of components that emit display events (Connection Handler, Gate
// wiring, Operator Console).
type RecordingSink struct {
	mu sync.Mutex

	Requests     []RequestEvent
	ModeChanges  []modeChange
	Decisions    []decision
	QueueEmpties int
	Shutdowns    int
}

type modeChange struct {
	To      Mode
	Drained int
}

type decision struct {
	Kind      DecisionKind
	Remaining int
}

func (s *RecordingSink) Request(ev RequestEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, ev)
}

func (s *RecordingSink) ModeChanged(to Mode, drained int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ModeChanges = append(s.ModeChanges, modeChange{To: to, Drained: drained})
}

func (s *RecordingSink) Decision(kind DecisionKind, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Decisions = append(s.Decisions, decision{Kind: kind, Remaining: remaining})
}

func (s *RecordingSink) QueueEmpty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueueEmpties++
}

func (s *RecordingSink) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Shutdowns++
}
