package display

import "github.com/sirupsen/logrus"

// LogrusSink emits every display event as a structured logrus entry,
// grounded on docker-compose/pkg/compose/up.go's direct use of
// github.com/sirupsen/logrus for leveled, field-carrying log lines.
type LogrusSink struct {
	log *logrus.Logger
}

// NewLogrusSink wraps an existing logger. Pass logrus.StandardLogger() to
// use the package-level default.
func NewLogrusSink(log *logrus.Logger) *LogrusSink {
	return &LogrusSink{log: log}
}

func (s *LogrusSink) Request(ev RequestEvent) {
	fields := logrus.Fields{
		"client_addr": ev.ClientAddr,
		"protocol":    ev.Protocol.String(),
		"method":      ev.Method,
		"host":        ev.Host,
		"target":      ev.Target,
		"queue_depth": ev.QueueDepth,
	}
	for name, value := range ev.SelectedHeaders {
		fields["header."+name] = value
	}
	s.log.WithFields(fields).Info("request")
}

func (s *LogrusSink) ModeChanged(to Mode, drained int) {
	entry := s.log.WithField("mode", to.String())
	if to == Auto {
		entry = entry.WithField("drained", drained)
	}
	entry.Info("mode changed")
}

func (s *LogrusSink) Decision(kind DecisionKind, remaining int) {
	s.log.WithFields(logrus.Fields{
		"decision":  kind.String(),
		"remaining": remaining,
	}).Info("decision")
}

func (s *LogrusSink) QueueEmpty() {
	s.log.Info("queue empty")
}

func (s *LogrusSink) Shutdown() {
	s.log.Info("shutdown")
}
