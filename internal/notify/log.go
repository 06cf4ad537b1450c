package notify

import "github.com/rileyhilliard/hostwatch/internal/logger"

// LogSink writes events to a logger. Recoveries log at info, everything
// else at warn.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(l logger.Logger) *LogSink {
	return &LogSink{log: logger.With(l, "[alert]")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(e Event) error {
	if e.Recovery() {
		s.log.Info("%s: %s", e.TargetID, e.Message)
		return nil
	}
	s.log.Warn("%s: %s", e.TargetID, e.Message)
	return nil
}
