package diagnostics

import (
	"github.com/drblury/ingress/internal/runtime/logging"
)

// LogEmitter writes reports through a ServiceLogger. The received body is
// logged at debug level; degraded or missing metadata is summarized in one
// warning line per report.
type LogEmitter struct {
	logger logging.ServiceLogger
}

// NewLogEmitter builds a LogEmitter.
func NewLogEmitter(logger logging.ServiceLogger) *LogEmitter {
	if logger == nil {
		panic("ingress: ServiceLogger cannot be nil")
	}
	return &LogEmitter{logger: logger}
}

// Emit logs r.
func (l *LogEmitter) Emit(r Report) {
	fields := logging.LogFields{
		"topic":        r.Topic,
		"subscription": r.Subscription,
	}
	if r.MessageID != "" {
		fields["message_id"] = r.MessageID
	}
	log := l.logger.With(fields)

	if r.Count(EventNullMessage, "") > 0 {
		log.Warn("null message received", nil)
		return
	}

	if body, ok := r.Received(); ok {
		log.Debug("message received", logging.LogFields{"body": body})
	}

	warnings := r.Warnings()
	if len(warnings) == 0 {
		return
	}
	outcomes := make([]string, 0, len(warnings))
	for _, o := range warnings {
		outcomes = append(outcomes, o.String())
	}
	log.Warn("message normalized with default metadata", logging.LogFields{
		"outcomes":       outcomes,
		"missing_fields": r.Count(EventFieldNotFound, ""),
		"invalid_fields": r.Count(EventFieldParseFailed, ""),
		"null_body":      r.Count(EventNullBody, "") > 0,
	})
}
