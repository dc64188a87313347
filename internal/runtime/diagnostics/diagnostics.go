// Package diagnostics records what happened to each header field while a
// broker message was normalized and ships the result to a sink.
//
// A normalization pass fills one Recorder and emits one Report, so sinks see
// a single batched event per message while tests can still inspect every
// (event, field) pair.
package diagnostics

import "log/slog"

// Event names a diagnostic condition.
type Event string

const (
	EventFieldNotFound    Event = "field_not_found"
	EventFieldParseFailed Event = "field_parse_failed"
	EventNullMessage      Event = "null_message"
	EventNullBody         Event = "null_body"
	EventMessageReceived  Event = "message_received"
)

// Outcome is one recorded condition.
type Outcome struct {
	Event  Event
	Field  string
	Level  slog.Level
	Detail string
}

func (o Outcome) String() string {
	s := string(o.Event)
	if o.Field != "" {
		s += "(" + o.Field + ")"
	}
	if o.Detail != "" && o.Event != EventMessageReceived {
		s += ": " + o.Detail
	}
	return s
}

// Report is the batched result of one normalization pass.
type Report struct {
	Topic        string
	Subscription string
	MessageID    string
	Outcomes     []Outcome
}

// Count returns how many outcomes match event and field. An empty field
// matches any field.
func (r Report) Count(event Event, field string) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Event != event {
			continue
		}
		if field != "" && o.Field != field {
			continue
		}
		n++
	}
	return n
}

// Level returns the highest level among the outcomes, or debug when there
// are none.
func (r Report) Level() slog.Level {
	level := slog.LevelDebug
	for _, o := range r.Outcomes {
		if o.Level > level {
			level = o.Level
		}
	}
	return level
}

// Warnings returns the outcomes logged at warning level or above.
func (r Report) Warnings() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Level >= slog.LevelWarn {
			out = append(out, o)
		}
	}
	return out
}

// Received returns the body text carried by the message_received outcome.
func (r Report) Received() (string, bool) {
	for _, o := range r.Outcomes {
		if o.Event == EventMessageReceived {
			return o.Detail, true
		}
	}
	return "", false
}

// Recorder accumulates outcomes for a single pass. It is not safe for
// concurrent use; each pass owns its own Recorder.
type Recorder struct {
	report Report
}

// NewRecorder starts a report for topic and subscription.
func NewRecorder(topic, subscription string) *Recorder {
	return &Recorder{report: Report{Topic: topic, Subscription: subscription}}
}

// SetMessageID attaches the broker message id once it is known.
func (r *Recorder) SetMessageID(id string) {
	r.report.MessageID = id
}

// NotFound records a missing field.
func (r *Recorder) NotFound(field string) {
	r.add(Outcome{Event: EventFieldNotFound, Field: field, Level: slog.LevelWarn})
}

// ParseFailed records a field whose value could not be coerced.
func (r *Recorder) ParseFailed(field string, err error) {
	o := Outcome{Event: EventFieldParseFailed, Field: field, Level: slog.LevelWarn}
	if err != nil {
		o.Detail = err.Error()
	}
	r.add(o)
}

// NullMessage records a delivery without a message.
func (r *Recorder) NullMessage() {
	r.add(Outcome{Event: EventNullMessage, Level: slog.LevelWarn})
}

// NullBody records a message without a body.
func (r *Recorder) NullBody() {
	r.add(Outcome{Event: EventNullBody, Level: slog.LevelWarn})
}

// Received records the decoded body of a message.
func (r *Recorder) Received(body string) {
	r.add(Outcome{Event: EventMessageReceived, Level: slog.LevelDebug, Detail: body})
}

func (r *Recorder) add(o Outcome) {
	r.report.Outcomes = append(r.report.Outcomes, o)
}

// Report returns the accumulated report. The outcome slice is copied.
func (r *Recorder) Report() Report {
	out := r.report
	out.Outcomes = append([]Outcome(nil), r.report.Outcomes...)
	return out
}
