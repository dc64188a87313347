package diagnostics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Message results reported by MetricsEmitter.
const (
	ResultClean    = "clean"
	ResultDegraded = "degraded"
	ResultFailure  = "failure"
)

// MetricsEmitter counts outcomes and normalized messages in Prometheus.
type MetricsEmitter struct {
	outcomes *prometheus.CounterVec
	messages *prometheus.CounterVec
}

// NewMetricsEmitter registers the normalizer collectors under namespace. A
// nil registerer uses the default registry. Collectors that are already
// registered are reused.
func NewMetricsEmitter(registerer prometheus.Registerer, namespace string) (*MetricsEmitter, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "normalizer",
		Name:      "outcomes_total",
		Help:      "Diagnostic outcomes recorded while normalizing inbound messages",
	}, []string{"event", "field", "subscription"})
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "normalizer",
		Name:      "messages_total",
		Help:      "Inbound messages normalized, by result",
	}, []string{"subscription", "result"})

	var err error
	if outcomes, err = registerCounter(registerer, outcomes); err != nil {
		return nil, err
	}
	if messages, err = registerCounter(registerer, messages); err != nil {
		return nil, err
	}
	return &MetricsEmitter{outcomes: outcomes, messages: messages}, nil
}

func registerCounter(registerer prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// Emit increments one outcome counter per recorded outcome and one message
// counter for the report.
func (m *MetricsEmitter) Emit(r Report) {
	for _, o := range r.Outcomes {
		if o.Event == EventMessageReceived {
			continue
		}
		m.outcomes.WithLabelValues(string(o.Event), o.Field, r.Subscription).Inc()
	}
	m.messages.WithLabelValues(r.Subscription, result(r)).Inc()
}

func result(r Report) string {
	switch {
	case r.Count(EventNullMessage, "") > 0:
		return ResultFailure
	case len(r.Warnings()) > 0:
		return ResultDegraded
	default:
		return ResultClean
	}
}
