package diagnostics

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Emitter receives one Report per normalization pass. Implementations must
// not retain or modify the report's outcome slice.
type Emitter interface {
	Emit(Report)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Report)

// Emit calls f.
func (f EmitterFunc) Emit(r Report) { f(r) }

type discard struct{}

func (discard) Emit(Report) {}

// Discard drops every report.
var Discard Emitter = discard{}

type multiEmitter []Emitter

func (m multiEmitter) Emit(r Report) {
	for _, e := range m {
		e.Emit(r)
	}
}

// Multi fans a report out to every non-nil emitter in order.
func Multi(emitters ...Emitter) Emitter {
	out := make(multiEmitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return Discard
	case 1:
		return out[0]
	}
	return out
}

var panicLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))

type safeEmitter struct {
	inner Emitter
}

// Safe wraps e so a panicking sink cannot escape into the caller. A nil e
// behaves like Discard.
func Safe(e Emitter) Emitter {
	if e == nil {
		return Discard
	}
	if s, ok := e.(safeEmitter); ok {
		return s
	}
	return safeEmitter{inner: e}
}

func (s safeEmitter) Emit(r Report) {
	defer func() {
		if rec := recover(); rec != nil {
			panicLogger.Error("diagnostic emitter panicked",
				slog.String("panic", fmt.Sprint(rec)),
				slog.String("topic", r.Topic),
				slog.String("subscription", r.Subscription),
			)
		}
	}()
	s.inner.Emit(r)
}

// Collector keeps reports in memory.
type Collector struct {
	mu      sync.Mutex
	reports []Report
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Emit stores r.
func (c *Collector) Emit(r Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, r)
}

// Reports returns a copy of the stored reports.
func (c *Collector) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Report(nil), c.reports...)
}

// Last returns the most recent report.
func (c *Collector) Last() (Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.reports) == 0 {
		return Report{}, false
	}
	return c.reports[len(c.reports)-1], true
}

// Reset drops all stored reports.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = nil
}
