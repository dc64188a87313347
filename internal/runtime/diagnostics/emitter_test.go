package diagnostics

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/ingress/internal/runtime/logging"
)

func sampleReport() Report {
	rec := NewRecorder("orders", "orders-sub")
	rec.SetMessageID("m-1")
	rec.Received("hello")
	rec.NotFound("cloudEvents_source")
	rec.ParseFailed("HandledCount", nil)
	return rec.Report()
}

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	Multi(a, nil, b).Emit(sampleReport())

	assert.Len(t, a.Reports(), 1)
	assert.Len(t, b.Reports(), 1)
	assert.Equal(t, Discard, Multi())
	assert.Same(t, a, Multi(nil, a))
}

func TestSafeRecoversPanics(t *testing.T) {
	panicking := EmitterFunc(func(Report) { panic("sink down") })
	assert.NotPanics(t, func() { Safe(panicking).Emit(sampleReport()) })
	assert.NotPanics(t, func() { Safe(nil).Emit(sampleReport()) })

	rewrapped, ok := Safe(Safe(panicking)).(safeEmitter)
	require.True(t, ok)
	_, nested := rewrapped.inner.(safeEmitter)
	assert.False(t, nested)
}

func TestCollectorConcurrentEmit(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Emit(sampleReport())
		}()
	}
	wg.Wait()
	assert.Len(t, c.Reports(), 20)

	last, ok := c.Last()
	assert.True(t, ok)
	assert.Equal(t, "orders", last.Topic)

	c.Reset()
	_, ok = c.Last()
	assert.False(t, ok)
}

func TestLogEmitter(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	emitter := NewLogEmitter(logging.NewSlogServiceLogger(slog.New(handler)))

	emitter.Emit(sampleReport())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var received, summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &received))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &summary))

	assert.Equal(t, "DEBUG", received["level"])
	assert.Equal(t, "hello", received["body"])
	assert.Equal(t, "orders-sub", received["subscription"])

	assert.Equal(t, "WARN", summary["level"])
	assert.Equal(t, "m-1", summary["message_id"])
	assert.EqualValues(t, 1, summary["missing_fields"])
	assert.EqualValues(t, 1, summary["invalid_fields"])
	assert.Equal(t, []any{"field_not_found(cloudEvents_source)", "field_parse_failed(HandledCount)"}, summary["outcomes"])
}

func TestLogEmitterNullMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	emitter := NewLogEmitter(logging.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(buf, nil))))

	rec := NewRecorder("orders", "orders-sub")
	rec.NullMessage()
	emitter.Emit(rec.Report())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "null message received", line["msg"])
	assert.Equal(t, "WARN", line["level"])
}

func TestLogEmitterPanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() { NewLogEmitter(nil) })
}

func TestMetricsEmitter(t *testing.T) {
	reg := prometheus.NewRegistry()
	emitter, err := NewMetricsEmitter(reg, "ingress")
	require.NoError(t, err)

	emitter.Emit(sampleReport())
	emitter.Emit(sampleReport())

	clean := NewRecorder("orders", "orders-sub")
	clean.Received("ok")
	emitter.Emit(clean.Report())

	assert.Equal(t, 2.0, testutil.ToFloat64(emitter.outcomes.WithLabelValues("field_not_found", "cloudEvents_source", "orders-sub")))
	assert.Equal(t, 2.0, testutil.ToFloat64(emitter.outcomes.WithLabelValues("field_parse_failed", "HandledCount", "orders-sub")))
	assert.Equal(t, 2.0, testutil.ToFloat64(emitter.messages.WithLabelValues("orders-sub", ResultDegraded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(emitter.messages.WithLabelValues("orders-sub", ResultClean)))
	assert.Equal(t, 2, testutil.CollectAndCount(emitter.outcomes))
}

func TestMetricsEmitterReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetricsEmitter(reg, "ingress")
	require.NoError(t, err)
	second, err := NewMetricsEmitter(reg, "ingress")
	require.NoError(t, err)

	rec := NewRecorder("t", "s")
	rec.NullMessage()
	first.Emit(rec.Report())
	second.Emit(rec.Report())

	assert.Equal(t, 2.0, testutil.ToFloat64(first.messages.WithLabelValues("s", ResultFailure)))
}
