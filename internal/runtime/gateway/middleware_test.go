package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouterOnlyGateway(t *testing.T) *Gateway {
	t.Helper()
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NopLogger{})
	require.NoError(t, err)
	return &Gateway{Conf: testConfig(), Logger: testLogger(), router: router}
}

func TestRetryMiddlewareConfig_withDefaults(t *testing.T) {
	cfg := RetryMiddlewareConfig{}.withDefaults()
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialInterval)
	assert.Equal(t, 16*time.Second, cfg.MaxInterval)

	custom := RetryMiddlewareConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Second}
	assert.Equal(t, custom.MaxRetries, custom.withDefaults().MaxRetries)
}

func TestRetryMiddleware_RetryIf(t *testing.T) {
	permanent := errors.New("permanent")
	mw := retryMiddleware(RetryMiddlewareConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		RetryIf:         func(err error) bool { return !errors.Is(err, permanent) },
	})

	calls := 0
	h := mw(func(*message.Message) ([]*message.Message, error) {
		calls++
		return nil, permanent
	})
	_, err := h(message.NewMessage("1", nil))

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRegisterMiddleware(t *testing.T) {
	g := newRouterOnlyGateway(t)

	assert.NoError(t, g.RegisterMiddleware(RecovererMiddleware()))
	assert.NoError(t, g.RegisterMiddleware(MetricsMiddleware()), "disabled metrics is skipped")
	assert.NoError(t, g.RegisterMiddleware(LogMessagesMiddleware(nil)))

	err := g.RegisterMiddleware(MiddlewareRegistration{Name: "empty"})
	assert.EqualError(t, err, "middleware registration requires Middleware or Builder")

	err = (&Gateway{}).RegisterMiddleware(RecovererMiddleware())
	assert.EqualError(t, err, "router is not initialised")
}

func TestRegisterConfiguredMiddlewares_Error(t *testing.T) {
	g := newRouterOnlyGateway(t)
	failing := MiddlewareRegistration{Builder: func(*Gateway) (message.HandlerMiddleware, error) {
		return nil, errors.New("nope")
	}}

	err := g.registerConfiguredMiddlewares(Dependencies{
		DisableDefaultMiddlewares: true,
		Middlewares:               []MiddlewareRegistration{failing},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "anonymous_middleware")
	assert.Contains(t, err.Error(), "nope")
}

func TestDispatchHooks_Merge(t *testing.T) {
	var calls []string
	a := DispatchHooks{
		OnStart: func(DispatchContext) { calls = append(calls, "a.start") },
		OnError: func(DispatchContext, error) { calls = append(calls, "a.error") },
	}
	b := DispatchHooks{
		OnStart: func(DispatchContext) { calls = append(calls, "b.start") },
		OnDone:  func(DispatchContext) { calls = append(calls, "b.done") },
	}
	merged := a.Merge(b)

	h := hooksMiddleware(merged)(func(*message.Message) ([]*message.Message, error) {
		return nil, nil
	})
	_, err := h(message.NewMessage("1", nil))
	require.NoError(t, err)

	failing := hooksMiddleware(merged)(func(*message.Message) ([]*message.Message, error) {
		return nil, errors.New("fail")
	})
	_, err = failing(message.NewMessage("2", nil))
	require.Error(t, err)

	assert.Equal(t, []string{"a.start", "b.start", "b.done", "a.start", "b.start", "a.error"}, calls)
}

func TestLoggingHooks(t *testing.T) {
	hooks := LoggingHooks(testLogger())
	assert.Nil(t, hooks.OnStart)
	assert.NotPanics(t, func() {
		hooks.OnDone(DispatchContext{Subscription: "orders"})
		hooks.OnError(DispatchContext{Subscription: "orders"}, errors.New("x"))
	})
}
