package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/ingress/internal/runtime/adapters"
	"github.com/drblury/ingress/internal/runtime/config"
	ingressmsg "github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/transport"
)

func TestRegister(t *testing.T) {
	original := transport.DefaultRegistry
	defer func() { transport.DefaultRegistry = original }()
	transport.DefaultRegistry = transport.NewRegistry()
	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "nats", caps.Name)
	assert.True(t, caps.SupportsTracing)
	assert.False(t, caps.SupportsAck)
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, transport.NATSCapabilities, Capabilities())
}

func TestBuild(t *testing.T) {
	t.Run("creates subscriber with mocked factory", func(t *testing.T) {
		originalSubFactory := SubscriberFactory
		defer func() { SubscriberFactory = originalSubFactory }()

		mockSub := &mockSubscriber{}
		SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			assert.Equal(t, "nats://localhost:4222", cfg.URL)
			assert.IsType(t, Unmarshaler{}, cfg.Unmarshaler)
			assert.True(t, cfg.JetStream.Disabled)
			return mockSub, nil
		}

		sub, err := Build(context.Background(), &config.Config{NATSURL: "nats://localhost:4222"}, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Same(t, mockSub, sub)
	})

	t.Run("returns error when subscriber factory fails", func(t *testing.T) {
		originalSubFactory := SubscriberFactory
		defer func() { SubscriberFactory = originalSubFactory }()

		SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			return nil, errors.New("subscriber error")
		}

		_, err := Build(context.Background(), &config.Config{NATSURL: "nats://localhost:4222"}, watermill.NopLogger{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "subscriber error")
	})
}

func TestUnmarshaler(t *testing.T) {
	msg, err := Unmarshaler{}.Unmarshal(&nc.Msg{
		Subject: "orders",
		Reply:   "_INBOX.1",
		Data:    []byte("hello"),
		Header: nc.Header{
			"Content-Type":   []string{"text/plain"},
			"correlation_id": []string{"c-9"},
			"traceparent":    []string{"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		},
	})
	require.NoError(t, err)

	raw := adapters.NewWatermill().ToRawMessage(msg)
	require.NotNil(t, raw)
	assert.Equal(t, "_INBOX.1", raw.LockToken)
	assert.Equal(t, "text/plain", raw.ContentType)
	assert.Equal(t, "c-9", raw.CorrelationID)
	assert.Equal(t, "hello", string(raw.Body))
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", raw.Properties[ingressmsg.PropertyTraceParent])
}

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (m *mockSubscriber) Close() error { return nil }
