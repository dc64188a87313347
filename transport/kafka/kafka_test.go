package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
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
	assert.Equal(t, "kafka", caps.Name)
	assert.True(t, caps.SupportsTracing)
	assert.True(t, caps.SupportsNullBody)
	assert.False(t, caps.SupportsNack)
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, transport.KafkaCapabilities, Capabilities())
}

func TestBuild(t *testing.T) {
	t.Run("passes broker settings to the factory", func(t *testing.T) {
		originalSubFactory := SubscriberFactory
		defer func() { SubscriberFactory = originalSubFactory }()

		mockSub := &mockSubscriber{}
		SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
			assert.Equal(t, "test-group", cfg.ConsumerGroup)
			assert.IsType(t, Unmarshaler{}, cfg.Unmarshaler)
			require.NotNil(t, cfg.OverwriteSaramaConfig)
			assert.Equal(t, "ingress-test", cfg.OverwriteSaramaConfig.ClientID)
			return mockSub, nil
		}

		cfg := &config.Config{
			KafkaBrokers:       []string{"localhost:9092"},
			KafkaConsumerGroup: "test-group",
			KafkaClientID:      "ingress-test",
		}
		sub, err := Build(context.Background(), cfg, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Same(t, mockSub, sub)
	})

	t.Run("returns error when subscriber factory fails", func(t *testing.T) {
		originalSubFactory := SubscriberFactory
		defer func() { SubscriberFactory = originalSubFactory }()

		SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			return nil, errors.New("subscriber error")
		}

		_, err := Build(context.Background(), &config.Config{KafkaBrokers: []string{"localhost:9092"}}, watermill.NopLogger{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "subscriber error")
	})
}

func TestUnmarshaler(t *testing.T) {
	record := &sarama.ConsumerMessage{
		Topic:     "orders",
		Partition: 2,
		Offset:    17,
		Key:       []byte("customer-1"),
		Value:     []byte(`{"id":1}`),
		Headers: []*sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte("application/json")},
			{Key: []byte("MessageType"), Value: []byte("MT_COMMAND")},
		},
	}

	msg, err := Unmarshaler{}.Unmarshal(record)
	require.NoError(t, err)

	raw := adapters.NewWatermill().ToRawMessage(msg)
	require.NotNil(t, raw)
	assert.Equal(t, "orders/2/17", raw.LockToken)
	assert.Equal(t, "application/json", raw.ContentType)
	assert.Equal(t, `{"id":1}`, string(raw.Body))
	assert.Equal(t, "customer-1", raw.Properties[ingressmsg.PropertyPartitionKey])
	assert.Equal(t, "MT_COMMAND", raw.Properties[ingressmsg.PropertyMessageType])
}

func TestUnmarshaler_Tombstone(t *testing.T) {
	msg, err := Unmarshaler{}.Unmarshal(&sarama.ConsumerMessage{Topic: "orders"})
	require.NoError(t, err)

	raw := adapters.NewWatermill().ToRawMessage(msg)
	assert.Nil(t, raw.Body)
}

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (m *mockSubscriber) Close() error { return nil }
