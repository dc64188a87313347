package transport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/ingress/internal/runtime/config"
	errspkg "github.com/drblury/ingress/internal/runtime/errors"
)

var _ Config = (*config.Config)(nil)

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (m *mockSubscriber) Close() error {
	return nil
}

func mockBuilder(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return &mockSubscriber{}, nil
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.NotNil(t, reg)
	assert.NotNil(t, reg.entries)
	assert.Empty(t, reg.Names())
}

func TestRegistry_RegisterWithCapabilities(t *testing.T) {
	reg := NewRegistry()

	caps := Capabilities{Name: "test-transport", SupportsAck: true, SupportsNullBody: true}
	reg.RegisterWithCapabilities("test-transport", mockBuilder, caps)

	assert.True(t, reg.Has("test-transport"))
	assert.Equal(t, caps, reg.GetCapabilities("test-transport"))
}

func TestRegistry_RegisterKeepsCapabilities(t *testing.T) {
	reg := NewRegistry()
	caps := Capabilities{Name: "kafka", SupportsAck: true}
	reg.RegisterWithCapabilities("kafka", mockBuilder, caps)
	reg.Register("kafka", mockBuilder)

	assert.Equal(t, caps, reg.GetCapabilities("kafka"))
}

func TestRegistry_GetCapabilities_Unknown(t *testing.T) {
	reg := NewRegistry()
	caps := reg.GetCapabilities("unknown")
	assert.Equal(t, Capabilities{Name: "unknown"}, caps)
}

func TestRegistry_Build(t *testing.T) {
	reg := NewRegistry()
	var gotLogger watermill.LoggerAdapter
	reg.Register("test-transport", func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		gotLogger = logger
		return &mockSubscriber{}, nil
	})

	sub, err := reg.Build(context.Background(), &config.Config{PubSubSystem: "test-transport"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, sub)
	assert.Equal(t, watermill.NopLogger{}, gotLogger)
}

func TestRegistry_Build_NilConfig(t *testing.T) {
	_, err := NewRegistry().Build(context.Background(), nil, nil)
	assert.ErrorIs(t, err, errspkg.ErrConfigRequired)
}

func TestRegistry_Build_UnknownTransport(t *testing.T) {
	reg := NewRegistry()
	reg.Register("kafka", mockBuilder)

	_, err := reg.Build(context.Background(), &config.Config{PubSubSystem: "unknown-transport"}, nil)
	assert.ErrorIs(t, err, errspkg.ErrUnknownTransport)
	assert.Contains(t, err.Error(), `"unknown-transport"`)
	assert.Contains(t, err.Error(), "kafka")
}

func TestRegistry_Build_BuilderError(t *testing.T) {
	reg := NewRegistry()
	expectedErr := errors.New("builder error")
	reg.Register("failing-transport", func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return nil, expectedErr
	})

	_, err := reg.Build(context.Background(), &config.Config{PubSubSystem: "failing-transport"}, nil)
	assert.Equal(t, expectedErr, err)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	reg.Register("transport3", mockBuilder)
	reg.Register("transport1", mockBuilder)
	reg.Register("transport2", mockBuilder)

	assert.Equal(t, []string{"transport1", "transport2", "transport3"}, reg.Names())
	assert.False(t, reg.Has("other-transport"))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.Register("transport", mockBuilder)
				reg.Has("transport")
				reg.Names()
				reg.GetCapabilities("transport")
			}
		}()
	}
	wg.Wait()

	assert.True(t, reg.Has("transport"))
}

func TestPackageLevelRegistry(t *testing.T) {
	caps := Capabilities{Name: "test-pkg-caps-transport", SupportsAck: true}
	RegisterWithCapabilities("test-pkg-caps-transport", mockBuilder, caps)
	Register("test-pkg-transport", mockBuilder)

	assert.True(t, DefaultRegistry.Has("test-pkg-transport"))
	assert.Equal(t, caps, GetCapabilities("test-pkg-caps-transport"))

	sub, err := Build(context.Background(), &config.Config{PubSubSystem: "test-pkg-transport"}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.NotNil(t, sub)

	_, err = Build(context.Background(), &config.Config{PubSubSystem: "nonexistent"}, nil)
	assert.Error(t, err)
}
