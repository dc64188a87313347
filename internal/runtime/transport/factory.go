// Package transport connects the gateway to the transport registry. It
// imports every built-in transport so that DefaultFactory can serve any
// configured PubSubSystem.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/ingress/internal/runtime/config"
	errspkg "github.com/drblury/ingress/internal/runtime/errors"
	registry "github.com/drblury/ingress/transport"
	_ "github.com/drblury/ingress/transport/transports"
)

// Factory abstracts how the gateway obtains its subscriber.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (message.Subscriber, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (message.Subscriber, error)

func (f FactoryFunc) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return f(ctx, conf, logger)
}

// Static returns a Factory that always yields sub. Useful when the caller
// owns the subscriber, for example a GoChannel shared with a publisher.
func Static(sub message.Subscriber) Factory {
	return FactoryFunc(func(context.Context, *config.Config, watermill.LoggerAdapter) (message.Subscriber, error) {
		if sub == nil {
			return nil, errspkg.ErrSubscriberRequired
		}
		return sub, nil
	})
}

// DefaultFactory returns the factory backed by the transport registry.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	sub, err := registry.Build(ctx, conf, logger)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errspkg.ErrSubscriberRequired
	}
	return sub, nil
}
