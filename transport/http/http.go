// Package http provides an HTTP transport. Every subscription is served as a
// POST route on the configured address and requests are converted by
// adapters.HTTP. The response is sent once the message is acked or nacked.
package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/ingress/internal/runtime/adapters"
	"github.com/drblury/ingress/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "http"

// ErrUnreadableRequest is returned when a request body cannot be read.
var ErrUnreadableRequest = errors.New("http: request body could not be read")

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(addr string, config http.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return http.NewSubscriber(addr, config, logger)
}

func init() {
	Register()
}

// Register registers the HTTP transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.HTTPCapabilities)
}

// Unmarshal converts a request through the HTTP adapter.
func Unmarshal(topic string, r *nethttp.Request) (*message.Message, error) {
	raw := adapters.HTTP{}.ToRawMessage(r)
	if raw == nil {
		return nil, ErrUnreadableRequest
	}
	return adapters.EncodeWatermill(raw), nil
}

// Build creates the HTTP subscriber and starts its server in the background.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	subscriber, err := SubscriberFactory(
		cfg.GetHTTPServerAddress(),
		http.SubscriberConfig{UnmarshalMessageFunc: Unmarshal},
		logger,
	)
	if err != nil {
		return nil, err
	}

	if s, ok := subscriber.(*http.Subscriber); ok {
		go func() {
			if err := s.StartHTTPServer(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				logger.Error("Failed to start HTTP subscriber server", err, nil)
			}
		}()
	}

	return routeSubscriber{Subscriber: subscriber}, nil
}

// Route returns the URL path served for a subscription queue.
func Route(queue string) string {
	if strings.HasPrefix(queue, "/") {
		return queue
	}
	return "/" + queue
}

// routeSubscriber lets subscriptions name plain queues instead of paths.
type routeSubscriber struct {
	message.Subscriber
}

func (s routeSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.Subscriber.Subscribe(ctx, Route(topic))
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.HTTPCapabilities
}
