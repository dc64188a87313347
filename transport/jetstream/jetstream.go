// Package jetstream provides a pull-based NATS JetStream transport. Each
// subscribed topic gets a durable consumer; messages are converted by
// adapters.NATS and acked or nacked on the broker once the gateway settles
// them.
package jetstream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/drblury/ingress/internal/runtime/adapters"
	ingressmsg "github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats-jetstream"

const (
	// DefaultMaxDeliver is the default max delivery attempts.
	DefaultMaxDeliver = 3

	// DefaultAckWait is the default ack wait timeout.
	DefaultAckWait = 30 * time.Second

	// DefaultStreamName is used when Config.StreamName is empty.
	DefaultStreamName = "INGRESS"

	fetchBatch = 10
)

var errClosed = errors.New("jetstream: subscriber is closed")

func init() {
	Register()
}

// Register registers the JetStream transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSJetStreamCapabilities)
}

// Build creates a new JetStream subscriber.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return New(Config{URL: cfg.GetNATSURL()}, logger)
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.NATSJetStreamCapabilities
}

// Config holds NATS JetStream-specific configuration.
type Config struct {
	// URL is the NATS server URL.
	URL string

	// StreamName is the name of the JetStream stream to consume.
	// If empty, defaults to DefaultStreamName.
	StreamName string

	// MaxDeliver is the maximum number of delivery attempts.
	MaxDeliver int

	// AckWait is the duration to wait for acknowledgment.
	AckWait time.Duration

	// Replicas is the number of stream replicas (for clustering).
	Replicas int

	// RetentionPolicy: "limits" (default), "interest", or "workqueue"
	RetentionPolicy string
}

func (c Config) withDefaults() Config {
	if c.StreamName == "" {
		c.StreamName = DefaultStreamName
	}
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = DefaultMaxDeliver
	}
	if c.AckWait <= 0 {
		c.AckWait = DefaultAckWait
	}
	if c.Replicas <= 0 {
		c.Replicas = 1
	}
	return c
}

func (c Config) streamConfig() *nats.StreamConfig {
	streamCfg := &nats.StreamConfig{
		Name:     c.StreamName,
		Subjects: []string{c.StreamName + ".>"},
		MaxAge:   24 * time.Hour * 7,
		Replicas: c.Replicas,
	}
	switch c.RetentionPolicy {
	case "interest":
		streamCfg.Retention = nats.InterestPolicy
	case "workqueue":
		streamCfg.Retention = nats.WorkQueuePolicy
	default:
		streamCfg.Retention = nats.LimitsPolicy
	}
	return streamCfg
}

func (c Config) consumerConfig(topic string) *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:       c.consumerName(topic),
		FilterSubject: c.subject(topic),
		AckPolicy:     nats.AckExplicitPolicy,
		MaxDeliver:    c.MaxDeliver,
		AckWait:       c.AckWait,
		DeliverPolicy: nats.DeliverAllPolicy,
	}
}

func (c Config) subject(topic string) string {
	return c.StreamName + "." + topic
}

func (c Config) consumerName(topic string) string {
	return "consumer_" + topic
}

// Subscriber implements message.Subscriber for NATS JetStream.
type Subscriber struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	config  Config
	logger  watermill.LoggerAdapter
	adapter adapters.NATS

	subscriptions map[string]*nats.Subscription
	subMu         sync.Mutex

	closed     bool
	closedMu   sync.RWMutex
	closedChan chan struct{}
}

// New connects to NATS and makes sure the stream exists.
func New(cfg Config, logger watermill.LoggerAdapter) (*Subscriber, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	s := &Subscriber{
		nc:            nc,
		js:            js,
		config:        cfg,
		logger:        logger,
		subscriptions: make(map[string]*nats.Subscription),
		closedChan:    make(chan struct{}),
	}
	s.ensureStream()

	return s, nil
}

func (s *Subscriber) ensureStream() {
	streamCfg := s.config.streamConfig()
	if _, err := s.js.AddStream(streamCfg); err == nil {
		return
	}
	if _, err := s.js.UpdateStream(streamCfg); err != nil {
		s.logger.Info("JetStream stream exists", watermill.LogFields{
			"stream": s.config.StreamName,
		})
	}
}

// Subscribe creates or updates the durable consumer for topic and streams its
// messages until ctx is done or the subscriber is closed.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.isClosed() {
		return nil, errClosed
	}

	consumerCfg := s.config.consumerConfig(topic)
	if _, err := s.js.AddConsumer(s.config.StreamName, consumerCfg); err != nil {
		if _, err = s.js.UpdateConsumer(s.config.StreamName, consumerCfg); err != nil {
			return nil, fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := s.js.PullSubscribe(consumerCfg.FilterSubject, consumerCfg.Durable)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	s.subMu.Lock()
	s.subscriptions[topic] = sub
	s.subMu.Unlock()

	output := make(chan *message.Message)
	go s.fetchMessages(ctx, sub, output, topic)

	return output, nil
}

func (s *Subscriber) fetchMessages(ctx context.Context, sub *nats.Subscription, output chan<- *message.Message, topic string) {
	defer close(output)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closedChan:
			return
		default:
		}

		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			s.logger.Error("Failed to fetch messages", err, watermill.LogFields{
				"topic": topic,
			})
			continue
		}

		for _, natsMsg := range msgs {
			if !s.deliver(ctx, natsMsg, output) {
				return
			}
		}
	}
}

// deliver hands one message downstream and settles it on the broker.
// Returns false when the subscriber should stop.
func (s *Subscriber) deliver(ctx context.Context, natsMsg *nats.Msg, output chan<- *message.Message) bool {
	wmMsg := s.toWatermill(natsMsg)

	select {
	case output <- wmMsg:
	case <-ctx.Done():
		return false
	case <-s.closedChan:
		return false
	}

	select {
	case <-wmMsg.Acked():
		if err := natsMsg.Ack(); err != nil {
			s.logger.Error("Failed to ack", err, nil)
		}
	case <-wmMsg.Nacked():
		if err := natsMsg.Nak(); err != nil {
			s.logger.Error("Failed to nak", err, nil)
		}
	case <-ctx.Done():
		return false
	case <-s.closedChan:
		return false
	}
	return true
}

// toWatermill converts a JetStream message. Redeliveries become the handled
// count unless a header already carries one.
func (s *Subscriber) toWatermill(natsMsg *nats.Msg) *message.Message {
	raw := s.adapter.ToRawMessage(natsMsg)
	if meta, err := natsMsg.Metadata(); err == nil && meta.NumDelivered > 1 {
		if _, ok := raw.Properties[ingressmsg.PropertyHandledCount]; !ok {
			raw.Properties[ingressmsg.PropertyHandledCount] = strconv.FormatUint(meta.NumDelivered-1, 10)
		}
	}
	if raw.ID == "" && natsMsg.Reply != "" {
		raw.ID = natsMsg.Reply
	}
	return adapters.EncodeWatermill(raw)
}

func (s *Subscriber) isClosed() bool {
	s.closedMu.RLock()
	defer s.closedMu.RUnlock()
	return s.closed
}

// Close unsubscribes every consumer and closes the connection.
func (s *Subscriber) Close() error {
	s.closedMu.Lock()
	if s.closed {
		s.closedMu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closedChan)
	s.closedMu.Unlock()

	s.subMu.Lock()
	var errs []error
	for _, sub := range s.subscriptions {
		errs = append(errs, sub.Unsubscribe())
	}
	s.subscriptions = make(map[string]*nats.Subscription)
	s.subMu.Unlock()

	s.nc.Close()

	return errors.Join(errs...)
}
