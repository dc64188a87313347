package ingress

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	wmmessage "github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/ingress/internal/runtime/adapters"
	ce "github.com/drblury/ingress/internal/runtime/cloudevents"
	configpkg "github.com/drblury/ingress/internal/runtime/config"
	"github.com/drblury/ingress/internal/runtime/diagnostics"
	errspkg "github.com/drblury/ingress/internal/runtime/errors"
	"github.com/drblury/ingress/internal/runtime/gateway"
	idspkg "github.com/drblury/ingress/internal/runtime/ids"
	"github.com/drblury/ingress/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/ingress/internal/runtime/logging"
	msgpkg "github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/normalizer"
	"github.com/drblury/ingress/internal/runtime/properties"
	"github.com/drblury/ingress/internal/runtime/textenc"
	transportpkg "github.com/drblury/ingress/internal/runtime/transport"
	"github.com/drblury/ingress/transport"
)

type (
	Config       = configpkg.Config
	Subscription = configpkg.Subscription

	Gateway          = gateway.Gateway
	Dependencies     = gateway.Dependencies
	Dispatcher       = gateway.Dispatcher
	DispatcherFunc   = gateway.DispatcherFunc
	TransportFactory = transportpkg.Factory

	MiddlewareBuilder      = gateway.MiddlewareBuilder
	MiddlewareRegistration = gateway.MiddlewareRegistration
	RetryMiddlewareConfig  = gateway.RetryMiddlewareConfig
	DispatchContext        = gateway.DispatchContext
	DispatchHooks          = gateway.DispatchHooks

	// Canonical message model
	RawMessage      = msgpkg.RawMessage
	Message         = msgpkg.Message
	Header          = msgpkg.Header
	Body            = msgpkg.Body
	Bag             = msgpkg.Bag
	MessageType     = msgpkg.MessageType
	RoutingKey      = msgpkg.RoutingKey
	CloudEventsType = msgpkg.CloudEventsType
	PartitionKey    = msgpkg.PartitionKey
	TraceParent     = msgpkg.TraceParent
	TraceState      = msgpkg.TraceState
	Baggage         = msgpkg.Baggage
	BaggageMember   = msgpkg.BaggageMember
	Properties      = properties.Bag

	// Normalization
	Normalizer             = normalizer.Normalizer
	NormalizerSubscription = normalizer.Subscription
	NormalizerOption       = normalizer.Option
	BodyDecoder            = normalizer.BodyDecoder
	TextDecoder            = textenc.Decoder

	// Diagnostics
	Emitter     = diagnostics.Emitter
	EmitterFunc = diagnostics.EmitterFunc
	Report      = diagnostics.Report
	Outcome     = diagnostics.Outcome
	Event       = diagnostics.Event
	Collector   = diagnostics.Collector

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigValidationError = errspkg.ConfigValidationError

	// Transports
	TransportBuilder      = transport.Builder
	TransportConfig       = transport.Config
	TransportRegistry     = transport.Registry
	TransportCapabilities = transport.Capabilities

	// Broker adapters
	WatermillAdapter = adapters.Watermill
	KafkaAdapter     = adapters.Kafka
	AMQPAdapter      = adapters.AMQP
	NATSAdapter      = adapters.NATS
	SQSAdapter       = adapters.SQS
)

const (
	MessageTypeNone         = msgpkg.MessageTypeNone
	MessageTypeCommand      = msgpkg.MessageTypeCommand
	MessageTypeEvent        = msgpkg.MessageTypeEvent
	MessageTypeDocument     = msgpkg.MessageTypeDocument
	MessageTypeQuit         = msgpkg.MessageTypeQuit
	MessageTypeUnacceptable = msgpkg.MessageTypeUnacceptable

	BagKeyLockToken    = msgpkg.BagKeyLockToken
	BagKeyHandledCount = msgpkg.BagKeyHandledCount
	BagKeyBaggage      = msgpkg.BagKeyBaggage

	EventFieldNotFound    = diagnostics.EventFieldNotFound
	EventFieldParseFailed = diagnostics.EventFieldParseFailed
	EventNullMessage      = diagnostics.EventNullMessage
	EventNullBody         = diagnostics.EventNullBody
	EventMessageReceived  = diagnostics.EventMessageReceived
)

var (
	NewGateway     = gateway.New
	LoadConfig     = configpkg.Load
	ValidateConfig = configpkg.ValidateConfig

	DefaultMiddlewares    = gateway.DefaultMiddlewares
	MetricsMiddleware     = gateway.MetricsMiddleware
	LogMessagesMiddleware = gateway.LogMessagesMiddleware
	RetryMiddleware       = gateway.RetryMiddleware
	RecovererMiddleware   = gateway.RecovererMiddleware
	HooksMiddleware       = gateway.HooksMiddleware
	LoggingHooks          = gateway.LoggingHooks

	NewNormalizer   = normalizer.New
	WithEmitter     = normalizer.WithEmitter
	WithClock       = normalizer.WithClock
	WithBodyDecoder = normalizer.WithBodyDecoder

	NewTextDecoder    = textenc.New
	SystemTextDecoder = textenc.System
	UTF8              = textenc.UTF8

	ParseMessageType  = msgpkg.ParseMessageType
	NewPartitionKey   = msgpkg.NewPartitionKey
	EmptyPartitionKey = msgpkg.EmptyPartitionKey
	ParseBaggage      = msgpkg.ParseBaggage
	FailureMessage    = msgpkg.FailureMessage
	DefaultSource     = msgpkg.DefaultSource
	ContextWithTrace  = msgpkg.ContextWithTrace
	ToCloudEvent      = msgpkg.ToCloudEvent
	ParseTime         = ce.ParseTime

	NewLogEmitter     = diagnostics.NewLogEmitter
	NewMetricsEmitter = diagnostics.NewMetricsEmitter
	NewCollector      = diagnostics.NewCollector
	MultiEmitter      = diagnostics.Multi
	SafeEmitter       = diagnostics.Safe
	DiscardEmitter    = diagnostics.Discard

	NewSlogServiceLogger   = loggingpkg.NewSlogServiceLogger
	NewZapServiceLogger    = loggingpkg.NewZapServiceLogger
	NewWatermillAdapter    = loggingpkg.NewWatermillAdapter
	NewWatermillMsgAdapter = adapters.NewWatermill
	EncodeWatermill        = adapters.EncodeWatermill

	StaticTransport          = transportpkg.Static
	DefaultTransportFactory  = transportpkg.DefaultFactory
	RegisterTransport        = transport.Register
	TransportCapabilitiesFor = transport.GetCapabilities

	CreateULID = idspkg.CreateULID
	Marshal    = jsoncodec.Marshal
	Unmarshal  = jsoncodec.Unmarshal

	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrSubscriptionRequired = errspkg.ErrSubscriptionRequired
	ErrRoutingKeyRequired   = errspkg.ErrRoutingKeyRequired
	ErrSubscriberRequired   = errspkg.ErrSubscriberRequired
	ErrDispatcherRequired   = errspkg.ErrDispatcherRequired
	ErrUnknownTransport     = errspkg.ErrUnknownTransport
)

// TransportFactoryFunc adapts a function to TransportFactory.
func TransportFactoryFunc(fn func(ctx context.Context, conf *Config, logger watermill.LoggerAdapter) (wmmessage.Subscriber, error)) TransportFactory {
	return transportpkg.FactoryFunc(fn)
}
