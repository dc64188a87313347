// Package gateway runs the inbound side of the service: it subscribes to
// every configured subscription, normalizes each delivery and hands the
// canonical message to a Dispatcher.
//
// A delivery is acked when dispatch succeeds and nacked when it fails.
// Normalization itself never rejects a message.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/ingress/internal/runtime/adapters"
	configpkg "github.com/drblury/ingress/internal/runtime/config"
	"github.com/drblury/ingress/internal/runtime/diagnostics"
	errspkg "github.com/drblury/ingress/internal/runtime/errors"
	loggingpkg "github.com/drblury/ingress/internal/runtime/logging"
	ingressmsg "github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/normalizer"
	"github.com/drblury/ingress/internal/runtime/textenc"
	transportpkg "github.com/drblury/ingress/internal/runtime/transport"
)

const tracerName = "github.com/drblury/ingress/gateway"

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// Dispatcher receives every canonical message accepted by the gateway. A
// returned error nacks the delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg ingressmsg.Message) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, msg ingressmsg.Message) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg ingressmsg.Message) error {
	return f(ctx, msg)
}

// Dependencies holds the collaborators of a Gateway. Only Dispatcher is
// required.
type Dependencies struct {
	Dispatcher Dispatcher
	// TransportFactory builds the subscriber. Defaults to the transport
	// registry keyed by Config.PubSubSystem.
	TransportFactory transportpkg.Factory
	// Emitter receives normalization reports in addition to the log (and,
	// when enabled, metrics) emitters.
	Emitter diagnostics.Emitter
	// BodyDecoder overrides Config.BodyEncoding.
	BodyDecoder normalizer.BodyDecoder
	// Clock replaces time.Now for timestamp defaults.
	Clock func() time.Time
	// Adapter converts subscriber messages. Defaults to adapters.NewWatermill().
	Adapter                   *adapters.Watermill
	Registerer                prometheus.Registerer
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool
}

// Gateway wires a Watermill router, one normalizer per subscription and the
// dispatcher.
type Gateway struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	subscriber  message.Subscriber
	router      *message.Router
	dispatcher  Dispatcher
	adapter     adapters.Watermill
	registerer  prometheus.Registerer
	emitter     diagnostics.Emitter
	normalizers map[string]*normalizer.Normalizer

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
}

// New builds a Gateway for conf. The configuration is validated first.
func New(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps Dependencies) (*Gateway, error) {
	if err := configpkg.ValidateConfig(conf); err != nil {
		return nil, err
	}
	if deps.Dispatcher == nil {
		return nil, errspkg.ErrDispatcherRequired
	}
	if log == nil {
		log = loggingpkg.NewSlogServiceLogger(slog.Default())
	}
	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating ingress gateway", loggingpkg.LogFields{
		"pubsub_system": conf.PubSubSystem,
		"config":        conf,
	})

	g := &Gateway{
		Conf:        conf,
		Logger:      log,
		dispatcher:  deps.Dispatcher,
		adapter:     adapters.NewWatermill(),
		registerer:  deps.Registerer,
		normalizers: make(map[string]*normalizer.Normalizer, len(conf.Subscriptions)),
	}
	if deps.Adapter != nil {
		g.adapter = *deps.Adapter
	}
	if g.registerer == nil {
		g.registerer = prometheus.DefaultRegisterer
	}

	emitter, err := g.buildEmitter(deps.Emitter)
	if err != nil {
		return nil, err
	}
	g.emitter = emitter

	decoder, err := bodyDecoder(conf, deps.BodyDecoder)
	if err != nil {
		return nil, err
	}

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	sub, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("build %s subscriber: %w", conf.PubSubSystem, err)
	}
	if sub == nil {
		return nil, errspkg.ErrSubscriberRequired
	}
	g.subscriber = sub

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}
	g.router = router
	g.router.AddPlugin(plugin.SignalsHandler)

	if err := g.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}

	for _, s := range conf.Subscriptions {
		n := normalizer.New(
			normalizer.Subscription{RoutingKey: ingressmsg.RoutingKey(s.RoutingKey), Name: s.DisplayName()},
			normalizer.WithEmitter(g.emitter),
			normalizer.WithBodyDecoder(decoder),
			normalizer.WithClock(deps.Clock),
		)
		g.normalizers[s.DisplayName()] = n
		g.router.AddConsumerHandler(s.DisplayName(), s.Source(), g.subscriber, g.handler(n))
		log.Debug("Subscription registered", loggingpkg.LogFields{
			"subscription": s.DisplayName(),
			"routing_key":  s.RoutingKey,
			"source":       s.Source(),
		})
	}

	return g, nil
}

func (g *Gateway) buildEmitter(extra diagnostics.Emitter) (diagnostics.Emitter, error) {
	emitters := []diagnostics.Emitter{diagnostics.NewLogEmitter(g.Logger)}
	if g.Conf.MetricsEnabled {
		m, err := diagnostics.NewMetricsEmitter(g.registerer, g.Conf.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("normalizer metrics: %w", err)
		}
		emitters = append(emitters, m)
	}
	emitters = append(emitters, extra)
	return diagnostics.Multi(emitters...), nil
}

func bodyDecoder(conf *configpkg.Config, override normalizer.BodyDecoder) (normalizer.BodyDecoder, error) {
	if override != nil {
		return override, nil
	}
	if conf.BodyEncoding == "" {
		return textenc.System(), nil
	}
	return textenc.New(conf.BodyEncoding)
}

// Normalizer returns the normalizer of the named subscription.
func (g *Gateway) Normalizer(subscription string) (*normalizer.Normalizer, bool) {
	n, ok := g.normalizers[subscription]
	return n, ok
}

// Start runs the router until ctx is cancelled or Close is called.
func (g *Gateway) Start(ctx context.Context) error {
	g.startHTTPServers()
	return routerRun(g.router, ctx)
}

// Running is closed once every subscription handler is running.
func (g *Gateway) Running() chan struct{} {
	return g.router.Running()
}

// Close stops the router and the subscriber.
func (g *Gateway) Close() error {
	return g.router.Close()
}

// handler adapts, normalizes and dispatches one delivery.
func (g *Gateway) handler(n *normalizer.Normalizer) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		canonical := n.Normalize(g.adapter.ToRawMessage(msg))
		if canonical.IsFailure() {
			g.Logger.Warn("Dropping unusable message", loggingpkg.LogFields{
				"subscription": n.Subscription().Name,
				"message_uuid": msg.UUID,
			})
			return nil
		}

		ctx := ingressmsg.ContextWithTrace(msg.Context(), canonical.Header)
		ctx, span := otel.Tracer(tracerName).Start(ctx, "DispatchMessage",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.message.id", canonical.Header.ID),
				attribute.String("messaging.destination.name", canonical.Header.Topic.String()),
				attribute.String("ingress.message_type", canonical.Header.MessageType.String()),
				attribute.Int("ingress.handled_count", canonical.Header.HandledCount),
			),
		)
		defer span.End()

		if err := g.dispatcher.Dispatch(ctx, canonical); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		return nil
	}
}

// RegisterHTTPHandler serves handler on port once the gateway starts.
func (g *Gateway) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	g.httpServersMu.Lock()
	defer g.httpServersMu.Unlock()

	if g.httpServers == nil {
		g.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := g.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		g.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (g *Gateway) startHTTPServers() {
	g.httpServersMu.Lock()
	defer g.httpServersMu.Unlock()

	for port, mux := range g.httpServers {
		addr := fmt.Sprintf(":%d", port)
		g.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				g.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
