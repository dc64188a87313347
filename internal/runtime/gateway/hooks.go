package gateway

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	loggingpkg "github.com/drblury/ingress/internal/runtime/logging"
)

// DispatchContext describes one delivery to hooks.
type DispatchContext struct {
	// Subscription is the name of the subscription handling the delivery.
	Subscription string
	// Source is the broker topic, queue or subject it came from.
	Source string
	// MessageUUID is the Watermill message identifier.
	MessageUUID string
	// Context is the context associated with the message.
	Context context.Context
	// StartedAt is when handling started.
	StartedAt time.Time
	// Duration is how long handling took (only set in OnDone and OnError).
	Duration time.Duration
}

// DispatchHooks defines callbacks around the handling of each delivery.
// All hooks are optional.
type DispatchHooks struct {
	OnStart func(ctx DispatchContext)
	OnDone  func(ctx DispatchContext)
	OnError func(ctx DispatchContext, err error)
}

// Merge combines two DispatchHooks; hooks from other run after those of h.
func (h DispatchHooks) Merge(other DispatchHooks) DispatchHooks {
	return DispatchHooks{
		OnStart: chainHooks(h.OnStart, other.OnStart),
		OnDone:  chainHooks(h.OnDone, other.OnDone),
		OnError: chainErrorHooks(h.OnError, other.OnError),
	}
}

func chainHooks(a, b func(DispatchContext)) func(DispatchContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DispatchContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(DispatchContext, error)) func(DispatchContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DispatchContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// HooksMiddleware installs hooks on every subscription handler.
func HooksMiddleware(hooks DispatchHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "dispatch_hooks",
		Middleware: hooksMiddleware(hooks),
	}
}

func hooksMiddleware(hooks DispatchHooks) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			dctx := DispatchContext{
				Subscription: message.HandlerNameFromCtx(msg.Context()),
				Source:       message.SubscribeTopicFromCtx(msg.Context()),
				MessageUUID:  msg.UUID,
				Context:      msg.Context(),
				StartedAt:    time.Now(),
			}
			if hooks.OnStart != nil {
				hooks.OnStart(dctx)
			}

			msgs, err := h(msg)
			dctx.Duration = time.Since(dctx.StartedAt)

			if err != nil {
				if hooks.OnError != nil {
					hooks.OnError(dctx, err)
				}
			} else if hooks.OnDone != nil {
				hooks.OnDone(dctx)
			}
			return msgs, err
		}
	}
}

// LoggingHooks logs the outcome of every dispatch.
func LoggingHooks(logger loggingpkg.ServiceLogger) DispatchHooks {
	fields := func(ctx DispatchContext) loggingpkg.LogFields {
		return loggingpkg.LogFields{
			"subscription": ctx.Subscription,
			"source":       ctx.Source,
			"message_uuid": ctx.MessageUUID,
			"duration_ms":  ctx.Duration.Milliseconds(),
		}
	}
	return DispatchHooks{
		OnDone: func(ctx DispatchContext) {
			logger.Debug("Message dispatched", fields(ctx))
		},
		OnError: func(ctx DispatchContext, err error) {
			logger.Error("Dispatch failed", err, fields(ctx))
		},
	}
}
