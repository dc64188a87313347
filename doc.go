// Package ingress is the inbound edge of a message gateway built on Watermill.
// It subscribes to the configured broker, turns every delivery into a
// canonical Message and hands it to a Dispatcher.
//
// Normalization is total: a message is never rejected because optional
// metadata is missing or malformed. Each header field falls back to a fixed
// default and the condition is reported to an Emitter as a diagnostic, so
// operators can see which producers send incomplete metadata without losing
// traffic. Only a missing message yields the MessageTypeUnacceptable failure
// sentinel.
//
// # Transports
//
// The broker is selected by Config.PubSubSystem:
//   - channel: in-memory Go channels for tests and local runs
//   - kafka: consumer groups via Sarama
//   - rabbitmq: durable AMQP queues
//   - nats: core NATS subjects
//   - nats-jetstream: durable JetStream pull consumers with redelivery counts
//   - aws: SQS queues, with LocalStack support
//   - aws-sns: SNS topics fanned out to SQS queues
//   - http: one POST route per subscription; CloudEvents binary-mode headers
//     are understood
//   - postgres (alias postgresql): a queue table polled with SKIP LOCKED
//   - sqlite: a queue table in a local database file
//
// Every transport encodes the broker's native message (lock token, content
// type, correlation id, delivery count) into Watermill metadata, so the
// normalizer sees the same RawMessage whatever the broker.
//
// # Diagnostics
//
// One Report is emitted per normalized message. The gateway always logs it
// through the ServiceLogger and, with Config.MetricsEnabled, counts it in
// Prometheus. Dependencies.Emitter adds a custom sink.
//
// # Middleware
//
// The default router chain records Prometheus metrics and recovers panics.
// RetryMiddleware, LogMessagesMiddleware and HooksMiddleware can be added via
// Dependencies.Middlewares.
package ingress
