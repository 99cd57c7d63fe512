// Package broker is the message transport: a single durable direct exchange
// with per-key durable queues, persistent confirmed publishes and explicit
// acknowledgement, giving at-least-once delivery.
//
// AMQPBroker runs on RabbitMQ through amqp091-go; MemoryBroker implements the
// same contract in-process for tests and local runs.
//
//	b, err := broker.DialAMQP(ctx, cfg, broker.Topology{
//	    Exchange: "notifications.direct",
//	    Queues: []broker.QueueSpec{
//	        {Name: "email.queue", RoutingKey: "email"},
//	        {Name: "failed.queue", RoutingKey: "failed"},
//	    },
//	})
//
// Consumer wraps a Subscriber with a bounded worker loop, panic recovery and
// dead-letter routing. Return broker.Requeue(err) from a handler for
// transient failures that should be retried.
package broker
