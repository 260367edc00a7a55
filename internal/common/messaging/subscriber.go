package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"edumatch-notifications/internal/common/logger"
)

// Decision tells the subscriber how to settle a delivery.
type Decision int

const (
	// Ack removes the message from the queue. Also used for poison messages
	// that should be dropped.
	Ack Decision = iota
	// Requeue returns the message to the queue for redelivery.
	Requeue
	// Reject discards the message (dead-lettered when the queue has a DLX).
	Reject
)

func (d Decision) String() string {
	switch d {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	case Reject:
		return "reject"
	}
	return "unknown"
}

// Message is the broker-independent view of one delivery.
type Message struct {
	RoutingKey  string
	MessageID   string
	Redelivered bool
	Body        []byte
}

type Handler func(ctx context.Context, msg Message) Decision

type SubscriberOptions struct {
	Queue          string
	ConsumerTag    string
	Prefetch       int
	Workers        int
	HandlerTimeout time.Duration
	RetryDelay     time.Duration
}

// Subscriber consumes a queue with a fixed pool of workers. Each delivery is
// handled synchronously by one worker and settled after the handler returns.
type Subscriber struct {
	broker  *Broker
	opts    SubscriberOptions
	handler Handler
	logger  logger.Logger
}

func NewSubscriber(b *Broker, opts SubscriberOptions, handler Handler, log logger.Logger) *Subscriber {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.Queue == "" {
		opts.Queue = b.cfg.Queue
	}
	return &Subscriber{
		broker:  b,
		opts:    opts,
		handler: handler,
		logger:  log.WithFields(map[string]interface{}{"queue": opts.Queue}),
	}
}

// Run consumes until ctx is cancelled, re-subscribing after channel loss.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		err := s.consumeOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("consumer stopped, retrying", map[string]interface{}{
			"error":      err,
			"retryDelay": s.opts.RetryDelay.String(),
		})

		select {
		case <-time.After(s.opts.RetryDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Subscriber) consumeOnce(ctx context.Context) error {
	ch, err := s.broker.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(s.opts.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(s.opts.Queue, s.opts.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", s.opts.Queue, err)
	}

	s.logger.Info("consumer started", map[string]interface{}{
		"workers":  s.opts.Workers,
		"prefetch": s.opts.Prefetch,
	})

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(s.opts.ConsumerTag, false)
		case <-stopped:
		}
	}()

	s.serve(ctx, deliveries)
	return fmt.Errorf("delivery channel closed")
}

// serve runs the worker pool until deliveries is closed.
func (s *Subscriber) serve(ctx context.Context, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				s.process(ctx, d)
			}
		}()
	}
	wg.Wait()
}

func (s *Subscriber) process(ctx context.Context, d amqp.Delivery) {
	decision := s.invoke(ctx, Message{
		RoutingKey:  d.RoutingKey,
		MessageID:   d.MessageId,
		Redelivered: d.Redelivered,
		Body:        d.Body,
	})

	var err error
	switch decision {
	case Ack:
		err = d.Ack(false)
	case Requeue:
		err = d.Nack(false, true)
	default:
		err = d.Nack(false, false)
	}
	if err != nil {
		s.logger.Error("failed to settle delivery", map[string]interface{}{
			"error":      err,
			"decision":   decision.String(),
			"routingKey": d.RoutingKey,
		})
	}
}

func (s *Subscriber) invoke(ctx context.Context, msg Message) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panicked", map[string]interface{}{
				"panic":      fmt.Sprint(r),
				"routingKey": msg.RoutingKey,
				"messageId":  msg.MessageID,
			})
			decision = Reject
		}
	}()

	// in-flight messages finish on shutdown instead of being requeued
	hctx := context.WithoutCancel(ctx)
	if s.opts.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(hctx, s.opts.HandlerTimeout)
		defer cancel()
	}
	return s.handler(hctx, msg)
}
