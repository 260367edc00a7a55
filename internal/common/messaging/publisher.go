package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes a JSON payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

type waitFunc func(ctx context.Context) (bool, error)

// confirmChannel is a channel in confirm mode.
type confirmChannel interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (waitFunc, error)
	IsClosed() bool
	Close() error
}

type amqpConfirmChannel struct {
	*amqp.Channel
}

func (c amqpConfirmChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (waitFunc, error) {
	dc, err := c.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	return dc.WaitContext, nil
}

// AMQPPublisher publishes persistent messages and waits for the broker
// confirm, so a nil error means the exchange accepted the message.
type AMQPPublisher struct {
	exchange string
	source   string
	open     func() (confirmChannel, error)

	mu sync.Mutex
	ch confirmChannel
}

func NewPublisher(b *Broker, source string) *AMQPPublisher {
	return &AMQPPublisher{
		exchange: b.cfg.Exchange,
		source:   source,
		open: func() (confirmChannel, error) {
			ch, err := b.Channel()
			if err != nil {
				return nil, err
			}
			if err := ch.Confirm(false); err != nil {
				ch.Close()
				return nil, fmt.Errorf("enable confirms: %w", err)
			}
			return amqpConfirmChannel{ch}, nil
		},
	}
}

func (p *AMQPPublisher) channel() (confirmChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.open()
		if err != nil {
			return nil, err
		}
		p.ch = ch
	}
	return p.ch, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	wait, err := ch.publish(ctx, p.exchange, routingKey, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		AppId:        p.source,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	acked, err := wait(ctx)
	if err != nil {
		return fmt.Errorf("await confirm %s: %w", routingKey, err)
	}
	if !acked {
		return fmt.Errorf("publish %s: broker nacked message", routingKey)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch.Close()
	}
	return nil
}
