package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumatch-notifications/internal/common/config"
	"edumatch-notifications/internal/common/logger"
)

type fakeAcknowledger struct {
	mu       sync.Mutex
	acked    []uint64
	nacked   []uint64
	requeued []uint64
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if requeue {
		f.requeued = append(f.requeued, tag)
	} else {
		f.nacked = append(f.nacked, tag)
	}
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func newTestSubscriber(t *testing.T, workers int, h Handler) *Subscriber {
	return &Subscriber{
		opts:    SubscriberOptions{Workers: workers},
		handler: h,
		logger:  logger.NewTestLogger(t),
	}
}

func TestSubscriber_SettlesByDecision(t *testing.T) {
	ack := &fakeAcknowledger{}
	sub := newTestSubscriber(t, 3, func(ctx context.Context, msg Message) Decision {
		switch string(msg.Body) {
		case "requeue":
			return Requeue
		case "reject":
			return Reject
		case "panic":
			panic("boom")
		}
		return Ack
	})

	deliveries := make(chan amqp.Delivery, 4)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("requeue")}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("reject")}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 4, Body: []byte("panic")}
	close(deliveries)

	sub.serve(context.Background(), deliveries)

	assert.ElementsMatch(t, []uint64{1}, ack.acked)
	assert.ElementsMatch(t, []uint64{2}, ack.requeued)
	assert.ElementsMatch(t, []uint64{3, 4}, ack.nacked)
}

func TestSubscriber_HandlerSurvivesShutdown(t *testing.T) {
	ack := &fakeAcknowledger{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var handlerErr error
	sub := newTestSubscriber(t, 1, func(ctx context.Context, msg Message) Decision {
		handlerErr = ctx.Err()
		return Ack
	})

	sub.process(ctx, amqp.Delivery{Acknowledger: ack, DeliveryTag: 9})

	assert.NoError(t, handlerErr)
	assert.Equal(t, []uint64{9}, ack.acked)
}

type fakeTopology struct {
	exchanges []string
	queues    []string
	bindings  []string
	failBind  bool
}

func (f *fakeTopology) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.exchanges = append(f.exchanges, name+":"+kind)
	return nil
}

func (f *fakeTopology) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.queues = append(f.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeTopology) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	if f.failBind {
		return errors.New("access refused")
	}
	f.bindings = append(f.bindings, key)
	return nil
}

func TestDeclareTopology(t *testing.T) {
	cfg := config.RabbitMQConfig{
		Exchange:    "events_exchange",
		Queue:       "notification_queue",
		BindingKeys: []string{"notification.application.status", "scholarship.new.match"},
	}

	t.Run("declares exchange queue and bindings", func(t *testing.T) {
		ch := &fakeTopology{}
		require.NoError(t, DeclareTopology(ch, cfg))
		assert.Equal(t, []string{"events_exchange:topic"}, ch.exchanges)
		assert.Equal(t, []string{"notification_queue"}, ch.queues)
		assert.Equal(t, cfg.BindingKeys, ch.bindings)
	})

	t.Run("bind failure surfaces", func(t *testing.T) {
		err := DeclareTopology(&fakeTopology{failBind: true}, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access refused")
	})
}

type fakeConfirmChannel struct {
	published  []amqp.Publishing
	keys       []string
	acked      bool
	publishErr error
	closed     bool
}

func (f *fakeConfirmChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (waitFunc, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.published = append(f.published, msg)
	f.keys = append(f.keys, key)
	return func(context.Context) (bool, error) { return f.acked, nil }, nil
}

func (f *fakeConfirmChannel) IsClosed() bool { return f.closed }
func (f *fakeConfirmChannel) Close() error   { f.closed = true; return nil }

func newTestPublisher(ch *fakeConfirmChannel) *AMQPPublisher {
	return &AMQPPublisher{
		exchange: "events_exchange",
		source:   "notification-service",
		open:     func() (confirmChannel, error) { return ch, nil },
	}
}

func TestPublisher_Publish(t *testing.T) {
	t.Run("confirmed publish is persistent json", func(t *testing.T) {
		ch := &fakeConfirmChannel{acked: true}
		p := newTestPublisher(ch)

		err := p.Publish(context.Background(), "notification.application.status", map[string]interface{}{"recipientId": 1})
		require.NoError(t, err)

		require.Len(t, ch.published, 1)
		msg := ch.published[0]
		assert.Equal(t, "notification.application.status", ch.keys[0])
		assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
		assert.Equal(t, "application/json", msg.ContentType)
		assert.NotEmpty(t, msg.MessageId)
		assert.JSONEq(t, `{"recipientId":1}`, string(msg.Body))
	})

	t.Run("broker nack is an error", func(t *testing.T) {
		p := newTestPublisher(&fakeConfirmChannel{acked: false})
		err := p.Publish(context.Background(), "k", map[string]string{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nacked")
	})

	t.Run("publish error is wrapped", func(t *testing.T) {
		p := newTestPublisher(&fakeConfirmChannel{publishErr: amqp.ErrClosed})
		err := p.Publish(context.Background(), "k", map[string]string{})
		assert.ErrorIs(t, err, amqp.ErrClosed)
	})

	t.Run("closed channel is reopened", func(t *testing.T) {
		stale := &fakeConfirmChannel{closed: true}
		fresh := &fakeConfirmChannel{acked: true}
		p := newTestPublisher(fresh)
		p.ch = stale

		require.NoError(t, p.Publish(context.Background(), "k", map[string]string{}))
		assert.Empty(t, stale.published)
		assert.Len(t, fresh.published, 1)
	})
}
