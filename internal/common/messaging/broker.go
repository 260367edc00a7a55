// Package messaging wraps the RabbitMQ topic exchange shared by the EduMatch
// services: topology declaration, confirmed publishing and a worker-pool
// subscriber with explicit ack decisions.
package messaging

import (
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"edumatch-notifications/internal/common/config"
	"edumatch-notifications/internal/common/logger"
)

// Broker owns the AMQP connection and re-dials it when it drops.
type Broker struct {
	cfg    config.RabbitMQConfig
	logger logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

func Dial(cfg config.RabbitMQConfig, log logger.Logger) (*Broker, error) {
	b := &Broker{cfg: cfg, logger: log.WithFields(map[string]interface{}{"component": "rabbitmq"})}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broker) connect() error {
	conn, err := amqp.Dial(b.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := DeclareTopology(ch, b.cfg); err != nil {
		conn.Close()
		return err
	}

	b.conn = conn
	b.logger.Info("rabbitmq connected", map[string]interface{}{
		"exchange": b.cfg.Exchange,
		"queue":    b.cfg.Queue,
		"bindings": b.cfg.BindingKeys,
	})
	return nil
}

// Channel opens a fresh channel, reconnecting first if the connection is gone.
func (b *Broker) Channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		b.logger.Warn("rabbitmq connection lost, reconnecting", nil)
		if err := b.connect(); err != nil {
			return nil, err
		}
	}
	return b.conn.Channel()
}

func (b *Broker) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && !b.conn.IsClosed()
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn.Close()
	}
	return nil
}

// topologyChannel is the part of *amqp.Channel used to declare topology.
type topologyChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeclareTopology declares the durable topic exchange, the durable queue and
// one binding per routing key. Re-declaring identical objects is a no-op.
func DeclareTopology(ch topologyChannel, cfg config.RabbitMQConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	if cfg.Queue == "" {
		return nil
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	for _, key := range cfg.BindingKeys {
		if err := ch.QueueBind(cfg.Queue, key, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", cfg.Queue, key, err)
		}
	}
	return nil
}
