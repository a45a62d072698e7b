// Package mq wraps the RabbitMQ transport used by the Worker Pool
// (spec.md §4.H): a reconnecting publisher/consumer pair with publisher
// confirms and automatic consumer recovery.
package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultReconnectDelay   = 1 * time.Second
	maxReconnectDelay       = 30 * time.Second
	confirmationChannelSize = 1000
)

// RabbitMQ defines the interface for message queue operations.
type RabbitMQ interface {
	Publish(ctx context.Context, exchange, routingKey string, headers amqp.Table, body []byte) error
	Consume(queue string, prefetch int, handler func(ctx context.Context, d amqp.Delivery) error) error
	Close() error
}

type consumerConfig struct {
	queue    string
	prefetch int
	handler  func(ctx context.Context, d amqp.Delivery) error
}

type rabbitMQ struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	isConnected bool
	notifyClose chan *amqp.Error

	notifyConfirm chan amqp.Confirmation

	consumers []consumerConfig

	reconnectDly time.Duration
}

// NewRabbitMQ creates a new RabbitMQ client with automatic reconnection and async publisher confirms.
func NewRabbitMQ(url string, logger *slog.Logger) (RabbitMQ, error) {
	mq := &rabbitMQ{
		url:          url,
		logger:       logger,
		reconnectDly: defaultReconnectDelay,
		consumers:    make([]consumerConfig, 0),
	}

	if err := mq.connect(); err != nil {
		return nil, err
	}

	go mq.reconnectLoop()

	return mq, nil
}

func (r *rabbitMQ) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	r.conn = conn
	r.channel = ch
	r.notifyClose = make(chan *amqp.Error, 1)
	r.conn.NotifyClose(r.notifyClose)

	r.notifyConfirm = make(chan amqp.Confirmation, confirmationChannelSize)
	r.channel.NotifyPublish(r.notifyConfirm)

	go r.handleConfirmations(r.notifyConfirm)

	r.isConnected = true
	r.logger.Info("connected to rabbitmq")

	return nil
}

func (r *rabbitMQ) handleConfirmations(confirms <-chan amqp.Confirmation) {
	for c := range confirms {
		if !c.Ack {
			r.logger.Error("message failed to publish (nack)", "tag", c.DeliveryTag)
		}
	}
}

func (r *rabbitMQ) reconnectLoop() {
	for {
		err := <-r.notifyClose
		if err == nil {
			return
		}

		r.logger.Error("rabbitmq connection lost, reconnecting", "error", err)

		r.mu.Lock()
		r.isConnected = false
		r.mu.Unlock()

		for {
			time.Sleep(r.reconnectDly)
			if err := r.connect(); err == nil {
				r.logger.Info("rabbitmq reconnected")
				r.reconnectDly = defaultReconnectDelay
				r.recoverConsumers()
				break
			}

			if r.reconnectDly < maxReconnectDelay {
				r.reconnectDly *= 2
			}
			r.logger.Info("retrying rabbitmq connection", "delay", r.reconnectDly)
		}
	}
}

func (r *rabbitMQ) recoverConsumers() {
	r.mu.RLock()
	consumers := make([]consumerConfig, len(r.consumers))
	copy(consumers, r.consumers)
	r.mu.RUnlock()

	for _, cfg := range consumers {
		r.logger.Info("recovering consumer", "queue", cfg.queue)
		if err := r.internalStartConsumer(cfg.queue, cfg.prefetch, cfg.handler); err != nil {
			r.logger.Error("failed to recover consumer", "queue", cfg.queue, "error", err)
		}
	}
}

// internalStartConsumer registers the consumer on the current channel with
// the given prefetch count (spec.md §4.H: "prefetch = 1 per worker, no
// speculative fetch") and late acknowledgement: the delivery is acked only
// after handler returns nil, nacked without requeue otherwise, so a failed
// task becomes the caller's responsibility to resolve (retry or dead-letter).
func (r *rabbitMQ) internalStartConsumer(queue string, prefetch int, handler func(ctx context.Context, d amqp.Delivery) error) error {
	r.mu.RLock()
	if !r.isConnected {
		r.mu.RUnlock()
		return errors.New("rabbitmq not connected")
	}
	ch := r.channel
	r.mu.RUnlock()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := ch.Consume(
		queue,
		"",    // consumer
		false, // auto-ack: false, late ack only
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			ctx := context.Background()
			if err := handler(ctx, d); err != nil {
				r.logger.Error("failed to process message", "queue", queue, "error", err)
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
		r.logger.Info("consumer stopped (channel closed)", "queue", queue)
	}()

	return nil
}

// Publish sends a persistent message with the given headers, used to carry
// the retry-count annotation a delayed redelivery needs (spec.md §4.H).
func (r *rabbitMQ) Publish(ctx context.Context, exchange, routingKey string, headers amqp.Table, body []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.isConnected {
		return errors.New("rabbitmq not connected")
	}

	err := r.channel.PublishWithContext(ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Consume registers a consumer and adds it to the registry for recovery.
func (r *rabbitMQ) Consume(queue string, prefetch int, handler func(ctx context.Context, d amqp.Delivery) error) error {
	r.mu.Lock()
	r.consumers = append(r.consumers, consumerConfig{queue: queue, prefetch: prefetch, handler: handler})
	r.mu.Unlock()

	return r.internalStartConsumer(queue, prefetch, handler)
}

func (r *rabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn.Close()
	}
	return nil
}
