// Package amqp wires the service to the transaction event broker. The
// upstream transaction service publishes to a direct exchange with one
// routing key per lifecycle channel; this client owns the queue topology
// and the consume loop.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

// TransactionHandler processes one decoded transaction message. A non-nil
// error causes a Nack with requeue, so handlers must be safe to re-run.
type TransactionHandler func(ctx context.Context, channel string, msg *TransactionMessage) error

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queues       []string
}

// NewClient dials the broker and declares the exchange plus the created and
// updated queues, binding each under its own name as routing key.
func NewClient(url, exchangeName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queues:       []string{TransactionCreatedQueue, TransactionUpdatedQueue},
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range c.queues {
		_, err = c.channel.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		err = c.channel.QueueBind(
			queue,          // queue name
			queue,          // routing key (same as queue name for direct exchange)
			c.exchangeName, // exchange
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

// PublishTransaction publishes a transaction message on the given channel
// (TransactionCreatedQueue or TransactionUpdatedQueue). The report side only
// consumes; publishing exists for the upstream service and operator tooling.
func (c *Client) PublishTransaction(ctx context.Context, channel string, msg *TransactionMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		channel,        // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published transaction message",
		"transaction_id", msg.TransactionID,
		"user_id", msg.UserID,
		"channel", channel,
		"exchange", c.exchangeName)

	return nil
}

// Consume reads from both transaction queues until the context is cancelled.
// Messages that fail to decode are dropped (Nack without requeue); handler
// errors requeue the delivery so the broker's redelivery policy applies.
func (c *Client) Consume(ctx context.Context, handler TransactionHandler) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, queue := range c.queues {
		msgs, err := c.channel.Consume(
			queue, // queue
			"",    // consumer
			false, // auto-ack (we want manual ack)
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("start consuming %s: %w", queue, err)
		}

		g.Go(func() error {
			return c.consumeLoop(ctx, queue, msgs, handler)
		})
	}

	slog.InfoContext(ctx, "Started consuming transaction messages", "queues", c.queues)

	return g.Wait()
}

func (c *Client) consumeLoop(ctx context.Context, queue string, msgs <-chan amqp091.Delivery, handler TransactionHandler) error {
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed for %s", queue)
			}

			msg, err := TransactionMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "queue", queue, "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(ctx, queue, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"queue", queue,
					"transaction_id", msg.TransactionID,
					"user_id", msg.UserID)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
