// Package events publishes change notifications over AMQP for UI and sync
// collaborators. Publishing is fire-and-forget from the core's perspective:
// callers log failures and move on.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Publisher owns one AMQP connection and channel and publishes change
// events to a durable direct exchange.
type Publisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

// NewPublisher dials AMQP and declares the exchange and queue.
func NewPublisher(url, exchangeName, queueName string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &Publisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return p, nil
}

func (p *Publisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = p.channel.QueueDeclare(
		p.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := p.channel.QueueBind(p.queueName, p.queueName, p.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// AliasChanged implements merchant.EventSink.
func (p *Publisher) AliasChanged(ctx context.Context, keys []string, displayName, category string) error {
	return p.publish(ctx, KindMerchantAliasChanged, MerchantAliasChanged{
		Keys:        keys,
		DisplayName: displayName,
		Category:    category,
	})
}

// CategoryChanged implements merchant.EventSink.
func (p *Publisher) CategoryChanged(ctx context.Context, merchantKey, newCategory string) error {
	return p.publish(ctx, KindCategoryChanged, CategoryChanged{
		MerchantKey: merchantKey,
		NewCategory: newCategory,
	})
}

// GroupInclusionChanged notifies a totals-toggle flip.
func (p *Publisher) GroupInclusionChanged(ctx context.Context, displayName string, included bool) error {
	return p.publish(ctx, KindGroupInclusionChanged, GroupInclusionChanged{
		DisplayName: displayName,
		Included:    included,
	})
}

func (p *Publisher) publish(ctx context.Context, kind string, payload any) error {
	body, err := Wrap(kind, payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName,
		p.queueName, // routing key matches the queue on a direct exchange
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}

	slog.InfoContext(ctx, "published change event",
		"kind", kind, "exchange", p.exchangeName, "queue", p.queueName)
	return nil
}

// acknowledger is the slice of amqp091.Delivery the consume loop needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// handleDelivery decodes and dispatches one delivery. A handler failure is
// requeued once; failing again on the redelivery drops the message, so a
// persistently failing delivery cannot spin the consumer.
func handleDelivery(ctx context.Context, body []byte, redelivered bool, ack acknowledger, handler func(Envelope) error) {
	env, err := Decode(body)
	if err != nil {
		slog.WarnContext(ctx, "discarding undecodable event", "error", err)
		_ = ack.Nack(false, false)
		return
	}
	if err := handler(env); err != nil {
		requeue := !redelivered
		slog.ErrorContext(ctx, "event handler failed",
			"kind", env.Kind, "requeue", requeue, "error", err)
		_ = ack.Nack(false, requeue)
		return
	}
	_ = ack.Ack(false)
}

// Consume delivers events to handler until ctx is cancelled. A handler error
// nacks the delivery for one redelivery; successes ack.
func (p *Publisher) Consume(ctx context.Context, handler func(Envelope) error) error {
	msgs, err := p.channel.Consume(
		p.queueName,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "consuming change events", "queue", p.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("event channel closed")
			}
			handleDelivery(ctx, delivery.Body, delivery.Redelivered, delivery, handler)
		}
	}
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
