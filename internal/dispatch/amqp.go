package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	defaultExchange   = "duecall"
	defaultQueueName  = "duecall.dial-jobs"
	defaultRoutingKey = "call.dispatch"

	consumePrefetch = 8
)

// AMQPQueue is a durable topic-exchange queue backed by RabbitMQ. Jobs are
// published persistent and acknowledged only after the handler returns.
type AMQPQueue struct {
	conn       *amqp091.Connection
	ch         *amqp091.Channel
	exchange   string
	queueName  string
	routingKey string
}

func NewAMQPQueue(url, exchange, queueName, routingKey string) (*AMQPQueue, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	if err := ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue %s: %w", queueName, err)
	}

	return &AMQPQueue{
		conn:       conn,
		ch:         ch,
		exchange:   exchange,
		queueName:  queueName,
		routingKey: routingKey,
	}, nil
}

func (q *AMQPQueue) Publish(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.DispatchID, err)
	}

	err = q.ch.PublishWithContext(ctx, q.exchange, q.routingKey, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    job.DispatchID,
			Timestamp:    job.EnqueuedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish job %s: %w", job.DispatchID, err)
	}
	return nil
}

func (q *AMQPQueue) Consume(ctx context.Context, handler Handler) error {
	if err := q.ch.Qos(consumePrefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := q.ch.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			var job Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Printf("dispatch: undecodable job %s: %v", d.MessageId, err)
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(ctx, job); err != nil {
				// A dial is never re-attempted; dead-letter instead of requeue.
				log.Printf("dispatch: job %s failed: %v", job.DispatchID, err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (q *AMQPQueue) Close() error {
	_ = q.ch.Close()
	return q.conn.Close()
}
