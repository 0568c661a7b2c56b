package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the durable queue holding email jobs.
const DefaultQueueName = "authcore.email_jobs"

// Channel is the subset of *amqp.Channel used by Queue.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// Queue publishes messages as persistent JSON jobs to a durable RabbitMQ
// queue and consumes them in the mail worker.
type Queue struct {
	conn *amqp.Connection
	ch   Channel
	name string
}

// DialQueue connects to RabbitMQ and declares the queue.
func DialQueue(url, name string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("mail: dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mail: open amqp channel: %w", err)
	}
	q, err := NewQueue(ch, name)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	q.conn = conn
	return q, nil
}

// NewQueue declares the durable queue on an open channel.
func NewQueue(ch Channel, name string) (*Queue, error) {
	if name == "" {
		name = DefaultQueueName
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("mail: declare queue %s: %w", name, err)
	}
	return &Queue{ch: ch, name: name}, nil
}

// Send publishes msg as a persistent job.
func (q *Queue) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mail: encode job: %w", err)
	}
	err = q.ch.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("mail: publish job: %w", err)
	}
	return nil
}

// Consume delivers queued jobs through sender until ctx ends or the
// delivery channel closes. A failed job is requeued once; a job that fails
// on redelivery or cannot be decoded is dropped.
func (q *Queue) Consume(ctx context.Context, sender Sender, log logrus.FieldLogger) error {
	if log == nil {
		log = discard()
	}
	if err := q.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("mail: set qos: %w", err)
	}
	deliveries, err := q.ch.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("mail: consume %s: %w", q.name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("mail: delivery channel closed")
			}
			q.handle(ctx, d, sender, log)
		}
	}
}

func (q *Queue) handle(ctx context.Context, d amqp.Delivery, sender Sender, log logrus.FieldLogger) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.WithError(err).Error("dropping malformed email job")
		_ = d.Reject(false)
		return
	}

	entry := log.WithFields(logrus.Fields{"to": msg.To, "redelivered": d.Redelivered})
	if err := sender.Send(ctx, &msg); err != nil {
		entry.WithError(err).Error("email job failed")
		if err := d.Nack(false, !d.Redelivered); err != nil {
			entry.WithError(err).Error("nack email job")
		}
		return
	}
	if err := d.Ack(false); err != nil {
		entry.WithError(err).Error("ack email job")
		return
	}
	entry.Info("email job delivered")
}

// Close closes the channel and the connection it owns.
func (q *Queue) Close() error {
	err := q.ch.Close()
	if q.conn != nil {
		if cerr := q.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
