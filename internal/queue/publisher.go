package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher delivers a JSON-encoded payload to a named topic.  key is used
// for partitioning by brokers that support it and ignored otherwise.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// AMQPPublisher publishes to RabbitMQ using the default exchange with the
// topic as routing key, so each topic maps onto a durable queue of the same
// name.  The connection is opened lazily and re-dialled after a failure.
type AMQPPublisher struct {
	url string
	log logrus.FieldLogger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string, log logrus.FieldLogger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log}
}

func (p *AMQPPublisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

// Publish declares the queue (idempotent) and publishes a persistent
// message.  Errors are logged and returned so the caller can decide to
// ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	entry := p.log.WithFields(logrus.Fields{"topic": topic, "key": key})
	conn, err := p.connection()
	if err != nil {
		entry.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		entry.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		entry.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    key,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", topic, false, false, pub); err != nil {
		entry.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// Nop discards every event.  Used when EVENTS_BROKER=none.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
