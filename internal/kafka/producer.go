// Package kafka publishes booking events to Kafka wrapped in a versioned
// envelope.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("kafka: producer closed")

// Envelope wraps every payload written to Kafka.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and wraps it with a fresh event id.
func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "seat-reservation",
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages in an inbox channel and writes them from a
// single goroutine.  The topic is set per message.
type Producer struct {
	w       writer
	log     logrus.FieldLogger
	inbox   chan kafka.Message
	closeCh chan struct{}
	done    chan struct{}
}

// NewProducer builds a producer for brokers with an inbox of buf messages.
func NewProducer(brokers []string, buf int, log logrus.FieldLogger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, buf, log)
}

func newProducer(w writer, buf int, log logrus.FieldLogger) *Producer {
	if buf <= 0 {
		buf = 1
	}
	return &Producer{
		w:       w,
		log:     log,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the write loop until Close is called.  Remaining messages are
// flushed before the writer is closed.
func (p *Producer) Start() {
	go func() {
		defer close(p.done)
		for {
			select {
			case m := <-p.inbox:
				p.write(m)
			case <-p.closeCh:
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						if err := p.w.Close(); err != nil {
							p.log.WithError(err).Warn("kafka: close writer")
						}
						return
					}
				}
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.WithError(err).WithField("topic", m.Topic).Warn("kafka: write failed")
	}
}

// Publish wraps payload in an Envelope and queues it for topic, keyed by
// key so every event of one booking lands on the same partition.  It blocks
// while the inbox is full until ctx is done.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	env, err := NewEnvelope(topic, key, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	m := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}
	select {
	case <-p.closeCh:
		return ErrClosed
	default:
	}
	select {
	case p.inbox <- m:
		return nil
	case <-p.closeCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits until the inbox is flushed.
func (p *Producer) Close() {
	select {
	case <-p.closeCh:
	default:
		close(p.closeCh)
	}
	<-p.done
}
