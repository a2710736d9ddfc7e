package outbox

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

// Producer writes event batches to Kafka, keeping one writer per topic.
type Producer struct {
	brokers []string
	mu      sync.RWMutex
	writers map[string]*kafka.Writer
}

// NewProducer creates a Producer for the given broker list.
func NewProducer(brokers []string) *Producer {
	return &Producer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages delivers messages to a topic, creating the writer on first use.
func (p *Producer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	p.mu.RLock()
	writer, ok := p.writers[topic]
	p.mu.RUnlock()
	if !ok {
		writer = p.newWriter(topic)
	}
	return writer.WriteMessages(ctx, msgs...)
}

func (p *Producer) newWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	// Hash on the partition key so all events for one user stay ordered.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases every writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
