// Package publisher fans stored broadcasts out to Kafka, where the
// notification delivery system consumes them.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"volunteerhub/internal/broadcast/models"
)

// DefaultTopic carries broadcast messages.
const DefaultTopic = "volunteerhub.broadcasts"

const defaultPublishTimeout = 3 * time.Second

// Message is the record value written to the topic.
type Message struct {
	BroadcastID string    `json:"broadcast_id"`
	EventID     string    `json:"event_id"`
	AuthorID    string    `json:"author_id"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// Kafka publishes broadcasts keyed by event ID so a consumer sees each event's
// messages in order.
type Kafka struct {
	client  *kgo.Client
	topic   string
	timeout time.Duration
}

type Option func(*Kafka)

func WithTopic(topic string) Option {
	return func(k *Kafka) {
		if topic != "" {
			k.topic = topic
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(k *Kafka) {
		if d > 0 {
			k.timeout = d
		}
	}
}

// NewKafka connects a producer to brokers.
func NewKafka(brokers []string, opts ...Option) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	k := &Kafka{topic: DefaultTopic, timeout: defaultPublishTimeout}
	for _, opt := range opts {
		opt(k)
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(k.topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	k.client = client
	return k, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (k *Kafka) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(k.client)
	resp, err := admin.CreateTopic(ctx, partitions, replicationFactor, nil, k.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", k.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", k.topic, resp.Err)
	}
	return nil
}

// Publish writes b and waits for the broker acknowledgement.
func (k *Kafka) Publish(ctx context.Context, b *models.Broadcast) error {
	value, err := json.Marshal(Message{
		BroadcastID: b.ID.String(),
		EventID:     b.EventID.String(),
		AuthorID:    b.AuthorID.String(),
		Message:     b.Message,
		CreatedAt:   b.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(b.EventID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce broadcast: %w", err)
	}
	return nil
}

// Health pings the cluster.
func (k *Kafka) Health(ctx context.Context) error {
	return k.client.Ping(ctx)
}

func (k *Kafka) Close() {
	k.client.Close()
}
