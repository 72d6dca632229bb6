package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher delivers reindex work items to Kafka. The screening core emits
// work items and never waits on their delivery; a separate dispatcher consumes
// the topic.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// reindexMessage is the wire shape of a reindex work item.
type reindexMessage struct {
	Dataset     string    `json:"dataset"`
	RunID       string    `json:"run_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewPublisher connects to the brokers and ensures the topic exists.
// Returns nil if no brokers are configured (publishing disabled).
func NewPublisher(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	// Ensure the topic exists; already-exists errors are fine.
	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopics(ctx, 1, 1, nil, topic); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topic, err)
	}

	return &Publisher{client: client, topic: topic}, nil
}

// PublishReindex emits a reindex work item keyed by dataset so items for one
// dataset stay ordered on a single partition.
func (p *Publisher) PublishReindex(ctx context.Context, dataset, runID string) error {
	msg := reindexMessage{
		Dataset:     dataset,
		RunID:       runID,
		RequestedAt: time.Now().UTC(),
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal reindex message: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(dataset),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce reindex message: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Close()
}
