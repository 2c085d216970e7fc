package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const DefaultTopic = "anchorgate.anchors"

// Producer is the subset of *kgo.Client used for anchoring.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// TopicAdmin is the subset of *kadm.Client used to provision the anchor topic.
type TopicAdmin interface {
	CreateTopics(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topics ...string) (kadm.CreateTopicResponses, error)
}

// Kafka anchors roots by appending them to a Kafka topic. The returned
// reference is kafka://<topic>/<partition>/<offset>, which addresses the
// record permanently on a log with infinite retention.
type Kafka struct {
	producer Producer
	topic    string
}

func NewKafka(producer Producer, topic string) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Kafka{producer: producer, topic: topic}
}

func (k *Kafka) Topic() string {
	return k.topic
}

func (k *Kafka) Anchor(ctx context.Context, req AnchorRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode anchor request: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(strconv.FormatUint(req.BatchID, 10)),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "algo", Value: []byte(req.AlgoID)},
			{Key: "meta-uri", Value: []byte(req.MetaURI)},
		},
	}
	produced, err := k.producer.ProduceSync(ctx, record).First()
	if err != nil {
		return "", errors.Join(ErrLedgerUnavailable, fmt.Errorf("produce anchor for batch %d: %w", req.BatchID, err))
	}
	return fmt.Sprintf("kafka://%s/%d/%d", produced.Topic, produced.Partition, produced.Offset), nil
}

// EnsureTopic creates the anchor topic if it does not exist yet.
func EnsureTopic(ctx context.Context, admin TopicAdmin, topic string, partitions int32, replicationFactor int16) error {
	retention := "-1"
	resps, err := admin.CreateTopics(ctx, partitions, replicationFactor,
		map[string]*string{"retention.ms": &retention}, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}
