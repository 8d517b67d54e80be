package kafka

//go:generate go run go.uber.org/mock/mockgen -source=./kafka.go -destination=./mocks/kafka_mock.go -package=mocks

import (
	"benzback/config"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const writerBatchTimeout = 50 * time.Millisecond

type Message struct {
	Key     string
	Value   any
	Headers map[string]string
}

func (m *Message) ToKafkaMessage() (kafkaGo.Message, error) {
	value := m.Value

	jsonValue, ok := value.(json.RawMessage)
	if !ok {
		var err error

		jsonValue, err = json.Marshal(value)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal message value to JSON")

			return kafkaGo.Message{}, fmt.Errorf("failed to marshal message value to JSON: %w", err)
		}
	}

	message := kafkaGo.Message{
		Key:   []byte(m.Key),
		Value: jsonValue,
	}

	for key, val := range m.Headers {
		message.Headers = append(message.Headers, kafkaGo.Header{Key: key, Value: []byte(val)})
	}

	return message, nil
}

type Client interface {
	SendMessages(ctx context.Context, topic string, messages ...Message) (err error)
	Close() error
}

type kafkaClientImpl struct {
	transport *kafkaGo.Transport
	address   net.Addr

	mu      sync.Mutex
	writers map[string]*kafkaGo.Writer
}

func New(config *config.Config) Client {
	transport := &kafkaGo.Transport{}

	if config.Kafka.SASL.Username != "" {
		transport.SASL = plain.Mechanism{
			Username: config.Kafka.SASL.Username,
			Password: config.Kafka.SASL.Password,
		}
	}

	log.Info().Strs("brokers", config.Kafka.Brokers).Msg("Kafka client initialized")

	return &kafkaClientImpl{
		transport: transport,
		address:   kafkaGo.TCP(config.Kafka.Brokers...),
		writers:   map[string]*kafkaGo.Writer{},
	}
}

// writer returns the cached synchronous writer for topic. Delivery errors must reach the
// caller so the outbox row can be retried.
func (k *kafkaClientImpl) writer(topic string) *kafkaGo.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()

	if w, ok := k.writers[topic]; ok {
		return w
	}

	w := &kafkaGo.Writer{
		Addr:                   k.address,
		Topic:                  topic,
		Transport:              k.transport,
		Balancer:               &kafkaGo.Hash{},
		RequiredAcks:           kafkaGo.RequireAll,
		BatchTimeout:           writerBatchTimeout,
		AllowAutoTopicCreation: true,
	}
	k.writers[topic] = w

	return w
}

func (k *kafkaClientImpl) SendMessages(ctx context.Context, topic string, messages ...Message) (err error) {
	msgs := make([]kafkaGo.Message, 0, len(messages))

	for _, message := range messages {
		msg, err := message.ToKafkaMessage()
		if err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to convert message to Kafka message.")

			return fmt.Errorf("failed to convert message to Kafka message: %w", err)
		}

		msgs = append(msgs, msg)
	}

	err = k.writer(topic).WriteMessages(ctx, msgs...)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to send message to Kafka.")

		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	log.Debug().Str("topic", topic).Int("count", len(msgs)).Msg("Sent message successfully.")

	return nil
}

func (k *kafkaClientImpl) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var firstErr error

	for topic, w := range k.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to close Kafka writer.")

			firstErr = fmt.Errorf("failed to close kafka writer: %w", err)
		}

		delete(k.writers, topic)
	}

	return firstErr
}
