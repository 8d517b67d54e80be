package redis

//go:generate go run go.uber.org/mock/mockgen -source=./broadcaster.go -destination=./mocks/broadcaster_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Envelope is what subscribers of a broadcast channel receive.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, envelope Envelope) error
}

type broadcasterImpl struct {
	client *goRedis.Client
}

func NewBroadcaster(client *goRedis.Client) Broadcaster {
	return &broadcasterImpl{client: client}
}

func (b *broadcasterImpl) Publish(ctx context.Context, channel string, envelope Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast envelope: %w", err)
	}

	receivers, err := b.client.Publish(ctx, channel, data).Result()
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to publish broadcast")

		return fmt.Errorf("failed to publish broadcast: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event", envelope.Event).Int64("receivers", receivers).Msg("broadcast published")

	return nil
}
