package worker

import (
	"benzback/config"
	"benzback/infras/kafka"
	"benzback/infras/otel"
	"benzback/infras/redis"
	"benzback/infras/s3"
	oModel "benzback/internal/domains/outbox/model"
	"benzback/internal/uow"
	"benzback/shared/constant"
	"benzback/shared/logger"
	"benzback/shared/timezone"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 5

	redeliveryBase = 2 * time.Second
	redeliveryCap  = 5 * time.Minute

	headerEvent = "event"
	headerKind  = "kind"
)

var errUnknownKind = errors.New("unknown outbox message kind")

// Relay delivers pending outbox messages to their sinks. Delivery is at least once: a
// message is marked sent only after its sink accepted it.
type Relay interface {
	Run(ctx context.Context) (sent int, err error)
}

type relayImpl struct {
	uow         uow.UnitOfWork
	kafka       kafka.Client
	broadcaster redis.Broadcaster
	storage     s3.S3
	cfg         *config.Config
	otel        otel.Otel
	now         func() time.Time
}

func NewRelay(unit uow.UnitOfWork, kafka kafka.Client, broadcaster redis.Broadcaster, storage s3.S3, cfg *config.Config, otel otel.Otel) Relay {
	return NewRelayWithClock(unit, kafka, broadcaster, storage, cfg, otel, timezone.Now)
}

func NewRelayWithClock(unit uow.UnitOfWork, kafka kafka.Client, broadcaster redis.Broadcaster, storage s3.S3, cfg *config.Config, otel otel.Otel, now func() time.Time) Relay {
	return &relayImpl{
		uow:         unit,
		kafka:       kafka,
		broadcaster: broadcaster,
		storage:     storage,
		cfg:         cfg,
		otel:        otel,
		now:         now,
	}
}

func (r *relayImpl) batchSize() int {
	if r.cfg.Outbox.BatchSize > 0 {
		return r.cfg.Outbox.BatchSize
	}

	return defaultBatchSize
}

func (r *relayImpl) maxAttempts() int {
	if r.cfg.Outbox.MaxAttempts > 0 {
		return r.cfg.Outbox.MaxAttempts
	}

	return defaultMaxAttempts
}

// Run claims one batch of due messages and delivers them. Rows stay locked for the batch so
// concurrent relays skip them.
func (r *relayImpl) Run(ctx context.Context) (sent int, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelWorkerScopeName, constant.OtelWorkerScopeName+".relay.Run")
	defer scope.End()
	defer scope.TraceIfError(&err)

	err = r.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		sent = 0
		now := r.now()

		messages, err := tx.Outbox().ClaimDue(ctx, now, r.batchSize())
		if err != nil {
			return err //nolint:wrapcheck
		}

		for _, message := range messages {
			if deliveryErr := r.deliver(ctx, message); deliveryErr != nil {
				logger.Ctx(ctx).Warn().
					Err(deliveryErr).
					Str("message_id", message.ID).
					Str("kind", string(message.Kind)).
					Int("attempts", message.Attempts+1).
					Msg("outbox delivery failed")

				message.MarkFailed(deliveryErr, now, redeliveryDelay(message.Attempts+1), r.maxAttempts())

				if message.Status == oModel.StatusFailed {
					logger.Ctx(ctx).Error().Str("message_id", message.ID).Str("event", message.Event).Msg("outbox message parked after max attempts")
				}
			} else {
				message.MarkSent(now)
				sent++
			}

			if err := tx.Outbox().Save(ctx, message); err != nil {
				return err //nolint:wrapcheck
			}
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to relay outbox")

		return 0, fmt.Errorf("failed to relay outbox: %w", err)
	}

	if sent > 0 {
		log.Debug().Int("sent", sent).Msg("outbox relayed")
	}

	return sent, nil
}

func (r *relayImpl) deliver(ctx context.Context, message oModel.Message) error {
	switch message.Kind {
	case oModel.KindNotification:
		return r.kafka.SendMessages(ctx, message.Topic, kafka.Message{ //nolint:wrapcheck
			Key:   message.Recipient,
			Value: json.RawMessage(message.Payload),
			Headers: map[string]string{
				headerEvent: message.Event,
				headerKind:  string(message.Kind),
			},
		})
	case oModel.KindBroadcast:
		return r.broadcaster.Publish(ctx, r.channel(message.Topic), redis.Envelope{ //nolint:wrapcheck
			Event:   message.Event,
			Payload: json.RawMessage(message.Payload),
		})
	case oModel.KindArchive:
		_, err := r.storage.UploadFileBytes(ctx, r.archiveBucket(), r.cfg.Booking.SettlementArchiveDirName, message.Topic, constant.ContentTypeJSON, message.Payload)

		return err //nolint:wrapcheck
	default:
		return fmt.Errorf("%w: %s", errUnknownKind, message.Kind)
	}
}

func (r *relayImpl) channel(topic string) string {
	if r.cfg.Booking.BroadcastTopicPrefix == constant.Empty {
		return topic
	}

	return r.cfg.Booking.BroadcastTopicPrefix + ":" + topic
}

func (r *relayImpl) archiveBucket() string {
	if r.cfg.Booking.SettlementArchiveBucket != constant.Empty {
		return r.cfg.Booking.SettlementArchiveBucket
	}

	return r.cfg.External.S3.BucketName
}

// redeliveryDelay is the capped exponential wait before the given attempt is retried.
func redeliveryDelay(attempt int) time.Duration {
	backoff := retry.WithCappedDuration(redeliveryCap, retry.NewExponential(redeliveryBase))

	delay := redeliveryBase

	for range max(attempt, 1) {
		next, stop := backoff.Next()
		if stop {
			break
		}

		delay = next
	}

	return delay
}
