package presence

import (
	"benzback/config"
	"benzback/infras/otel"
	"benzback/shared/constant"
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultKey = "presence:drivers"

// redisRegistry stores heartbeats in a sorted set scored by unix milliseconds. Older
// heartbeats never move a score back.
type redisRegistry struct {
	client redis.Cmdable
	key    string
	otel   otel.Otel
}

func NewRedis(client *redis.Client, cfg *config.Config, otel otel.Otel) Registry {
	key := cfg.Presence.Key
	if key == constant.Empty {
		key = defaultKey
	}

	return &redisRegistry{
		client: client,
		key:    key,
		otel:   otel,
	}
}

func score(at time.Time) float64 {
	return float64(at.UnixMilli())
}

func (r *redisRegistry) Heartbeat(ctx context.Context, driverID string, at time.Time) (err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelPresenceScopeName, constant.OtelPresenceScopeName+".Heartbeat")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if err = r.client.ZAddArgs(ctx, r.key, redis.ZAddArgs{GT: true, Members: []redis.Z{{Score: score(at), Member: driverID}}}).Err(); err != nil {
		log.Error().Err(err).Str("driver_id", driverID).Msg("failed to record heartbeat")

		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	return nil
}

func (r *redisRegistry) Remove(ctx context.Context, driverID string) (err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelPresenceScopeName, constant.OtelPresenceScopeName+".Remove")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if err = r.client.ZRem(ctx, r.key, driverID).Err(); err != nil {
		log.Error().Err(err).Str("driver_id", driverID).Msg("failed to remove driver presence")

		return fmt.Errorf("failed to remove driver presence: %w", err)
	}

	return nil
}

func (r *redisRegistry) Online(ctx context.Context, since time.Time) (ids []string, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelPresenceScopeName, constant.OtelPresenceScopeName+".Online")
	defer scope.End()
	defer scope.TraceIfError(&err)

	ids, err = r.client.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		log.Error().Err(err).Msg("failed to list online drivers")

		return nil, fmt.Errorf("failed to list online drivers: %w", err)
	}

	slices.Sort(ids)

	return ids, nil
}

func (r *redisRegistry) Sweep(ctx context.Context, olderThan time.Time) (removed int, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelPresenceScopeName, constant.OtelPresenceScopeName+".Sweep")
	defer scope.End()
	defer scope.TraceIfError(&err)

	count, err := r.client.ZRemRangeByScore(ctx, r.key, "-inf", "("+strconv.FormatInt(olderThan.UnixMilli(), 10)).Result()
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep driver presence")

		return 0, fmt.Errorf("failed to sweep driver presence: %w", err)
	}

	return int(count), nil
}
