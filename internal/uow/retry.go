package uow

import (
	"benzback/config"
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	defaultMaxRetries = 3
	defaultRetryBase  = 20 * time.Millisecond
)

type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
}

func RetryPolicyFromConfig(cfg *config.Config) RetryPolicy {
	policy := RetryPolicy{
		MaxRetries: cfg.DB.Postgres.TxMaxRetry,
		Base:       time.Duration(cfg.DB.Postgres.TxRetryBaseMs) * time.Millisecond,
	}

	if policy.MaxRetries < 0 {
		policy.MaxRetries = defaultMaxRetries
	}

	if policy.Base <= 0 {
		policy.Base = defaultRetryBase
	}

	return policy
}

// withRetry re-runs fn with exponential backoff while it fails transiently. The last
// error is returned once the retries are spent.
func withRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	base := policy.Base
	if base <= 0 {
		base = defaultRetryBase
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(max(policy.MaxRetries, 0)), retry.NewExponential(base)) //nolint:gosec

	return retry.Do(ctx, backoff, func(ctx context.Context) error { //nolint:wrapcheck
		attempt++

		err := fn(ctx)
		if err != nil && IsTransient(err) {
			log.Warn().Err(err).Int("attempt", attempt).Msg("transient unit of work failure, retrying")

			return retry.RetryableError(err)
		}

		return err
	})
}
