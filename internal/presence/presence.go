// Package presence tracks which drivers are online from their heartbeats.
package presence

import (
	"benzback/config"
	"context"
	"time"
)

const defaultTTL = 90 * time.Second

// Registry keeps one heartbeat timestamp per driver.
type Registry interface {
	Heartbeat(ctx context.Context, driverID string, at time.Time) error
	Remove(ctx context.Context, driverID string) error
	// Online lists drivers whose last heartbeat is at or after since, ordered by id.
	Online(ctx context.Context, since time.Time) ([]string, error)
	// Sweep drops drivers whose last heartbeat is before olderThan and reports how many.
	Sweep(ctx context.Context, olderThan time.Time) (int, error)
}

// TTLFromConfig is how long a heartbeat keeps a driver online.
func TTLFromConfig(cfg *config.Config) time.Duration {
	if cfg.Presence.TTLSeconds <= 0 {
		return defaultTTL
	}

	return time.Duration(cfg.Presence.TTLSeconds) * time.Second
}
