package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"benzback/config"
	"benzback/infras/otel"
	bModel "benzback/internal/domains/booking/model"
	"benzback/internal/presence"
	"benzback/internal/uow"
	"benzback/shared/constant"
	"benzback/shared/failure"
	"benzback/shared/timezone"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Driver keeps professional drivers' presence current. Only online drivers are offered
// booking requests.
type Driver interface {
	Heartbeat(ctx context.Context, driverID string) error
	Offline(ctx context.Context, driverID string) error
	SweepPresence(ctx context.Context) (int, error)
}

type serviceImpl struct {
	uow      uow.UnitOfWork
	presence presence.Registry
	ttl      time.Duration
	otel     otel.Otel
	now      func() time.Time
}

func New(unit uow.UnitOfWork, registry presence.Registry, cfg *config.Config, otel otel.Otel) Driver {
	return NewWithClock(unit, registry, presence.TTLFromConfig(cfg), otel, timezone.Now)
}

func NewWithClock(unit uow.UnitOfWork, registry presence.Registry, ttl time.Duration, otel otel.Otel, now func() time.Time) Driver {
	return &serviceImpl{
		uow:      unit,
		presence: registry,
		ttl:      ttl,
		otel:     otel,
		now:      now,
	}
}

// authorizeDriver checks that the caller owns driverID (or is an admin) and that the
// driver may take assignments.
func (s *serviceImpl) authorizeDriver(ctx context.Context, driverID string) error {
	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	return s.uow.View(ctx, func(ctx context.Context, tx uow.Tx) error { //nolint:wrapcheck
		driver, err := tx.Drivers().Get(ctx, driverID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if driver.ID == constant.Empty {
			return bModel.ErrDriverNotFound
		}

		if role != constant.RoleAdmin && driver.UserID != userID {
			return failure.ForbiddenError
		}

		if !driver.EligibleForAssignment() {
			return bModel.ErrDriverNotEligible
		}

		return nil
	})
}

func (s *serviceImpl) Heartbeat(ctx context.Context, driverID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Heartbeat")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if err = s.authorizeDriver(ctx, driverID); err != nil {
		log.Warn().Err(err).Str("driver_id", driverID).Msg("heartbeat rejected")

		return err
	}

	if err = s.presence.Heartbeat(ctx, driverID, s.now()); err != nil {
		log.Error().Err(err).Str("driver_id", driverID).Msg("failed to record heartbeat")

		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	return nil
}

func (s *serviceImpl) Offline(ctx context.Context, driverID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Offline")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if err = s.authorizeDriver(ctx, driverID); err != nil {
		log.Warn().Err(err).Str("driver_id", driverID).Msg("offline rejected")

		return err
	}

	if err = s.presence.Remove(ctx, driverID); err != nil {
		log.Error().Err(err).Str("driver_id", driverID).Msg("failed to mark driver offline")

		return fmt.Errorf("failed to mark driver offline: %w", err)
	}

	log.Info().Str("driver_id", driverID).Msg("driver went offline")

	return nil
}

// SweepPresence drops drivers whose last heartbeat is older than the presence TTL.
func (s *serviceImpl) SweepPresence(ctx context.Context) (removed int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".SweepPresence")
	defer scope.End()
	defer scope.TraceIfError(&err)

	removed, err = s.presence.Sweep(ctx, s.now().Add(-s.ttl))
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep driver presence")

		return 0, fmt.Errorf("failed to sweep driver presence: %w", err)
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("stale drivers removed from presence")
	}

	return removed, nil
}
