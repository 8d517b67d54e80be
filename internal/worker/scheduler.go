package worker

import (
	"benzback/config"
	"benzback/infras/otel"
	bService "benzback/internal/domains/booking/service"
	dService "benzback/internal/domains/driver/service"
	"benzback/shared/timezone"
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const jobTimeout = time.Minute

// Scheduler runs the background jobs on their cron specs.
type Scheduler struct {
	cron    *cron.Cron
	cfg     *config.Config
	relay   Relay
	booking bService.Booking
	driver  dService.Driver
	otel    otel.Otel
}

func NewScheduler(cfg *config.Config, relay Relay, booking bService.Booking, driver dService.Driver, otel otel.Otel) *Scheduler {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(timezone.GetLocation()),
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		cfg:     cfg,
		relay:   relay,
		booking: booking,
		driver:  driver,
		otel:    otel,
	}

	s.registerJobs()

	return s
}

func (s *Scheduler) registerJobs() {
	specs := s.cfg.Scheduler

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) (int, error)
	}{
		{name: "relay_outbox", spec: specs.RelayOutbox, run: s.relay.Run},
		{name: "expire_driver_requests", spec: specs.ExpireDriverRequests, run: s.booking.ExpireDriverRequests},
		{name: "mark_overdue_bookings", spec: specs.MarkOverdueBookings, run: s.booking.MarkOverdue},
		{name: "sweep_presence", spec: specs.SweepPresence, run: s.driver.SweepPresence},
	}

	for _, job := range jobs {
		if job.spec == "" {
			log.Warn().Str("job", job.name).Msg("no schedule configured, job disabled")

			continue
		}

		if _, err := s.cron.AddFunc(job.spec, func() { runWithRecovery(job.name, job.run) }); err != nil {
			log.Error().Err(err).Str("job", job.name).Str("spec", job.spec).Msg("failed to register job")
		}
	}
}

func runWithRecovery(name string, run func(ctx context.Context) (int, error)) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("job", name).Interface("panic", r).Msg("job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	affected, err := run(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("job failed")

		return
	}

	log.Debug().Str("job", name).Int("affected", affected).Msg("job completed")
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	log.Info().Int("jobs", s.Entries()).Msg("starting scheduler")
	s.cron.Start()
}

// Stop waits for running jobs to finish, then flushes their traces.
func (s *Scheduler) Stop() {
	log.Info().Msg("stopping scheduler")
	<-s.cron.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.otel.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}
}
