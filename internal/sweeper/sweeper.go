// Package sweeper cancels bookings whose payment never arrived, on a cron schedule.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"trekkr/pkg/config"
	"trekkr/pkg/logger"
)

const sweepTimeout = 2 * time.Minute

type Expirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type Sweeper struct {
	cron     *cron.Cron
	expirer  Expirer
	schedule string
	ttl      time.Duration
	timeout  time.Duration
	log      *logger.Logger
}

func New(expirer Expirer, cfg *config.Config) *Sweeper {
	log := cfg.Log.Component("sweeper")
	cl := cronLogger{log: log}
	return &Sweeper{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		expirer:  expirer,
		schedule: cfg.SweeperSchedule,
		ttl:      cfg.PendingBookingTTL,
		timeout:  sweepTimeout,
		log:      log,
	}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("failed to schedule booking sweeper %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.log.Info("Booking sweeper started", "schedule", s.schedule, "pending_ttl", s.ttl)
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("Booking sweeper stopped")
	case <-ctx.Done():
		s.log.Warn("Booking sweeper did not stop in time", "error", ctx.Err())
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	expired, err := s.expirer.ExpireStale(ctx, s.ttl)
	if err != nil {
		s.log.Error("Booking sweep failed", "expired", expired, "error", err)
		return expired, err
	}
	s.log.Debug("Booking sweep finished", "expired", expired, "duration", time.Since(start))
	return expired, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
