package sweeper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const lockKey = "lock:inventory:reservation-sweep"

// ErrSweepInProgress is returned by RunOnce when another replica holds the
// sweep lock.
var ErrSweepInProgress = errors.New("reservation sweep already running")

type Expirer interface {
	ExpireStale(ctx context.Context) (*dto.SweepReport, error)
}

// Locker keeps replicas from sweeping at the same time. Correctness does
// not depend on it: expiring is conditional on the reservation still being
// active.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type Scheduler struct {
	expirer  Expirer
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	log      logger.ZapLogger

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewScheduler builds a sweeper. locker may be nil.
func NewScheduler(expirer Expirer, locker Locker, interval time.Duration, log logger.ZapLogger) *Scheduler {
	return &Scheduler{
		expirer:  expirer,
		locker:   locker,
		interval: interval,
		lockTTL:  interval,
		log:      log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one pass immediately and then one per interval until Stop is
// called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.log.Info("starting reservation sweeper", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop ends the loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info("stopping reservation sweeper")
		close(s.stopCh)
	})
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopCh:
			s.log.Info("reservation sweeper stopped")
			return
		case <-ctx.Done():
			s.log.Info("reservation sweeper cancelled")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			s.log.Debug("skipping sweep, another replica holds the lock")
			return
		}
		s.log.Error("reservation sweep failed", zap.Error(err))
	}
}

// RunOnce performs a single pass and logs its report.
func (s *Scheduler) RunOnce(ctx context.Context) (*dto.SweepReport, error) {
	if s.locker != nil {
		token := uuid.New().String()
		acquired, err := s.locker.AcquireLock(ctx, lockKey, token, s.lockTTL)
		switch {
		case err != nil:
			s.log.Warn("sweep lock unavailable, sweeping without it", zap.Error(err))
		case !acquired:
			return nil, ErrSweepInProgress
		default:
			defer func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil {
					s.log.Warn("failed to release sweep lock", zap.Error(err))
				}
			}()
		}
	}

	report, err := s.expirer.ExpireStale(ctx)
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.Int("scanned", report.Scanned),
		zap.Int("expired", report.Expired),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	}
	if len(report.Failures) > 0 {
		for _, f := range report.Failures {
			s.log.Warn("reservation not expired", zap.String("reservation_id", f.ReservationID), zap.String("error", f.Error))
		}
		s.log.Warn("reservation sweep finished with failures", fields...)
	} else if report.Scanned > 0 {
		s.log.Info("reservation sweep finished", fields...)
	} else {
		s.log.Debug("reservation sweep found nothing to expire")
	}
	return report, nil
}
