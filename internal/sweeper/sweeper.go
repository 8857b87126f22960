// Package sweeper runs the periodic reconciliation jobs: completing ended
// showtimes, cancelling expired bookings, purging lapsed seat locks, and
// repairing drift between bookings and their holds. Every job is a
// conditional bulk operation, so overlapping or repeated runs are no-ops.
package sweeper

import (
	"context"
	"sync"
	"time"

	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/usecase"

	"go.uber.org/zap"
)

type Intervals struct {
	Showtime    time.Duration
	Booking     time.Duration
	Lock        time.Duration
	Consistency time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Showtime:    time.Minute,
		Booking:     time.Minute,
		Lock:        time.Minute,
		Consistency: 5 * time.Minute,
	}
}

type Sweeper struct {
	service   *usecase.Service
	repo      *repository.Repository
	intervals Intervals
	now       func() time.Time
	log       *zap.Logger
}

func New(service *usecase.Service, repo *repository.Repository, intervals Intervals, log *zap.Logger) *Sweeper {
	return &Sweeper{
		service:   service,
		repo:      repo,
		intervals: intervals,
		now:       time.Now,
		log:       log.With(zap.String("component", "sweeper")),
	}
}

// WithClock replaces the wall clock used by the lock sweep.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run blocks until ctx is cancelled, driving each sweep on its own ticker.
func (s *Sweeper) Run(ctx context.Context) {
	jobs := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context)
	}{
		{"showtime", s.intervals.Showtime, s.SweepShowtimes},
		{"booking", s.intervals.Booking, s.SweepBookings},
		{"lock", s.intervals.Lock, s.SweepLocks},
		{"consistency", s.intervals.Consistency, s.SweepConsistency},
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(name string, interval time.Duration, fn func(context.Context)) {
			defer wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					fn(ctx)
				}
			}
		}(job.name, job.interval, job.fn)
	}

	s.log.Info("Sweeper started",
		zap.Duration("showtime_interval", s.intervals.Showtime),
		zap.Duration("booking_interval", s.intervals.Booking),
		zap.Duration("lock_interval", s.intervals.Lock),
		zap.Duration("consistency_interval", s.intervals.Consistency),
	)

	wg.Wait()
	s.log.Info("Sweeper stopped")
}

// SweepShowtimes completes every scheduled showtime whose end time has passed.
func (s *Sweeper) SweepShowtimes(ctx context.Context) {
	completed, err := s.service.Showtime.CompleteEnded(ctx)
	if err != nil {
		s.log.Error("Showtime sweep failed", zap.Error(err))
		return
	}
	if completed > 0 {
		s.log.Info("Showtime sweep", zap.Int("completed", completed))
	}
}

// SweepBookings cancels bookings whose payment hold deadline has lapsed.
func (s *Sweeper) SweepBookings(ctx context.Context) {
	cancelled, err := s.service.Booking.AutoCancelExpired(ctx)
	if err != nil {
		s.log.Error("Booking sweep failed", zap.Error(err))
		return
	}
	if cancelled > 0 {
		s.log.Info("Booking sweep", zap.Int("cancelled", cancelled))
	}
}

// SweepLocks deletes expired Locked seat holds. Safe to run concurrently
// with acquisition, which already treats expired locks as free.
func (s *Sweeper) SweepLocks(ctx context.Context) {
	purged, err := s.repo.SeatHold.PurgeExpired(ctx, s.now())
	if err != nil {
		s.log.Error("Lock sweep failed", zap.Error(err))
		return
	}
	if purged > 0 {
		s.log.Info("Lock sweep", zap.Int64("purged", purged))
	}
}

// SweepConsistency repairs drift between bookings and their seat holds:
// Booked holds whose booking is gone or no longer active are released, and
// holds of completed bookings that somehow stayed Locked are committed.
func (s *Sweeper) SweepConsistency(ctx context.Context) {
	released, err := s.repo.SeatHold.ReleaseOrphanedBooked(ctx)
	if err != nil {
		s.log.Error("Consistency sweep failed releasing orphans", zap.Error(err))
		return
	}

	committed, err := s.repo.SeatHold.CommitLockedForCompletedBookings(ctx)
	if err != nil {
		s.log.Error("Consistency sweep failed committing stragglers", zap.Error(err))
		return
	}

	if released > 0 || committed > 0 {
		s.log.Info("Consistency sweep",
			zap.Int64("orphans_released", released),
			zap.Int64("stragglers_committed", committed),
		)
	}
}
