package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/data/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSameSeatConcurrently(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	showtimeID := uuid.New()
	seatID := uuid.New()
	now := time.Now()

	const attempts = 50
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{seatID}, now, now.Add(15*time.Minute))
			if err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one acquirer must win the seat")
	assert.Equal(t, 1, store.HoldCountByShowtime(showtimeID))
}

func TestAcquireAllOrNothing(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	showtimeID := uuid.New()
	contested := uuid.New()
	now := time.Now()

	_, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{contested}, now, now.Add(15*time.Minute))
	require.NoError(t, err)

	// A request for three seats including the contested one fails entirely.
	_, err = repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{uuid.New(), contested, uuid.New()}, now, now.Add(15*time.Minute))
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrSeatUnavailable)

	// Only the original hold remains; the two free seats were not kept.
	assert.Equal(t, 1, store.HoldCountByShowtime(showtimeID))
}

func TestAcquireReusesExpiredLock(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	showtimeID := uuid.New()
	seatID := uuid.New()
	t0 := time.Now()

	first, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{seatID}, t0, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Before expiry the seat is taken.
	_, err = repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{seatID}, t0.Add(30*time.Second), t0.Add(2*time.Minute))
	assert.ErrorIs(t, err, repository.ErrSeatUnavailable)

	// Past expiry the lapsed lock is overwritten in place.
	t1 := t0.Add(2 * time.Minute)
	second, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{seatID}, t1, t1.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0], second[0], "expired lock row is reused, not duplicated")
	assert.Equal(t, 1, store.HoldCountByShowtime(showtimeID))
}

func TestCommitRejectsExpiredLock(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	showtimeID := uuid.New()
	t0 := time.Now()

	holdIDs, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{uuid.New()}, t0, t0.Add(time.Minute))
	require.NoError(t, err)

	err = repos.SeatHold.Commit(ctx, holdIDs, uuid.New(), t0.Add(2*time.Minute))
	assert.ErrorIs(t, err, repository.ErrLockExpired)
}

func TestCommitRejectsForeignBooking(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	showtimeID := uuid.New()
	t0 := time.Now()

	holdIDs, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{uuid.New()}, t0, t0.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, repos.SeatHold.Commit(ctx, holdIDs, uuid.New(), t0))

	err = repos.SeatHold.Commit(ctx, holdIDs, uuid.New(), t0)
	assert.ErrorIs(t, err, repository.ErrLockAlreadyConsumed)
}

func TestExtendOnlyLiveLocks(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	showtimeID := uuid.New()
	t0 := time.Now()

	live, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{uuid.New()}, t0, t0.Add(time.Minute))
	require.NoError(t, err)

	lapsed, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{uuid.New()}, t0, t0.Add(time.Second))
	require.NoError(t, err)

	booked, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{uuid.New()}, t0, t0.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, repos.SeatHold.Commit(ctx, booked, uuid.New(), t0))

	t1 := t0.Add(30 * time.Second)
	extended, err := repos.SeatHold.Extend(ctx, append(append(live, lapsed...), booked...), t1, t1.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), extended, "only the live locked hold is extendable")

	// Nothing extendable at all is an error, not a silent zero.
	_, err = repos.SeatHold.Extend(ctx, append(lapsed, booked...), t1, t1.Add(time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotLocked)
}

func TestPurgeExpiredKeepsBooked(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	showtimeID := uuid.New()
	t0 := time.Now()

	lockedSeat := uuid.New()
	_, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{lockedSeat}, t0, t0.Add(time.Minute))
	require.NoError(t, err)

	bookedIDs, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{uuid.New()}, t0, t0.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, repos.SeatHold.Commit(ctx, bookedIDs, uuid.New(), t0))

	purged, err := repos.SeatHold.PurgeExpired(ctx, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Equal(t, 1, store.HoldCountByShowtime(showtimeID))

	// The purged seat is immediately acquirable again.
	t1 := t0.Add(3 * time.Minute)
	_, err = repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{lockedSeat}, t1, t1.Add(time.Minute))
	assert.NoError(t, err)
}

func TestReleaseByBooking(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	showtimeID := uuid.New()
	bookingID := uuid.New()
	t0 := time.Now()

	holdIDs, err := repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{uuid.New(), uuid.New()}, t0, t0.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, repos.SeatHold.Commit(ctx, holdIDs, bookingID, t0))

	released, err := repos.SeatHold.ReleaseByBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)
	assert.Equal(t, 0, store.HoldCountByShowtime(showtimeID))
}
