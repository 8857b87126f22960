// Package memory provides an in-process implementation of the repository
// interfaces backed by maps and a single mutex. It mirrors the conditional
// write semantics of the Postgres layer (per-pair uniqueness, status-guarded
// transitions) so service and sweeper tests can exercise the state machines
// without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/data/repository"

	"github.com/google/uuid"
)

type seatKey struct {
	showtimeID uuid.UUID
	seatID     uuid.UUID
}

type Store struct {
	mu          sync.Mutex
	movies      map[uuid.UUID]entity.Movie
	halls       map[uuid.UUID]entity.Hall
	showtimes   map[uuid.UUID]entity.Showtime
	bookings    map[uuid.UUID]entity.Booking
	holds       map[uuid.UUID]entity.SeatHold
	holdsBySeat map[seatKey]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		movies:      make(map[uuid.UUID]entity.Movie),
		halls:       make(map[uuid.UUID]entity.Hall),
		showtimes:   make(map[uuid.UUID]entity.Showtime),
		bookings:    make(map[uuid.UUID]entity.Booking),
		holds:       make(map[uuid.UUID]entity.SeatHold),
		holdsBySeat: make(map[seatKey]uuid.UUID),
	}
}

// Repositories exposes the store through the same aggregate the Postgres
// layer uses, so it can be wired into services unchanged.
func (s *Store) Repositories() *repository.Repository {
	return &repository.Repository{
		Movie:    &movieStore{s},
		Hall:     &hallStore{s},
		Showtime: &showtimeStore{s},
		Booking:  &bookingStore{s},
		SeatHold: &seatHoldStore{s},
	}
}

// ---------- seed and inspection helpers ----------

func (s *Store) AddMovie(movie entity.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[movie.ID] = movie
}

func (s *Store) AddHall(hall entity.Hall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halls[hall.ID] = hall
}

// AddHold inserts a hold row directly, bypassing acquire. Used by tests to
// inject the drift states the consistency sweep repairs.
func (s *Store) AddHold(hold entity.SeatHold) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[hold.ID] = hold
	s.holdsBySeat[seatKey{hold.ShowtimeID, hold.SeatID}] = hold.ID
}

// HoldCountByShowtime reports how many hold rows exist for a showtime,
// regardless of status or expiry. Used by invariant assertions in tests.
func (s *Store) HoldCountByShowtime(showtimeID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.holds {
		if h.ShowtimeID == showtimeID {
			n++
		}
	}
	return n
}

// ---------- MovieRepository ----------

type movieStore struct{ s *Store }

func (m *movieStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Movie, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if movie, ok := m.s.movies[id]; ok {
		return &movie, nil
	}
	return nil, nil
}

// ---------- HallRepository ----------

type hallStore struct{ s *Store }

func (h *hallStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Hall, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if hall, ok := h.s.halls[id]; ok {
		return &hall, nil
	}
	return nil, nil
}

// ---------- ShowtimeRepository ----------

type showtimeStore struct{ s *Store }

func (r *showtimeStore) Create(ctx context.Context, showtime *entity.Showtime) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.showtimes[showtime.ID] = *showtime
	return nil
}

func (r *showtimeStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if showtime, ok := r.s.showtimes[id]; ok {
		return &showtime, nil
	}
	return nil, nil
}

func (r *showtimeStore) FindByMovieID(ctx context.Context, movieID uuid.UUID) ([]*entity.Showtime, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Showtime
	for _, st := range r.s.showtimes {
		if st.MovieID == movieID && st.Status == entity.ShowtimeStatusScheduled {
			stCopy := st
			out = append(out, &stCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *showtimeStore) Update(ctx context.Context, showtime *entity.Showtime) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.showtimes[showtime.ID]
	if !ok || current.Status != entity.ShowtimeStatusScheduled {
		return fmt.Errorf("showtime %s not found or not scheduled", showtime.ID.String())
	}
	r.s.showtimes[showtime.ID] = *showtime
	return nil
}

func (r *showtimeStore) FindOverlapping(ctx context.Context, hallID uuid.UUID, startsAt, endsAt time.Time, excludeID uuid.UUID) ([]*entity.Showtime, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Showtime
	for _, st := range r.s.showtimes {
		if st.HallID != hallID || st.ID == excludeID || st.Status == entity.ShowtimeStatusCancelled {
			continue
		}
		if st.StartsAt.Before(endsAt) && st.EndsAt.After(startsAt) {
			stCopy := st
			out = append(out, &stCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *showtimeStore) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to entity.ShowtimeStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.showtimes[id]
	if !ok || st.Status != from {
		return false, nil
	}
	st.Status = to
	st.UpdatedAt = time.Now()
	r.s.showtimes[id] = st
	return true, nil
}

func (r *showtimeStore) FindEndedScheduled(ctx context.Context, now time.Time) ([]*entity.Showtime, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Showtime
	for _, st := range r.s.showtimes {
		if st.Status == entity.ShowtimeStatusScheduled && !st.EndsAt.After(now) {
			stCopy := st
			out = append(out, &stCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

// ---------- BookingRepository ----------

type bookingStore struct{ s *Store }

func (r *bookingStore) Create(ctx context.Context, booking *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.bookings[booking.ID] = *booking
	return nil
}

func (r *bookingStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if booking, ok := r.s.bookings[id]; ok {
		return &booking, nil
	}
	return nil, nil
}

func (r *bookingStore) FindByReference(ctx context.Context, referenceCode string) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.ReferenceCode == referenceCode {
			bCopy := b
			return &bCopy, nil
		}
	}
	return nil, nil
}

func (r *bookingStore) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if b.CustomerID == customerID && b.DeletedAt == nil {
			bCopy := b
			out = append(out, &bCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *bookingStore) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, b := range r.s.bookings {
		if b.CustomerID == customerID && b.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *bookingStore) SoftDelete(ctx context.Context, id, customerID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.CustomerID != customerID || b.DeletedAt != nil {
		return false, nil
	}
	now := time.Now()
	b.DeletedAt = &now
	b.UpdatedAt = now
	r.s.bookings[id] = b
	return true, nil
}

func (r *bookingStore) CancelIfConfirmed(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.Status != entity.BookingStatusConfirmed {
		return false, nil
	}
	b.Status = entity.BookingStatusCancelled
	if b.PaymentStatus != entity.PaymentStatusCompleted {
		b.PaymentStatus = entity.PaymentStatusFailed
	}
	b.UpdatedAt = time.Now()
	r.s.bookings[id] = b
	return true, nil
}

func (r *bookingStore) ConfirmPaymentIfPending(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.Status != entity.BookingStatusConfirmed || b.PaymentStatus != entity.PaymentStatusPending {
		return false, nil
	}
	b.Status = entity.BookingStatusCompleted
	b.PaymentStatus = entity.PaymentStatusCompleted
	b.PaymentRef = &paymentRef
	b.UpdatedAt = time.Now()
	r.s.bookings[id] = b
	return true, nil
}

func (r *bookingStore) ExtendHoldDeadline(ctx context.Context, id uuid.UUID, until time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.Status != entity.BookingStatusConfirmed || b.PaymentStatus != entity.PaymentStatusPending {
		return false, nil
	}
	b.HoldExpiresAt = until
	b.UpdatedAt = time.Now()
	r.s.bookings[id] = b
	return true, nil
}

func (r *bookingStore) CompletePaidByShowtime(ctx context.Context, showtimeID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, b := range r.s.bookings {
		if b.ShowtimeID == showtimeID && b.Status == entity.BookingStatusConfirmed && b.PaymentStatus == entity.PaymentStatusCompleted {
			b.Status = entity.BookingStatusCompleted
			b.UpdatedAt = time.Now()
			r.s.bookings[id] = b
			n++
		}
	}
	return n, nil
}

func (r *bookingStore) FindExpired(ctx context.Context, now time.Time) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if b.Status == entity.BookingStatusConfirmed && b.PaymentStatus == entity.PaymentStatusPending && b.HoldExpiresAt.Before(now) {
			bCopy := b
			out = append(out, &bCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldExpiresAt.Before(out[j].HoldExpiresAt) })
	return out, nil
}

func (r *bookingStore) FindActiveByShowtime(ctx context.Context, showtimeID uuid.UUID) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if b.ShowtimeID == showtimeID && b.Status == entity.BookingStatusConfirmed {
			bCopy := b
			out = append(out, &bCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---------- SeatHoldRepository ----------

type seatHoldStore struct{ s *Store }

func (r *seatHoldStore) Acquire(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, now, expiresAt time.Time) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acquired := make([]uuid.UUID, 0, len(seatIDs))
	release := func() {
		for _, id := range acquired {
			if h, ok := r.s.holds[id]; ok {
				delete(r.s.holdsBySeat, seatKey{h.ShowtimeID, h.SeatID})
				delete(r.s.holds, id)
			}
		}
	}

	for _, seatID := range seatIDs {
		key := seatKey{showtimeID, seatID}
		if existingID, ok := r.s.holdsBySeat[key]; ok {
			existing := r.s.holds[existingID]
			if !existing.ExpiredAt(now) {
				release()
				return nil, fmt.Errorf("seat %s: %w", seatID.String(), repository.ErrSeatUnavailable)
			}
			// Expired lock: overwrite in place, keeping the row id.
			existing.Status = entity.HoldStatusLocked
			existing.BookingID = nil
			exp := expiresAt
			existing.ExpiresAt = &exp
			existing.UpdatedAt = now
			r.s.holds[existingID] = existing
			acquired = append(acquired, existingID)
			continue
		}

		exp := expiresAt
		hold := entity.SeatHold{
			BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			ShowtimeID:   showtimeID,
			SeatID:       seatID,
			Status:       entity.HoldStatusLocked,
			ExpiresAt:    &exp,
		}
		r.s.holds[hold.ID] = hold
		r.s.holdsBySeat[key] = hold.ID
		acquired = append(acquired, hold.ID)
	}

	return acquired, nil
}

func (r *seatHoldStore) Extend(ctx context.Context, holdIDs []uuid.UUID, now, expiresAt time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range holdIDs {
		h, ok := r.s.holds[id]
		if !ok || h.Status != entity.HoldStatusLocked || h.ExpiresAt == nil || !h.ExpiresAt.After(now) {
			continue
		}
		exp := expiresAt
		h.ExpiresAt = &exp
		h.UpdatedAt = now
		r.s.holds[id] = h
		n++
	}
	if n == 0 && len(holdIDs) > 0 {
		return 0, repository.ErrNotLocked
	}
	return n, nil
}

func (r *seatHoldStore) Commit(ctx context.Context, holdIDs []uuid.UUID, bookingID uuid.UUID, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range holdIDs {
		h, ok := r.s.holds[id]
		if !ok {
			return repository.ErrLockExpired
		}
		if h.Status == entity.HoldStatusBooked && (h.BookingID == nil || *h.BookingID != bookingID) {
			return repository.ErrLockAlreadyConsumed
		}
		if h.Status == entity.HoldStatusLocked && (h.ExpiresAt == nil || !h.ExpiresAt.After(now)) {
			return repository.ErrLockExpired
		}
	}

	for _, id := range holdIDs {
		h := r.s.holds[id]
		h.Status = entity.HoldStatusBooked
		bID := bookingID
		h.BookingID = &bID
		h.ExpiresAt = nil
		h.UpdatedAt = now
		r.s.holds[id] = h
	}
	return nil
}

func (r *seatHoldStore) ReleaseByIDs(ctx context.Context, holdIDs []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range holdIDs {
		if h, ok := r.s.holds[id]; ok {
			delete(r.s.holdsBySeat, seatKey{h.ShowtimeID, h.SeatID})
			delete(r.s.holds, id)
		}
	}
	return nil
}

func (r *seatHoldStore) ReleaseByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, h := range r.s.holds {
		if h.BookingID != nil && *h.BookingID == bookingID {
			delete(r.s.holdsBySeat, seatKey{h.ShowtimeID, h.SeatID})
			delete(r.s.holds, id)
			n++
		}
	}
	return n, nil
}

func (r *seatHoldStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, h := range r.s.holds {
		if h.ExpiredAt(now) {
			delete(r.s.holdsBySeat, seatKey{h.ShowtimeID, h.SeatID})
			delete(r.s.holds, id)
			n++
		}
	}
	return n, nil
}

func (r *seatHoldStore) PurgeByShowtime(ctx context.Context, showtimeID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, h := range r.s.holds {
		if h.ShowtimeID == showtimeID {
			delete(r.s.holdsBySeat, seatKey{h.ShowtimeID, h.SeatID})
			delete(r.s.holds, id)
			n++
		}
	}
	return n, nil
}

func (r *seatHoldStore) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.SeatHold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.SeatHold
	for _, h := range r.s.holds {
		if h.BookingID != nil && *h.BookingID == bookingID {
			hCopy := h
			out = append(out, &hCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *seatHoldStore) FindActiveByShowtime(ctx context.Context, showtimeID uuid.UUID, now time.Time) ([]*entity.SeatHold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.SeatHold
	for _, h := range r.s.holds {
		if h.ShowtimeID != showtimeID {
			continue
		}
		if h.Status == entity.HoldStatusBooked || (h.ExpiresAt != nil && h.ExpiresAt.After(now)) {
			hCopy := h
			out = append(out, &hCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *seatHoldStore) ReleaseOrphanedBooked(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, h := range r.s.holds {
		if h.Status != entity.HoldStatusBooked {
			continue
		}
		orphaned := true
		if h.BookingID != nil {
			if b, ok := r.s.bookings[*h.BookingID]; ok {
				if b.Status == entity.BookingStatusConfirmed || b.Status == entity.BookingStatusCompleted {
					orphaned = false
				}
			}
		}
		if orphaned {
			delete(r.s.holdsBySeat, seatKey{h.ShowtimeID, h.SeatID})
			delete(r.s.holds, id)
			n++
		}
	}
	return n, nil
}

func (r *seatHoldStore) CommitLockedForCompletedBookings(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, h := range r.s.holds {
		if h.Status != entity.HoldStatusLocked || h.BookingID == nil {
			continue
		}
		if b, ok := r.s.bookings[*h.BookingID]; ok && b.Status == entity.BookingStatusCompleted {
			h.Status = entity.HoldStatusBooked
			h.ExpiresAt = nil
			h.UpdatedAt = time.Now()
			r.s.holds[id] = h
			n++
		}
	}
	return n, nil
}
