package bookings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"trekka/internal/shared/apperrors"
	"trekka/internal/shared/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking
	failNext bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: make(map[uuid.UUID]*Booking)}
}

func (f *fakeRepo) Create(ctx context.Context, booking *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("insert failed")
	}
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.CreatedAt = time.Now().UTC()
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeRepo) GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Booking, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != StatusConfirmed {
		return false, nil
	}
	now := time.Now().UTC()
	b.Status = StatusCancelled
	b.CancelledAt = &now
	return true, nil
}

func (f *fakeRepo) byStatus(status string) []*Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Booking
	for _, b := range f.bookings {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out
}

// fakeLedger honors the atomic decrement contract of the seat inventory:
// a reservation either takes all requested seats or none.
type fakeLedger struct {
	mu           sync.Mutex
	available    int
	pricePerSeat float64
	reservations map[uuid.UUID]int // handle -> seat count, removed on release
	released     map[uuid.UUID]int // release call counts per handle
	failReleases int               // fail this many release calls before recovering
}

func newFakeLedger(available int, price float64) *fakeLedger {
	return &fakeLedger{
		available:    available,
		pricePerSeat: price,
		reservations: make(map[uuid.UUID]int),
		released:     make(map[uuid.UUID]int),
	}
}

func (f *fakeLedger) ReserveSeats(ctx context.Context, vehicleID uuid.UUID, seatCount int) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seatCount > f.available {
		return uuid.Nil, apperrors.ErrInsufficientSeats
	}
	f.available -= seatCount
	id := uuid.New()
	f.reservations[id] = seatCount
	return id, nil
}

func (f *fakeLedger) ReleaseSeats(ctx context.Context, reservationID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReleases > 0 {
		f.failReleases--
		return errors.New("ledger unavailable")
	}
	f.released[reservationID]++
	if count, ok := f.reservations[reservationID]; ok {
		f.available += count
		delete(f.reservations, reservationID)
	}
	return nil
}

func (f *fakeLedger) GetVehiclePricing(ctx context.Context, vehicleID uuid.UUID) (float64, error) {
	return f.pricePerSeat, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
}

func (r *recordingPublisher) PublishBookingConfirmed(ctx context.Context, userID uuid.UUID, bookingRef string, seatCount int, totalPrice float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, bookingRef)
	return nil
}

func (r *recordingPublisher) PublishBookingCancelled(ctx context.Context, userID uuid.UUID, bookingRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, bookingRef)
	return nil
}

func user() middleware.Principal {
	return middleware.Principal{UserID: uuid.New(), Email: "rider@example.com", Role: middleware.RoleUser}
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms and prices the booking", func(t *testing.T) {
		repo := newFakeRepo()
		ledger := newFakeLedger(10, 25.0)
		pub := &recordingPublisher{}
		svc := NewService(repo, ledger, pub)
		principal := user()

		resp, err := svc.CreateBooking(ctx, principal, &CreateBookingRequest{
			VehicleID: uuid.NewString(),
			SeatCount: 3,
		})
		require.NoError(t, err)

		assert.Equal(t, StatusConfirmed, resp.Status)
		assert.Equal(t, 3, resp.SeatCount)
		assert.Equal(t, 75.0, resp.TotalPrice)
		assert.True(t, strings.HasPrefix(resp.BookingRef, "TRK-"))
		assert.Equal(t, 7, ledger.available)
		assert.Equal(t, []string{resp.BookingRef}, pub.confirmed)
	})

	t.Run("insufficient seats keeps a rejected audit row", func(t *testing.T) {
		repo := newFakeRepo()
		ledger := newFakeLedger(2, 25.0)
		svc := NewService(repo, ledger, nil)
		principal := user()

		_, err := svc.CreateBooking(ctx, principal, &CreateBookingRequest{
			VehicleID: uuid.NewString(),
			SeatCount: 5,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInsufficientSeats))

		rejected := repo.byStatus(StatusRejected)
		require.Len(t, rejected, 1)
		assert.Equal(t, 5, rejected[0].SeatCount)
		assert.Equal(t, "insufficient seats", rejected[0].RejectReason)
		assert.Nil(t, rejected[0].ReservationID)
		assert.Equal(t, 2, ledger.available, "rejected booking must not consume seats")
	})

	t.Run("non-positive seat count rejected before touching the ledger", func(t *testing.T) {
		repo := newFakeRepo()
		ledger := newFakeLedger(5, 25.0)
		svc := NewService(repo, ledger, nil)

		_, err := svc.CreateBooking(ctx, user(), &CreateBookingRequest{
			VehicleID: uuid.NewString(),
			SeatCount: 0,
		})
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		assert.Equal(t, 5, ledger.available)
	})

	t.Run("persist failure compensates the reservation", func(t *testing.T) {
		repo := newFakeRepo()
		repo.failNext = true
		ledger := newFakeLedger(5, 25.0)
		svc := NewService(repo, ledger, nil)

		_, err := svc.CreateBooking(ctx, user(), &CreateBookingRequest{
			VehicleID: uuid.NewString(),
			SeatCount: 2,
		})
		require.Error(t, err)
		assert.Equal(t, 5, ledger.available, "seats must return when the booking row fails")
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, available int) (Service, *fakeRepo, *fakeLedger, middleware.Principal, *BookingResponse) {
		repo := newFakeRepo()
		ledger := newFakeLedger(available, 25.0)
		svc := NewService(repo, ledger, nil)
		principal := user()
		resp, err := svc.CreateBooking(ctx, principal, &CreateBookingRequest{
			VehicleID: uuid.NewString(),
			SeatCount: 2,
		})
		require.NoError(t, err)
		return svc, repo, ledger, principal, resp
	}

	t.Run("releases seats exactly once", func(t *testing.T) {
		svc, _, ledger, principal, resp := setup(t, 5)

		cancelled, err := svc.CancelBooking(ctx, principal, resp.BookingID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, 5, ledger.available)

		totalReleases := 0
		for _, n := range ledger.released {
			totalReleases += n
		}
		assert.Equal(t, 1, totalReleases)
	})

	t.Run("double cancel rejected", func(t *testing.T) {
		svc, _, ledger, principal, resp := setup(t, 5)

		_, err := svc.CancelBooking(ctx, principal, resp.BookingID)
		require.NoError(t, err)

		_, err = svc.CancelBooking(ctx, principal, resp.BookingID)
		assert.True(t, errors.Is(err, apperrors.ErrAlreadyCancelled))
		assert.Equal(t, 5, ledger.available, "second cancel must not credit seats again")
	})

	t.Run("foreign booking looks like not found", func(t *testing.T) {
		svc, _, _, _, resp := setup(t, 5)

		_, err := svc.CancelBooking(ctx, user(), resp.BookingID)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("retried cancel repairs a failed release", func(t *testing.T) {
		svc, _, ledger, principal, resp := setup(t, 5)
		ledger.failReleases = 1

		_, err := svc.CancelBooking(ctx, principal, resp.BookingID)
		require.NoError(t, err)
		assert.Equal(t, 3, ledger.available, "first release failed; seats still held")

		_, err = svc.CancelBooking(ctx, principal, resp.BookingID)
		assert.True(t, errors.Is(err, apperrors.ErrAlreadyCancelled))
		assert.Equal(t, 5, ledger.available, "retry must return the leaked seats")
	})

	t.Run("rejected booking cannot be cancelled", func(t *testing.T) {
		repo := newFakeRepo()
		ledger := newFakeLedger(1, 25.0)
		svc := NewService(repo, ledger, nil)
		principal := user()

		_, err := svc.CreateBooking(ctx, principal, &CreateBookingRequest{
			VehicleID: uuid.NewString(),
			SeatCount: 4,
		})
		require.Error(t, err)

		rejected := repo.byStatus(StatusRejected)
		require.Len(t, rejected, 1)

		_, err = svc.CancelBooking(ctx, principal, rejected[0].ID)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
	})
}

// Concurrent bookings against a small vehicle: total confirmed seats never
// exceed what the ledger had, and each rejection leaves an audit row.
func TestConcurrentBookings(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	ledger := newFakeLedger(10, 10.0)
	svc := NewService(repo, ledger, nil)
	vehicleID := uuid.NewString()

	const attempts = 30
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			principal := user()
			_, _ = svc.CreateBooking(ctx, principal, &CreateBookingRequest{
				VehicleID: vehicleID,
				SeatCount: 2,
			})
		}()
	}
	wg.Wait()

	confirmed := repo.byStatus(StatusConfirmed)
	rejected := repo.byStatus(StatusRejected)

	seatsTaken := 0
	for _, b := range confirmed {
		seatsTaken += b.SeatCount
	}
	assert.Equal(t, 10, seatsTaken, "confirmed seats must equal initial availability")
	assert.Len(t, confirmed, 5)
	assert.Len(t, rejected, attempts-5)
	assert.Equal(t, 0, ledger.available)
}
