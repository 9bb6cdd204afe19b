package bookings

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"trekka/internal/shared/apperrors"
	"trekka/internal/shared/middleware"
	"trekka/pkg/logger"
	"trekka/pkg/metrics"

	"github.com/google/uuid"
)

// SeatLedger is the slice of the fleet service the booking workflow needs.
type SeatLedger interface {
	ReserveSeats(ctx context.Context, vehicleID uuid.UUID, seatCount int) (uuid.UUID, error)
	ReleaseSeats(ctx context.Context, reservationID uuid.UUID) error
	GetVehiclePricing(ctx context.Context, vehicleID uuid.UUID) (float64, error)
}

// Publisher emits booking lifecycle notifications. Delivery is handled by a
// downstream consumer; publishing failures never fail the booking.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, userID uuid.UUID, bookingRef string, seatCount int, totalPrice float64) error
	PublishBookingCancelled(ctx context.Context, userID uuid.UUID, bookingRef string) error
}

type Service interface {
	CreateBooking(ctx context.Context, principal middleware.Principal, req *CreateBookingRequest) (*BookingResponse, error)
	GetBooking(ctx context.Context, principal middleware.Principal, bookingID uuid.UUID) (*BookingResponse, error)
	CancelBooking(ctx context.Context, principal middleware.Principal, bookingID uuid.UUID) (*BookingResponse, error)
	GetUserBookings(ctx context.Context, principal middleware.Principal, limit, offset int) (*BookingListResponse, error)

	// GetBookingRecord exposes the raw booking row to the payment flow,
	// which does its own ownership and state checks.
	GetBookingRecord(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
}

type service struct {
	repo      Repository
	ledger    SeatLedger
	publisher Publisher
}

func NewService(repo Repository, ledger SeatLedger, publisher Publisher) Service {
	return &service{
		repo:      repo,
		ledger:    ledger,
		publisher: publisher,
	}
}

func (s *service) CreateBooking(ctx context.Context, principal middleware.Principal, req *CreateBookingRequest) (*BookingResponse, error) {
	if req.SeatCount <= 0 {
		return nil, fmt.Errorf("seat count must be positive: %w", apperrors.ErrValidation)
	}

	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("invalid vehicle ID: %w", apperrors.ErrValidation)
	}

	pricePerSeat, err := s.ledger.GetVehiclePricing(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	totalPrice := pricePerSeat * float64(req.SeatCount)

	bookingRef, err := s.generateBookingReference()
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking reference: %w", err)
	}

	reservationID, err := s.ledger.ReserveSeats(ctx, vehicleID, req.SeatCount)
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientSeats) {
			// Keep the rejected attempt as an audit row
			rejected := &Booking{
				UserID:       principal.UserID,
				VehicleID:    vehicleID,
				SeatCount:    req.SeatCount,
				TotalPrice:   totalPrice,
				Status:       StatusRejected,
				BookingRef:   bookingRef,
				RejectReason: "insufficient seats",
			}
			if createErr := s.repo.Create(ctx, rejected); createErr != nil {
				logger.GetDefault().ErrorWithContext(ctx, "failed to persist rejected booking", createErr, nil)
			}
			metrics.TrackBooking(StatusRejected)
		}
		return nil, err
	}

	booking := &Booking{
		UserID:        principal.UserID,
		VehicleID:     vehicleID,
		SeatCount:     req.SeatCount,
		TotalPrice:    totalPrice,
		Status:        StatusConfirmed,
		BookingRef:    bookingRef,
		ReservationID: &reservationID,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		// The seats were taken but the booking row never landed; give them back
		if releaseErr := s.ledger.ReleaseSeats(ctx, reservationID); releaseErr != nil {
			logger.GetDefault().ErrorWithContext(ctx, "failed to release reservation after booking create failure", releaseErr, nil)
		}
		return nil, err
	}

	metrics.TrackBooking(StatusConfirmed)
	logger.GetDefault().LogBookingCreated(ctx, booking.ID.String(), booking.VehicleID.String(), principal.UserID.String())

	if s.publisher != nil {
		if err := s.publisher.PublishBookingConfirmed(ctx, principal.UserID, booking.BookingRef, booking.SeatCount, booking.TotalPrice); err != nil {
			logger.GetDefault().ErrorWithContext(ctx, "failed to publish booking confirmation", err, nil)
		}
	}

	return toBookingResponse(booking), nil
}

func (s *service) GetBooking(ctx context.Context, principal middleware.Principal, bookingID uuid.UUID) (*BookingResponse, error) {
	booking, err := s.loadOwnedBooking(ctx, principal, bookingID)
	if err != nil {
		return nil, err
	}
	return toBookingResponse(booking), nil
}

func (s *service) CancelBooking(ctx context.Context, principal middleware.Principal, bookingID uuid.UUID) (*BookingResponse, error) {
	booking, err := s.loadOwnedBooking(ctx, principal, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status == StatusCancelled {
		// A prior cancel may have marked the row but failed the release.
		// The handle is idempotent, so re-attempting here repairs the leak
		// without ever crediting seats twice.
		if booking.ReservationID != nil {
			if err := s.ledger.ReleaseSeats(ctx, *booking.ReservationID); err != nil {
				logger.GetDefault().ErrorWithContext(ctx, "failed to release seats for cancelled booking", err, nil)
			}
		}
		return nil, apperrors.ErrAlreadyCancelled
	}
	if !CanCancel(booking.Status) {
		return nil, fmt.Errorf("booking is %s: %w", booking.Status, apperrors.ErrInvalidStateTransition)
	}

	cancelled, err := s.repo.MarkCancelled(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		// Lost the race to another cancel
		return nil, apperrors.ErrAlreadyCancelled
	}

	// Seats go back exactly once: the release is keyed to the reservation
	// handle, which is idempotent on its own.
	if booking.ReservationID != nil {
		if err := s.ledger.ReleaseSeats(ctx, *booking.ReservationID); err != nil {
			logger.GetDefault().ErrorWithContext(ctx, "failed to release seats for cancelled booking", err, nil)
		}
	}

	logger.GetDefault().LogBookingCancelled(ctx, booking.ID.String(), booking.VehicleID.String(), principal.UserID.String())

	if s.publisher != nil {
		if err := s.publisher.PublishBookingCancelled(ctx, principal.UserID, booking.BookingRef); err != nil {
			logger.GetDefault().ErrorWithContext(ctx, "failed to publish booking cancellation", err, nil)
		}
	}

	updated, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return toBookingResponse(updated), nil
}

func (s *service) GetUserBookings(ctx context.Context, principal middleware.Principal, limit, offset int) (*BookingListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	bookings, total, err := s.repo.GetByUser(ctx, principal.UserID, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		responses = append(responses, *toBookingResponse(&bookings[i]))
	}

	return &BookingListResponse{
		Bookings: responses,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

func (s *service) GetBookingRecord(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return s.repo.GetByID(ctx, bookingID)
}

// loadOwnedBooking hides foreign bookings behind NotFound rather than
// admitting they exist.
func (s *service) loadOwnedBooking(ctx context.Context, principal middleware.Principal, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != principal.UserID && !principal.IsAdmin() {
		return nil, apperrors.ErrNotFound
	}
	return booking, nil
}

// generateBookingReference generates a unique booking reference
func (s *service) generateBookingReference() (string, error) {
	timestamp := time.Now().Format("20060102")

	// Generate 6 random uppercase letters
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomPart := make([]byte, 6)

	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		randomPart[i] = letters[num.Int64()]
	}

	return fmt.Sprintf("TRK-%s-%s", timestamp, string(randomPart)), nil
}

func toBookingResponse(b *Booking) *BookingResponse {
	return &BookingResponse{
		BookingID:   b.ID,
		BookingRef:  b.BookingRef,
		VehicleID:   b.VehicleID,
		Status:      b.Status,
		SeatCount:   b.SeatCount,
		TotalPrice:  b.TotalPrice,
		CreatedAt:   b.CreatedAt,
		CancelledAt: b.CancelledAt,
	}
}
