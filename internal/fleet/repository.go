package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trekka/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, vehicle *Vehicle) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	GetByCompany(ctx context.Context, companyID uuid.UUID) ([]Vehicle, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	CountAvailableSeats(ctx context.Context, vehicleID uuid.UUID) (int64, error)
	ReserveSeats(ctx context.Context, vehicleID uuid.UUID, seatCount int) (*SeatReservation, error)
	ReleaseReservation(ctx context.Context, reservationID uuid.UUID) error
	GetReservation(ctx context.Context, reservationID uuid.UUID) (*SeatReservation, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, vehicle *Vehicle) error {
	if err := r.db.WithContext(ctx).Create(vehicle).Error; err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	var vehicle Vehicle
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Where("id = ?", id).
		First(&vehicle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return &vehicle, nil
}

func (r *repository) GetByCompany(ctx context.Context, companyID uuid.UUID) ([]Vehicle, error) {
	var vehicles []Vehicle
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&vehicles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list company vehicles: %w", err)
	}
	return vehicles, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result := r.db.WithContext(ctx).
		Model(&Vehicle{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update vehicle status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CountAvailableSeats derives the current availability. There is no stored
// counter to drift out of sync.
func (r *repository) CountAvailableSeats(ctx context.Context, vehicleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Seat{}).
		Where("vehicle_id = ? AND is_available = ?", vehicleID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count available seats: %w", err)
	}
	return count, nil
}

// ReserveSeats atomically takes seatCount seats from the vehicle. The vehicle
// row is locked for the duration of the transaction so concurrent reservations
// serialize; the availability check and the seat flips commit together or not
// at all.
func (r *repository) ReserveSeats(ctx context.Context, vehicleID uuid.UUID, seatCount int) (*SeatReservation, error) {
	var reservation *SeatReservation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the vehicle row so concurrent reservations queue up
		var vehicle struct {
			ID     uuid.UUID `gorm:"column:id"`
			Status string    `gorm:"column:status"`
		}
		err := tx.Table("vehicles").
			Select("id, status").
			Where("id = ?", vehicleID).
			Set("gorm:query_option", "FOR UPDATE").
			First(&vehicle).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("failed to lock vehicle: %w", err)
		}

		if vehicle.Status != VehicleStatusActive {
			return fmt.Errorf("vehicle is not active (status: %s): %w", vehicle.Status, apperrors.ErrValidation)
		}

		// 2. Pick free seats under the lock
		var seats []Seat
		err = tx.Where("vehicle_id = ? AND is_available = ?", vehicleID, true).
			Order("seat_number ASC").
			Limit(seatCount).
			Find(&seats).Error
		if err != nil {
			return fmt.Errorf("failed to select seats: %w", err)
		}

		if len(seats) < seatCount {
			return fmt.Errorf("requested %d seats, only %d available: %w",
				seatCount, len(seats), apperrors.ErrInsufficientSeats)
		}

		// 3. Record the reservation handle
		reservation = &SeatReservation{
			VehicleID: vehicleID,
			SeatCount: seatCount,
			Status:    ReservationStatusActive,
		}
		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}

		// 4. Flip the seats, tagged with the reservation that holds them
		seatIDs := make([]uuid.UUID, len(seats))
		for i, seat := range seats {
			seatIDs[i] = seat.ID
		}
		result := tx.Model(&Seat{}).
			Where("id IN ? AND is_available = ?", seatIDs, true).
			Updates(map[string]interface{}{
				"is_available":   false,
				"reservation_id": reservation.ID,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to reserve seats: %w", result.Error)
		}
		if result.RowsAffected != int64(seatCount) {
			// Should be unreachable while the vehicle lock is held
			return fmt.Errorf("expected to reserve %d seats, got %d: %w",
				seatCount, result.RowsAffected, apperrors.ErrInsufficientSeats)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// ReleaseReservation returns the reservation's seats to the pool. Releasing an
// already-released reservation is a no-op: a seat is never credited back twice
// for the same handle.
func (r *repository) ReleaseReservation(ctx context.Context, reservationID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reservation SeatReservation
		err := tx.Where("id = ?", reservationID).
			Set("gorm:query_option", "FOR UPDATE").
			First(&reservation).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("failed to lock reservation: %w", err)
		}

		if reservation.Status == ReservationStatusReleased {
			return nil
		}

		err = tx.Model(&Seat{}).
			Where("reservation_id = ?", reservationID).
			Updates(map[string]interface{}{
				"is_available":   true,
				"reservation_id": nil,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to release seats: %w", err)
		}

		now := time.Now().UTC()
		err = tx.Model(&SeatReservation{}).
			Where("id = ?", reservationID).
			Updates(map[string]interface{}{
				"status":      ReservationStatusReleased,
				"released_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to mark reservation released: %w", err)
		}

		return nil
	})
}

func (r *repository) GetReservation(ctx context.Context, reservationID uuid.UUID) (*SeatReservation, error) {
	var reservation SeatReservation
	err := r.db.WithContext(ctx).
		Where("id = ?", reservationID).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &reservation, nil
}
