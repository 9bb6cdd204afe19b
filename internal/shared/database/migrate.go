package database

import (
	"trekka/internal/bookings"
	"trekka/internal/fleet"
	"trekka/internal/payments"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&fleet.Vehicle{},
		&fleet.Seat{},
		&fleet.SeatReservation{},
		&bookings.Booking{},
		&payments.Payment{},
	)
}
