package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Booking defines the main booking structure. A confirmed booking always
// carries the seat reservation handle granted by the inventory ledger;
// rejected bookings are kept as audit rows and hold no reservation.
type Booking struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	VehicleID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"vehicle_id"`
	SeatCount     int        `gorm:"not null" json:"seat_count"`
	TotalPrice    float64    `gorm:"not null" json:"total_price"`
	Status        string     `gorm:"type:varchar(20);check:status IN ('PENDING', 'CONFIRMED', 'REJECTED', 'CANCELLED');default:'PENDING'" json:"status"`
	BookingRef    string     `gorm:"unique;not null" json:"booking_ref"`
	ReservationID *uuid.UUID `gorm:"type:uuid" json:"reservation_id,omitempty"`
	RejectReason  string     `gorm:"type:varchar(255)" json:"reject_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}
