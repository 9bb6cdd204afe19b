package bookings

import (
	"time"

	"github.com/google/uuid"
)

type BookingResponse struct {
	BookingID   uuid.UUID  `json:"booking_id"`
	BookingRef  string     `json:"booking_ref"`
	VehicleID   uuid.UUID  `json:"vehicle_id"`
	Status      string     `json:"status"`
	SeatCount   int        `json:"seat_count"`
	TotalPrice  float64    `json:"total_price"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}
