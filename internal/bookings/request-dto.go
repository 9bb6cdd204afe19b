package bookings

type CreateBookingRequest struct {
	VehicleID string `json:"vehicle_id" binding:"required,uuid" validate:"required,uuid"`
	SeatCount int    `json:"seat_count" binding:"required" validate:"required,seatcount"`
}
