package bookings

// Booking statuses
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// CanCancel reports whether a booking in the given status may be cancelled.
// Only confirmed bookings hold seats, so only they can be cancelled.
func CanCancel(status string) bool {
	return status == StatusConfirmed
}
