package fleet

import (
	"time"

	"github.com/google/uuid"
)

type VehicleResponse struct {
	ID                 uuid.UUID `json:"id"`
	CompanyID          uuid.UUID `json:"company_id"`
	RegistrationNumber string    `json:"registration_number"`
	Make               string    `json:"make"`
	Model              string    `json:"model"`
	Year               int       `json:"year"`
	Capacity           int       `json:"capacity"`
	VehicleType        string    `json:"vehicle_type"`
	Status             string    `json:"status"`
	PricePerSeat       float64   `json:"price_per_seat"`
	AvailableSeats     int       `json:"available_seats"`
	CreatedAt          time.Time `json:"created_at"`
}

type SeatInfo struct {
	ID          uuid.UUID `json:"id"`
	SeatNumber  string    `json:"seat_number"`
	SeatType    string    `json:"seat_type"`
	IsAvailable bool      `json:"is_available"`
}

type VehicleDetailResponse struct {
	VehicleResponse
	Seats []SeatInfo `json:"seats"`
}

type AvailabilityResponse struct {
	VehicleID      uuid.UUID `json:"vehicle_id"`
	AvailableSeats int       `json:"available_seats"`
	Capacity       int       `json:"capacity"`
}
