package fleet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Vehicle statuses
const (
	VehicleStatusActive      = "ACTIVE"
	VehicleStatusInactive    = "INACTIVE"
	VehicleStatusMaintenance = "MAINTENANCE"
)

// Seat types
const (
	SeatTypeRegular = "REGULAR"
	SeatTypeVIP     = "VIP"
	SeatTypeSleeper = "SLEEPER"
)

// Reservation statuses
const (
	ReservationStatusActive   = "ACTIVE"
	ReservationStatusReleased = "RELEASED"
)

// Vehicle defines a company-owned vehicle with its seat map.
// Available seat count is always derived from the seat rows, never stored.
type Vehicle struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CompanyID          uuid.UUID `gorm:"type:uuid;index;not null" json:"company_id"`
	RegistrationNumber string    `gorm:"unique;not null" json:"registration_number"`
	Make               string    `gorm:"type:varchar(50)" json:"make"`
	Model              string    `gorm:"type:varchar(50)" json:"model"`
	Year               int       `json:"year"`
	Capacity           int       `gorm:"not null" json:"capacity"`
	VehicleType        string    `gorm:"type:varchar(20);check:vehicle_type IN ('STANDARD', 'LUXURY', 'MINI');default:'STANDARD'" json:"vehicle_type"`
	Status             string    `gorm:"type:varchar(20);check:status IN ('ACTIVE', 'INACTIVE', 'MAINTENANCE');default:'ACTIVE'" json:"status"`
	PricePerSeat       float64   `gorm:"not null" json:"price_per_seat"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Relationships
	Seats []Seat `json:"seats,omitempty" gorm:"foreignKey:VehicleID;constraint:OnDelete:CASCADE;"`
}

// Seat belongs to exactly one vehicle. Availability is mutated only through
// the reservation operations, never directly by API consumers.
type Seat struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VehicleID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"vehicle_id"`
	SeatNumber  string     `gorm:"type:varchar(10);not null" json:"seat_number"`
	SeatType    string     `gorm:"type:varchar(20);check:seat_type IN ('REGULAR', 'VIP', 'SLEEPER');default:'REGULAR'" json:"seat_type"`
	IsAvailable bool       `gorm:"default:true" json:"is_available"`
	// ReservationID links a taken seat back to the reservation holding it,
	// which is what makes release idempotent.
	ReservationID *uuid.UUID `gorm:"type:uuid;index" json:"reservation_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SeatReservation is the handle returned by a successful reservation.
// Releasing the same handle twice is a no-op, never a double credit.
type SeatReservation struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VehicleID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"vehicle_id"`
	SeatCount  int        `gorm:"not null" json:"seat_count"`
	Status     string     `gorm:"type:varchar(20);check:status IN ('ACTIVE', 'RELEASED');default:'ACTIVE'" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

// TableName sets the table name for Vehicle
func (Vehicle) TableName() string {
	return "vehicles"
}

// TableName sets the table name for Seat
func (Seat) TableName() string {
	return "seats"
}

// TableName sets the table name for SeatReservation
func (SeatReservation) TableName() string {
	return "seat_reservations"
}

// IsActive reports whether the vehicle accepts bookings.
func (v *Vehicle) IsActive() bool {
	return v.Status == VehicleStatusActive
}

// AvailableSeats derives availability from the loaded seat rows.
func (v *Vehicle) AvailableSeats() int {
	count := 0
	for _, seat := range v.Seats {
		if seat.IsAvailable {
			count++
		}
	}
	return count
}

// GenerateSeats builds the seat map once at registration: four seats per row,
// two on each side of the aisle, tagged A through D.
func (v *Vehicle) GenerateSeats() []Seat {
	seatTags := []string{"A", "B", "C", "D"}
	seats := make([]Seat, 0, v.Capacity)

	rows := (v.Capacity + 3) / 4
	for row := 0; row < rows; row++ {
		seatsInRow := 4
		if row == rows-1 {
			seatsInRow = v.Capacity - (rows-1)*4
		}
		for j := 0; j < seatsInRow; j++ {
			seats = append(seats, Seat{
				SeatNumber:  fmt.Sprintf("%d%s", row+1, seatTags[j]),
				SeatType:    SeatTypeRegular,
				IsAvailable: true,
			})
		}
	}

	v.Seats = seats
	return v.Seats
}
