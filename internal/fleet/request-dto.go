package fleet

type RegisterVehicleRequest struct {
	RegistrationNumber string  `json:"registration_number" binding:"required" validate:"required,min=2,max=20"`
	Make               string  `json:"make" binding:"required" validate:"required"`
	Model              string  `json:"model" binding:"required" validate:"required"`
	Year               int     `json:"year" validate:"omitempty,min=1980,max=2100"`
	Capacity           int     `json:"capacity" binding:"required" validate:"required,min=1,max=100"`
	VehicleType        string  `json:"vehicle_type" validate:"omitempty,oneof=STANDARD LUXURY MINI"`
	PricePerSeat       float64 `json:"price_per_seat" binding:"required" validate:"required,gt=0"`
}

type UpdateVehicleStatusRequest struct {
	Status string `json:"status" binding:"required" validate:"required,oneof=ACTIVE INACTIVE MAINTENANCE"`
}
