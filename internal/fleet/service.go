package fleet

import (
	"context"
	"fmt"
	"time"

	"trekka/internal/shared/apperrors"
	"trekka/internal/shared/middleware"
	"trekka/pkg/metrics"

	"github.com/google/uuid"
)

type Service interface {
	RegisterVehicle(ctx context.Context, principal middleware.Principal, req *RegisterVehicleRequest) (*VehicleResponse, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*VehicleDetailResponse, error)
	GetCompanyVehicles(ctx context.Context, principal middleware.Principal) ([]VehicleResponse, error)
	GetAvailability(ctx context.Context, vehicleID uuid.UUID) (*AvailabilityResponse, error)
	UpdateVehicleStatus(ctx context.Context, principal middleware.Principal, vehicleID uuid.UUID, req *UpdateVehicleStatusRequest) error

	// Ledger operations, consumed by the booking workflow
	ReserveSeats(ctx context.Context, vehicleID uuid.UUID, seatCount int) (uuid.UUID, error)
	ReleaseSeats(ctx context.Context, reservationID uuid.UUID) error
	GetVehiclePricing(ctx context.Context, vehicleID uuid.UUID) (float64, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) RegisterVehicle(ctx context.Context, principal middleware.Principal, req *RegisterVehicleRequest) (*VehicleResponse, error) {
	vehicleType := req.VehicleType
	if vehicleType == "" {
		vehicleType = "STANDARD"
	}

	vehicle := &Vehicle{
		CompanyID:          principal.UserID,
		RegistrationNumber: req.RegistrationNumber,
		Make:               req.Make,
		Model:              req.Model,
		Year:               req.Year,
		Capacity:           req.Capacity,
		VehicleType:        vehicleType,
		Status:             VehicleStatusActive,
		PricePerSeat:       req.PricePerSeat,
	}
	vehicle.GenerateSeats()

	if err := s.repo.Create(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to register vehicle: %w", err)
	}

	resp := toVehicleResponse(vehicle)
	resp.AvailableSeats = vehicle.Capacity
	return &resp, nil
}

func (s *service) GetVehicle(ctx context.Context, id uuid.UUID) (*VehicleDetailResponse, error) {
	vehicle, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &VehicleDetailResponse{
		VehicleResponse: toVehicleResponse(vehicle),
		Seats:           make([]SeatInfo, 0, len(vehicle.Seats)),
	}
	resp.AvailableSeats = vehicle.AvailableSeats()
	for _, seat := range vehicle.Seats {
		resp.Seats = append(resp.Seats, SeatInfo{
			ID:          seat.ID,
			SeatNumber:  seat.SeatNumber,
			SeatType:    seat.SeatType,
			IsAvailable: seat.IsAvailable,
		})
	}
	return resp, nil
}

func (s *service) GetCompanyVehicles(ctx context.Context, principal middleware.Principal) ([]VehicleResponse, error) {
	vehicles, err := s.repo.GetByCompany(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	responses := make([]VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		resp := toVehicleResponse(&vehicles[i])
		available, err := s.repo.CountAvailableSeats(ctx, vehicles[i].ID)
		if err != nil {
			return nil, err
		}
		resp.AvailableSeats = int(available)
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *service) GetAvailability(ctx context.Context, vehicleID uuid.UUID) (*AvailabilityResponse, error) {
	vehicle, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	available, err := s.repo.CountAvailableSeats(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	return &AvailabilityResponse{
		VehicleID:      vehicleID,
		AvailableSeats: int(available),
		Capacity:       vehicle.Capacity,
	}, nil
}

func (s *service) UpdateVehicleStatus(ctx context.Context, principal middleware.Principal, vehicleID uuid.UUID, req *UpdateVehicleStatusRequest) error {
	vehicle, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return err
	}

	// Companies may only manage their own fleet; admins can touch anything
	if vehicle.CompanyID != principal.UserID && !principal.IsAdmin() {
		return fmt.Errorf("vehicle belongs to another company: %w", apperrors.ErrValidation)
	}

	return s.repo.UpdateStatus(ctx, vehicleID, req.Status)
}

func (s *service) ReserveSeats(ctx context.Context, vehicleID uuid.UUID, seatCount int) (uuid.UUID, error) {
	if seatCount <= 0 {
		return uuid.Nil, fmt.Errorf("seat count must be positive: %w", apperrors.ErrValidation)
	}

	start := time.Now()
	reservation, err := s.repo.ReserveSeats(ctx, vehicleID, seatCount)
	metrics.TrackSeatReservation(time.Since(start))
	if err != nil {
		return uuid.Nil, err
	}
	return reservation.ID, nil
}

func (s *service) ReleaseSeats(ctx context.Context, reservationID uuid.UUID) error {
	return s.repo.ReleaseReservation(ctx, reservationID)
}

func (s *service) GetVehiclePricing(ctx context.Context, vehicleID uuid.UUID) (float64, error) {
	vehicle, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return 0, err
	}
	if !vehicle.IsActive() {
		return 0, fmt.Errorf("vehicle is not active: %w", apperrors.ErrValidation)
	}
	return vehicle.PricePerSeat, nil
}

func toVehicleResponse(v *Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:                 v.ID,
		CompanyID:          v.CompanyID,
		RegistrationNumber: v.RegistrationNumber,
		Make:               v.Make,
		Model:              v.Model,
		Year:               v.Year,
		Capacity:           v.Capacity,
		VehicleType:        v.VehicleType,
		Status:             v.Status,
		PricePerSeat:       v.PricePerSeat,
		CreatedAt:          v.CreatedAt,
	}
}
