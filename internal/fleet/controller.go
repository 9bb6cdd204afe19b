package fleet

import (
	"net/http"

	"trekka/internal/shared/middleware"
	"trekka/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

func (c *Controller) RegisterVehicle(ctx *gin.Context) {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req RegisterVehicleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	resp, err := c.service.RegisterVehicle(ctx.Request.Context(), principal, &req)
	if err != nil {
		response.RespondError(ctx, err, "Failed to register vehicle")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Vehicle registered successfully", resp, nil)
}

func (c *Controller) GetVehicle(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid vehicle ID", nil, nil)
		return
	}

	resp, err := c.service.GetVehicle(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err, "Failed to get vehicle")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Vehicle retrieved successfully", resp, nil)
}

func (c *Controller) GetCompanyVehicles(ctx *gin.Context) {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	resp, err := c.service.GetCompanyVehicles(ctx.Request.Context(), principal)
	if err != nil {
		response.RespondError(ctx, err, "Failed to list vehicles")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Vehicles retrieved successfully", resp, nil)
}

func (c *Controller) GetAvailability(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid vehicle ID", nil, nil)
		return
	}

	resp, err := c.service.GetAvailability(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err, "Failed to get availability")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Availability retrieved successfully", resp, nil)
}

func (c *Controller) UpdateVehicleStatus(ctx *gin.Context) {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid vehicle ID", nil, nil)
		return
	}

	var req UpdateVehicleStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	if err := c.service.UpdateVehicleStatus(ctx.Request.Context(), principal, id, &req); err != nil {
		response.RespondError(ctx, err, "Failed to update vehicle status")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Vehicle status updated successfully", nil, nil)
}
