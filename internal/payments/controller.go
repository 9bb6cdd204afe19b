package payments

import (
	"net/http"
	"strconv"

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

func (c *Controller) InitializePayment(ctx *gin.Context) {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req InitializePaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	resp, err := c.service.Initialize(ctx.Request.Context(), principal, &req)
	if err != nil {
		response.RespondError(ctx, err, "Failed to initialize payment")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Payment initialized successfully", resp, nil)
}

func (c *Controller) VerifyPayment(ctx *gin.Context) {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	reference := ctx.Param("reference")
	if reference == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Missing transaction reference", nil, nil)
		return
	}

	resp, err := c.service.VerifyPayment(ctx.Request.Context(), principal, reference)
	if err != nil {
		response.RespondError(ctx, err, "Failed to verify payment")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payment verified successfully", resp, nil)
}

func (c *Controller) RefundPayment(ctx *gin.Context) {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid payment ID", nil, nil)
		return
	}

	var req RefundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	resp, err := c.service.Refund(ctx.Request.Context(), principal, id, &req)
	if err != nil {
		response.RespondError(ctx, err, "Failed to refund payment")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payment refunded successfully", resp, nil)
}

func (c *Controller) GetUserPayments(ctx *gin.Context) {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	resp, err := c.service.GetUserPayments(ctx.Request.Context(), principal, limit, offset)
	if err != nil {
		response.RespondError(ctx, err, "Failed to list payments")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payments retrieved successfully", resp, nil)
}
