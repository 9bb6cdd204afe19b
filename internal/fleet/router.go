package fleet

import (
	"trekka/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupFleetRoutes configures all vehicle and seat inventory routes
func SetupFleetRoutes(rg *gin.RouterGroup, controller *Controller) {
	vehicles := rg.Group("/vehicles")
	{
		// Public browsing
		vehicles.GET("/:id", controller.GetVehicle)                   // GET /api/v1/vehicles/:id
		vehicles.GET("/:id/availability", controller.GetAvailability) // GET /api/v1/vehicles/:id/availability

		// Company fleet management
		managed := vehicles.Group("")
		managed.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleCompany, middleware.RoleAdmin))
		{
			managed.POST("", controller.RegisterVehicle)          // POST /api/v1/vehicles
			managed.GET("", controller.GetCompanyVehicles)        // GET /api/v1/vehicles
			managed.PATCH("/:id/status", controller.UpdateVehicleStatus) // PATCH /api/v1/vehicles/:id/status
		}
	}
}
