package response

import (
	"github.com/gin-gonic/gin"

	"trekka/internal/shared/apperrors"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError maps a core error onto the standard envelope using the
// apperrors taxonomy.
func RespondError(c *gin.Context, err error, message string) {
	RespondJSON(c, "error", apperrors.HTTPStatus(err), message, nil, err.Error())
}
