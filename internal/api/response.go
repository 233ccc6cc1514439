package api

import (
	"errors"
	"net/http"

	"storefront-service/internal/models"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondErr maps a domain error to a status code. Internal error text
// is only exposed outside production.
func (h *Handler) respondErr(c *gin.Context, message string, err error) {
	status := statusForError(err)

	detail := err.Error()
	if status == http.StatusInternalServerError && h.env == "production" {
		detail = ""
	}

	c.JSON(status, Response{
		Success: false,
		Message: message,
		Error:   detail,
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrCategoryNotFound),
		errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidOrderStatus),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrOrderAlreadyCancelled):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrDeleteInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
