// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/modules/matching"
	"carpool/internal/modules/preference"
	"carpool/internal/modules/profile"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps module sentinels to status codes. Unknown errors are
// attached to the context for the logging middleware and hidden from clients.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case matching.IsPrecondition(err),
		errors.Is(err, preference.ErrBadRequest),
		errors.Is(err, profile.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, profile.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, matching.ErrBusy):
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
