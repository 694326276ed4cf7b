package handler

import (
	"errors"
	"net/http"

	"supplychain/internal/apperr"
	"supplychain/internal/middleware"
	"supplychain/internal/service"
	"supplychain/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidState), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotSupported):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if apperr.Retryable(err) {
		c.JSON(status, response.Retry(status, err.Error()))
		return
	}
	c.JSON(status, response.Error(status, err.Error()))
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// actorOrAbort fetches the authenticated caller, writing 401 when the route
// was mounted without RequireAuth.
func actorOrAbort(c *gin.Context) (service.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
	}
	return actor, ok
}
