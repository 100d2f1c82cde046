package api

import (
	"errors"
	"net/http"

	"holidayrent/internal/domain"
	"holidayrent/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorStatus maps an error kind to its HTTP status and machine code.
func errorStatus(err error) (int, string) {
	switch domain.Kind(err) {
	case domain.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case domain.ErrForbidden:
		return http.StatusForbidden, "forbidden"
	case domain.ErrUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case domain.ErrConflict:
		return http.StatusConflict, "conflict"
	case domain.ErrCapacityExceeded:
		return http.StatusUnprocessableEntity, "capacity_exceeded"
	case domain.ErrInvalidRange:
		return http.StatusBadRequest, "invalid_range"
	case domain.ErrInvalidState:
		return http.StatusBadRequest, "invalid_state"
	case domain.ErrValidation:
		return http.StatusUnprocessableEntity, "validation"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// respondError writes err as JSON. Unexpected errors are logged and hidden.
func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	msg := domain.Message(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "internal server error"
		if errors.Is(err, service.ErrCreateUser) {
			msg = service.ErrCreateUser.Error()
		}
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, errorBody{Error: msg, Code: code})
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, domain.Errorf(domain.ErrValidation, "%s", msg))
}
