package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tripdesk/internal/application"
	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/pkg/helpers"
	"github.com/oksasatya/tripdesk/pkg/response"
	"github.com/oksasatya/tripdesk/pkg/validation"
)

// respondError maps a service error onto the response envelope.
// Anything unclassified is logged and reported as a bare 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var ve *entity.ValidationError
	switch {
	case errors.As(err, &ve):
		response.Error[any](c, http.StatusBadRequest, "validation failed", map[string]string{ve.Field: ve.Reason})
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, application.ErrUnauthenticated),
		errors.Is(err, application.ErrTokenExpired),
		errors.Is(err, application.ErrTokenInvalid):
		response.Error[any](c, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, application.ErrForbidden):
		response.Error[any](c, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, entity.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "not found", nil)
	case errors.Is(err, entity.ErrDuplicateKey):
		response.Error[any](c, http.StatusConflict, "duplicate key", nil)
	case errors.Is(err, entity.ErrUpstreamUnavailable):
		helpers.LogError(logger, "upstream failed", err, helpers.RequestFields(c))
		response.Error[any](c, http.StatusBadGateway, "upstream unavailable", nil)
	case errors.Is(err, application.ErrStorageDisabled):
		response.Error[any](c, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		helpers.LogError(logger, "request failed", err, helpers.RequestFields(c))
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}

func badPayload(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}
