package httpt

import (
	"errors"
	"net/http"

	"certalert/internal/entity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) handleServiceError(c *gin.Context, op string, err error) {
	log := h.log.With(zap.String("op", op), zap.String("request_id", requestID(c)), zap.Error(err))

	switch {
	case errors.Is(err, entity.ErrDataNotFound):
		log.Warn("resource not found")
		h.respondError(c, http.StatusNotFound, "not_found", "Resource not found", err)

	case errors.Is(err, entity.ErrInvalidData):
		log.Warn("invalid data")
		h.respondError(c, http.StatusBadRequest, "invalid_data", "Invalid input data", err)

	case errors.Is(err, entity.ErrRunInProgress):
		log.Warn("run already in progress")
		h.respondError(c, http.StatusConflict, "run_in_progress", "A daily run is already in progress", err)

	case errors.Is(err, entity.ErrConflictingData):
		log.Warn("conflicting data")
		h.respondError(c, http.StatusConflict, "conflict", "Data conflict occurred", err)

	case errors.Is(err, entity.ErrStoreUnavailable):
		log.Error("store unavailable")
		h.respondError(c, http.StatusServiceUnavailable, "store_unavailable", "Store unavailable", err)

	default:
		log.Error("internal server error")
		h.respondError(c, http.StatusInternalServerError, "internal_error", "Internal server error occurred", err)
	}
}

func (h *Handler) handleInvalidUUID(c *gin.Context, op, raw string) {
	h.log.Warn("invalid uuid", zap.String("op", op), zap.String("value", raw))
	h.respondError(c, http.StatusBadRequest, "invalid_id", "Invalid identifier format", nil)
}

func (h *Handler) respondError(c *gin.Context, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil && status < http.StatusInternalServerError {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}
