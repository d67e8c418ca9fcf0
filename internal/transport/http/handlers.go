package httpt

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"certalert/internal/entity"
	"certalert/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	_healthTimeout = 2 * time.Second
	_maxListLimit  = 1000
)

// Engine is the service surface the operator API drives.
type Engine interface {
	Run(ctx context.Context) (entity.RunResult, error)
	SendManualReminder(ctx context.Context, certificationID uuid.UUID, tier entity.Tier) (service.ManualResult, error)
	ListReminders(ctx context.Context, status entity.ReminderStatus, limit uint64) ([]entity.Reminder, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc     Engine
	db      Pinger
	version string
	log     *zap.Logger
	router  *gin.Engine
}

func NewHandler(svc Engine, db Pinger, version string, log *zap.Logger) *Handler {
	h := &Handler{
		svc:     svc,
		db:      db,
		version: version,
		log:     log,
	}

	router := gin.New()
	router.Use(h.requestIDMiddleware())
	router.Use(h.loggingMiddleware())
	router.Use(gin.Recovery())
	h.router = router

	h.setupRoutes()

	return h
}

func (h *Handler) Engine() *gin.Engine {
	return h.router
}

// Health godoc
// @Summary Liveness check
// @Description Reports service health including store connectivity
// @Tags System
// @Produce json
// @Success 200 {object} httpt.HealthResponse
// @Failure 503 {object} httpt.ErrorResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	const op = "transport.http.Health"

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), _healthTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			h.log.Error("health check failed", zap.String("op", op), zap.Error(err))
			h.respondError(c, http.StatusServiceUnavailable, "store_unavailable", "Store unavailable", nil)
			return
		}
	}

	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// TriggerRun godoc
// @Summary Execute the daily run now
// @Description Generates reminders, dispatches due ones and sweeps expired certifications
// @Tags Runs
// @Produce json
// @Success 200 {object} httpt.RunResponse
// @Failure 409 {object} httpt.ErrorResponse "Another run is in progress"
// @Failure 503 {object} httpt.ErrorResponse "Store unavailable, run aborted"
// @Router /api/v1/runs [post]
func (h *Handler) TriggerRun(c *gin.Context) {
	const op = "transport.http.TriggerRun"

	res, err := h.svc.Run(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	h.log.Info("run triggered via api",
		zap.String("op", op),
		zap.String("request_id", requestID(c)),
		zap.Int("emails_sent", res.EmailsSent),
		zap.Int("emails_failed", res.EmailsFailed),
	)

	c.JSON(http.StatusOK, toRunResponse(res))
}

// SendManualReminder godoc
// @Summary Send a reminder now
// @Description Dispatches a one-off reminder for a certification at the given tier, bypassing idempotency
// @Tags Reminders
// @Accept json
// @Produce json
// @Param id path string true "Certification id"
// @Param request body httpt.ManualReminderRequest true "Tier to send"
// @Success 200 {object} httpt.ManualReminderResponse
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 404 {object} httpt.ErrorResponse
// @Router /api/v1/certifications/{id}/reminders [post]
func (h *Handler) SendManualReminder(c *gin.Context) {
	const op = "transport.http.SendManualReminder"

	raw := c.Param("id")
	certID, err := uuid.Parse(raw)
	if err != nil {
		h.handleInvalidUUID(c, op, raw)
		return
	}

	var req ManualReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_body", "Invalid request body", err)
		return
	}

	tier, err := entity.ParseTier(req.Tier)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	res, err := h.svc.SendManualReminder(c.Request.Context(), certID, tier)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	h.log.Info("manual reminder processed",
		zap.String("op", op),
		zap.String("request_id", requestID(c)),
		zap.String("certification_id", certID.String()),
		zap.String("tier", tier.String()),
		zap.Bool("success", res.Success),
	)

	c.JSON(http.StatusOK, ManualReminderResponse{Success: res.Success, Error: res.Error, Kind: res.Kind})
}

// ListReminders godoc
// @Summary List reminders by status
// @Description Failed reminders are not retried automatically; use this listing with the manual trigger to resend
// @Tags Reminders
// @Produce json
// @Param status query string false "pending, sending, sent or failed" default(failed)
// @Param limit query int false "Maximum items" default(50)
// @Success 200 {object} httpt.ReminderListResponse
// @Failure 400 {object} httpt.ErrorResponse
// @Router /api/v1/reminders [get]
func (h *Handler) ListReminders(c *gin.Context) {
	const op = "transport.http.ListReminders"

	status := entity.ReminderStatus(c.DefaultQuery("status", string(entity.ReminderFailed)))
	if !status.IsValid() {
		h.respondError(c, http.StatusBadRequest, "invalid_status", "Invalid reminder status", nil)
		return
	}

	var limit uint64
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 || n > _maxListLimit {
			h.respondError(c, http.StatusBadRequest, "invalid_limit", "Limit must be between 1 and 1000", nil)
			return
		}
		limit = n
	}

	rems, err := h.svc.ListReminders(c.Request.Context(), status, limit)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	items := make([]ReminderResponse, 0, len(rems))
	for _, r := range rems {
		items = append(items, toReminderResponse(r))
	}

	c.JSON(http.StatusOK, ReminderListResponse{Items: items, Count: len(items)})
}
