package transcription

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mindwell/mindwell/internal/platform/blobstore"
)

// defaultBudget bounds one synchronous transcription request end to end
// (blob download, probe, vendor call). The route is excluded from the
// global request timeout, so this is the only ceiling.
const defaultBudget = 5 * time.Minute

type Handler struct {
	svc    *Service
	budget time.Duration
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, budget: defaultBudget, logger: logger}
}

// SetBudget overrides the per-request transcription deadline.
func (h *Handler) SetBudget(d time.Duration) {
	if d > 0 {
		h.budget = d
	}
}

func (h *Handler) RegisterRoutes(provider *echo.Group) {
	provider.POST("/transcribe-intake-audio", h.Transcribe)
	provider.GET("/intake-transcripts/:intakeID", h.GetTranscript)
}

func (h *Handler) Transcribe(c echo.Context) error {
	var req TranscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.budget)
	defer cancel()

	result, err := h.svc.Transcribe(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, blobstore.ErrBlobNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "audio blob not found")
		case errors.Is(err, ErrVendor):
			h.logger.Error().Err(err).Str("intake_id", req.IntakeID.String()).
				Msg("transcription vendor failure")
			return echo.NewHTTPError(http.StatusBadGateway, "transcription failed")
		}
		h.logger.Error().Err(err).Str("intake_id", req.IntakeID.String()).
			Msg("transcription failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "transcription failed")
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GetTranscript(c echo.Context) error {
	intakeID, err := uuid.Parse(c.Param("intakeID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid intake id")
	}

	job, err := h.svc.GetByIntakeID(c.Request().Context(), intakeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no transcript for this intake")
		}
		h.logger.Error().Err(err).Str("intake_id", intakeID.String()).
			Msg("transcript lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load transcript")
	}
	return c.JSON(http.StatusOK, job)
}

func validationMessage(err error) string {
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return msg
}
