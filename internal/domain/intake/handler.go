package intake

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the patient-facing intake route on api and the code
// validation route on provider (which carries the provider role guard and
// rate limiter).
func (h *Handler) RegisterRoutes(api, provider *echo.Group) {
	api.POST("/intake", h.Submit)
	provider.POST("/validate-intake-code", h.ValidateCode)
}

func (h *Handler) Submit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.Submit(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		}
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("intake submission failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to submit intake")
	}

	return c.JSON(http.StatusCreated, result)
}

type validateCodeRequest struct {
	AccessCode     string `json:"access_code"`
	ProviderUserID string `json:"provider_user_id"`
}

func (h *Handler) ValidateCode(c echo.Context) error {
	var req validateCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.ValidateCode(c.Request().Context(), req.AccessCode, req.ProviderUserID)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		}
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no intake session found for this code")
		}
		h.logger.Error().Err(err).Msg("access code validation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to validate access code")
	}

	return c.JSON(http.StatusOK, result)
}

// validationMessage strips the sentinel prefix so clients see only the
// human-readable part.
func validationMessage(err error) string {
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
