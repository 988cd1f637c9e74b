package handoff

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mindwell/mindwell/pkg/pagination"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/handoffs", h.Generate)
	api.GET("/handoffs", h.List)
}

func (h *Handler) Generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.Generate(c.Request().Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, ErrProfileNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "No profile found for this user.")
		case errors.Is(err, ErrTemplateNotFound):
			h.logger.Error().Err(err).Msg("handoff templates missing")
			return echo.NewHTTPError(http.StatusInternalServerError, "handoff templates are not configured")
		case errors.Is(err, ErrPlaceholderMissing):
			h.logger.Error().Err(err).Msg("handoff template rejected")
			return echo.NewHTTPError(http.StatusInternalServerError, "handoff template is misconfigured")
		}
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("handoff generation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate handoff")
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) List(c echo.Context) error {
	userID := c.QueryParam("user_id")
	params := pagination.FromContext(c)

	handoffs, total, err := h.svc.List(c.Request().Context(), userID, params)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("handoff listing failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list handoffs")
	}
	if handoffs == nil {
		handoffs = []*WarmHandoff{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(handoffs, int(total), params.Limit, params.Offset))
}

func validationMessage(err error) string {
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return msg
}
