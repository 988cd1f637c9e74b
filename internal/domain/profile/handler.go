package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/profiles/:userID/instructions", h.GetInstructions)
	api.POST("/profiles/:userID/merge", h.Merge)
	api.POST("/profiles/:userID/regenerate", h.Regenerate)
	api.POST("/profiles/:userID/clear", h.Clear)
}

func (h *Handler) GetInstructions(c echo.Context) error {
	result, err := h.svc.GetInstructions(c.Request().Context(), c.Param("userID"))
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		}
		h.logger.Error().Err(err).Str("user_id", c.Param("userID")).Msg("instructions lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load instructions")
	}
	return c.JSON(http.StatusOK, result)
}

type mergeRequest struct {
	ProfileData json.RawMessage `json:"profile_data"`
}

func (h *Handler) Merge(c echo.Context) error {
	var req mergeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p, err := h.svc.Merge(c.Request().Context(), c.Param("userID"), req.ProfileData)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, ErrVersionConflict):
			return echo.NewHTTPError(http.StatusConflict, "profile was modified concurrently, retry")
		}
		h.logger.Error().Err(err).Str("user_id", c.Param("userID")).Msg("profile merge failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to merge profile")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Regenerate(c echo.Context) error {
	result, err := h.svc.Regenerate(c.Request().Context(), c.Param("userID"))
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, ErrVersionConflict):
			return echo.NewHTTPError(http.StatusConflict, "profile was modified concurrently, retry")
		}
		h.logger.Error().Err(err).Str("user_id", c.Param("userID")).Msg("summary regeneration failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to regenerate summary")
	}
	return c.JSON(http.StatusOK, result)
}

type clearRequest struct {
	ResetTracker bool `json:"reset_tracker"`
}

func (h *Handler) Clear(c echo.Context) error {
	var req clearRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.Clear(c.Request().Context(), c.Param("userID"), req.ResetTracker)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "No profile found for this user.")
		case errors.Is(err, ErrVersionConflict):
			return echo.NewHTTPError(http.StatusConflict, "profile was modified concurrently, retry")
		}
		h.logger.Error().Err(err).Str("user_id", c.Param("userID")).Msg("profile clear failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear profile")
	}
	return c.JSON(http.StatusOK, result)
}

func validationMessage(err error) string {
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return msg
}
