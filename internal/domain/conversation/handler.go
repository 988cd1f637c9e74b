package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
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
	api.POST("/conversations", h.Bootstrap)
	api.GET("/conversations/resumable", h.Resumable)
	api.POST("/conversations/:id/messages", h.AppendMessage)
	api.POST("/conversations/:id/end", h.End)
}

type bootstrapRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) Bootstrap(c echo.Context) error {
	var req bootstrapRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.Bootstrap(c.Request().Context(), req.UserID)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		}
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("conversation bootstrap failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start conversation")
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) Resumable(c echo.Context) error {
	userID := c.QueryParam("user_id")

	result, err := h.svc.Resumable(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		}
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no resumable conversation for this user")
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("resumable lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load conversation")
	}
	return c.JSON(http.StatusOK, result)
}

type appendMessageRequest struct {
	Role     string          `json:"role"`
	Content  string          `json:"content"`
	Metadata json.RawMessage `json:"metadata"`
}

func (h *Handler) AppendMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}

	var req appendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	m := &Message{
		ConversationID: id,
		Role:           req.Role,
		Content:        req.Content,
		Metadata:       req.Metadata,
	}
	if err := h.svc.AppendMessage(c.Request().Context(), m); err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		case errors.Is(err, ErrEnded):
			return echo.NewHTTPError(http.StatusConflict, "conversation has ended")
		}
		h.logger.Error().Err(err).Str("conversation_id", id.String()).Msg("append message failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to append message")
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) End(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}

	conv, err := h.svc.End(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		case errors.Is(err, ErrEnded):
			return echo.NewHTTPError(http.StatusConflict, "conversation has already ended")
		}
		h.logger.Error().Err(err).Str("conversation_id", id.String()).Msg("end conversation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to end conversation")
	}
	return c.JSON(http.StatusOK, conv)
}

func validationMessage(err error) string {
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return msg
}
