package community

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
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
	g := api.Group("/community")
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.ListPosts)
	g.GET("/posts/:id", h.GetPost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.POST("/posts/:id/upvote", h.UpvotePost)
	g.POST("/posts/:id/comments", h.CreateComment)
	g.GET("/posts/:id/comments", h.ListComments)
	g.DELETE("/comments/:id", h.DeleteComment)
	g.POST("/reactions", h.ToggleReaction)
	g.POST("/circles/:id/join", h.JoinCircle)
	g.POST("/circles/:id/leave", h.LeaveCircle)
	g.GET("/circles/:id/members", h.ListCircleMembers)
}

func (h *Handler) CreatePost(c echo.Context) error {
	var p Post
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreatePost(c.Request().Context(), &p); err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		}
		h.logger.Error().Err(err).Msg("create post failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create post")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPosts(c echo.Context) error {
	params := pagination.FromContext(c)

	var circleID *uuid.UUID
	if raw := c.QueryParam("circle_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid circle id")
		}
		circleID = &id
	}

	posts, total, err := h.svc.ListPosts(c.Request().Context(), circleID, params)
	if err != nil {
		h.logger.Error().Err(err).Msg("list posts failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list posts")
	}
	if posts == nil {
		posts = []*Post{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(posts, int(total), params.Limit, params.Offset))
}

func (h *Handler) GetPost(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}

	p, err := h.svc.GetPost(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		h.logger.Error().Err(err).Str("post_id", id.String()).Msg("get post failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load post")
	}
	return c.JSON(http.StatusOK, p)
}

type deleteRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) DeletePost(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}
	var req deleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.DeletePost(c.Request().Context(), id, req.UserID); err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		h.logger.Error().Err(err).Str("post_id", id.String()).Msg("delete post failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete post")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpvotePost(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}
	if err := h.svc.UpvotePost(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		h.logger.Error().Err(err).Str("post_id", id.String()).Msg("upvote failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to upvote post")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateComment(c echo.Context) error {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}
	var comment Comment
	if err := c.Bind(&comment); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	comment.PostID = postID

	if err := h.svc.CreateComment(c.Request().Context(), &comment); err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		h.logger.Error().Err(err).Str("post_id", postID.String()).Msg("create comment failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create comment")
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *Handler) ListComments(c echo.Context) error {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}
	comments, err := h.svc.ListComments(c.Request().Context(), postID)
	if err != nil {
		h.logger.Error().Err(err).Str("post_id", postID.String()).Msg("list comments failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list comments")
	}
	return c.JSON(http.StatusOK, comments)
}

func (h *Handler) DeleteComment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid comment id")
	}
	var req deleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.DeleteComment(c.Request().Context(), id, req.UserID); err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "comment not found")
		}
		h.logger.Error().Err(err).Str("comment_id", id.String()).Msg("delete comment failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete comment")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ToggleReaction(c echo.Context) error {
	var req ReactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.ToggleReaction(c.Request().Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "reaction target not found")
		}
		h.logger.Error().Err(err).Msg("reaction toggle failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to toggle reaction")
	}
	return c.JSON(http.StatusOK, result)
}

type membershipRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) JoinCircle(c echo.Context) error {
	circleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid circle id")
	}
	var req membershipRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	m, err := h.svc.JoinCircle(c.Request().Context(), circleID, req.UserID)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		}
		h.logger.Error().Err(err).Str("circle_id", circleID.String()).Msg("join circle failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to join circle")
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) LeaveCircle(c echo.Context) error {
	circleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid circle id")
	}
	var req membershipRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.LeaveCircle(c.Request().Context(), circleID, req.UserID); err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "membership not found")
		}
		h.logger.Error().Err(err).Str("circle_id", circleID.String()).Msg("leave circle failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to leave circle")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListCircleMembers(c echo.Context) error {
	circleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid circle id")
	}
	members, err := h.svc.ListCircleMembers(c.Request().Context(), circleID)
	if err != nil {
		h.logger.Error().Err(err).Str("circle_id", circleID.String()).Msg("list members failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list members")
	}
	return c.JSON(http.StatusOK, members)
}

func validationMessage(err error) string {
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return msg
}
