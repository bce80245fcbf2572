package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/middleware"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

type FeedbackHandler struct {
	errorLog
	Feedback *service.FeedbackService
}

func NewFeedbackHandler(f *service.FeedbackService, log *logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{errorLog: errorLog{Log: log}, Feedback: f}
}

type submitFeedbackReq struct {
	Content string `json:"content" validate:"required,max=2000"`
	Type    string `json:"type" validate:"max=32"`
}

type respondFeedbackReq struct {
	Response string `json:"response" validate:"required,max=2000"`
}

func feedbackID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, badRequest("invalid feedback id")
	}
	return id, nil
}

// Submit: POST /api/feedback.
func (h *FeedbackHandler) Submit(c echo.Context) error {
	var req submitFeedbackReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Feedback.Submit(ctx, middleware.UserID(c), req.Content, req.Type)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

// Mine: GET /api/feedback.
func (h *FeedbackHandler) Mine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Feedback.Mine(ctx, middleware.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get: GET /api/feedback/:id (owner or admin).
func (h *FeedbackHandler) Get(c echo.Context) error {
	id, err := feedbackID(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Feedback.Get(ctx, id, caller(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

// List: GET /api/admin/feedback?status.
func (h *FeedbackHandler) List(c echo.Context) error {
	status := model.FeedbackStatus(strings.ToUpper(c.QueryParam("status")))
	switch status {
	case "", model.FeedbackPending, model.FeedbackProcessed:
	default:
		return h.fail(c, badRequest("unknown status "+string(status)))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Feedback.List(ctx, status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Respond: PUT /api/admin/feedback/:id.
func (h *FeedbackHandler) Respond(c echo.Context) error {
	id, err := feedbackID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req respondFeedbackReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Feedback.Respond(ctx, id, middleware.UserID(c), req.Response)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, f)
}
