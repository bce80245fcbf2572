package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

// SeatHandler serves seat administration.
type SeatHandler struct {
	errorLog
	Seats *service.SeatService
}

func NewSeatHandler(s *service.SeatService, log *logger.Logger) *SeatHandler { return &SeatHandler{errorLog: errorLog{Log: log}, Seats: s} }

type createSeatReq struct {
	StudyRoomID string `json:"studyRoomId" validate:"required"`
	SeatNumber  string `json:"seatNumber" validate:"required,max=20"`
	Status      string `json:"status" validate:"omitempty,oneof=AVAILABLE UNAVAILABLE RESERVED"`
}

type batchSeatsReq struct {
	Count  int    `json:"count" validate:"required,gt=0"`
	Prefix string `json:"prefix" validate:"max=10"`
}

type seatStatusReq struct {
	Status string `json:"status" validate:"required,oneof=AVAILABLE UNAVAILABLE RESERVED"`
}

// Get: GET /api/seats/:id.
func (h *SeatHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Seats.Get(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Create: POST /api/seats.
func (h *SeatHandler) Create(c echo.Context) error {
	var req createSeatReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	st, _ := model.ParseSeatStatus(req.Status)
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Seats.Create(ctx, req.StudyRoomID, req.SeatNumber, st)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// CreateBatch: POST /api/seats/batch/:studyRoomId.
func (h *SeatHandler) CreateBatch(c echo.Context) error {
	var req batchSeatsReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	seats, err := h.Seats.CreateBatch(ctx, c.Param("studyRoomId"), req.Count, req.Prefix)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, seats)
}

// SetStatus: PUT /api/seats/:id/status.
func (h *SeatHandler) SetStatus(c echo.Context) error {
	var req seatStatusReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	st, _ := model.ParseSeatStatus(req.Status)
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Seats.SetStatus(ctx, c.Param("id"), st)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Delete: DELETE /api/seats/:id.
func (h *SeatHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Seats.Delete(ctx, c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteByRoom: DELETE /api/seats/study-room/:studyRoomId.
func (h *SeatHandler) DeleteByRoom(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Seats.DeleteByRoom(ctx, c.Param("studyRoomId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}
