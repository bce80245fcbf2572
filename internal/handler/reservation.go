package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/middleware"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

// ReservationHandler serves the booking lifecycle.  Availability views
// live in AvailabilityHandler.
type ReservationHandler struct {
	errorLog
	Reservations *service.ReservationService
}

func NewReservationHandler(r *service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{errorLog: errorLog{Log: log}, Reservations: r}
}

type createReservationReq struct {
	SeatID    string `json:"seatId" validate:"required"`
	Date      string `json:"date" validate:"required,isodate"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
	Remarks   string `json:"remarks" validate:"max=255"`
}

type quickReserveReq struct {
	Date      string `json:"date" validate:"required,isodate"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
	Remarks   string `json:"remarks" validate:"max=255"`
}

// Create: POST /api/reservations.  The user comes from the token.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	// validated above, so parse errors cannot happen here
	date, _ := model.ParseDate(req.Date)
	start, _ := model.ParseClock(req.StartTime)
	end, _ := model.ParseClock(req.EndTime)

	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.Create(ctx, service.CreateReservationInput{
		UserID:    middleware.UserID(c),
		SeatID:    req.SeatID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Remarks:   req.Remarks,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Quick: POST /api/reservations/quick picks a seat for the caller.
func (h *ReservationHandler) Quick(c echo.Context) error {
	var req quickReserveReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	date, _ := model.ParseDate(req.Date)
	start, _ := model.ParseClock(req.StartTime)
	end, _ := model.ParseClock(req.EndTime)

	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.QuickReserve(ctx, service.QuickReserveInput{
		UserID:    middleware.UserID(c),
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Remarks:   req.Remarks,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Get: GET /api/reservations/:id (owner or admin).
func (h *ReservationHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.Get(ctx, c.Param("id"), caller(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// ListByUser serves both /user/:userId and /user/:userId/status/:status.
func (h *ReservationHandler) ListByUser(c echo.Context) error {
	var status model.ReservationStatus
	if raw := c.Param("status"); raw != "" {
		var ok bool
		if status, ok = model.ParseReservationStatus(raw); !ok {
			return h.fail(c, badRequest("unknown status "+raw))
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Reservations.ListByUser(ctx, c.Param("userId"), status, caller(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ListBySeat: GET /api/reservations/seat/:seatId (ADMIN).
func (h *ReservationHandler) ListBySeat(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Reservations.ListBySeat(ctx, c.Param("seatId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ListByRoom: GET /api/reservations/study-room/:studyRoomId (ADMIN).
func (h *ReservationHandler) ListByRoom(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Reservations.ListByRoom(ctx, c.Param("studyRoomId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ListByDate: GET /api/reservations/date/:date (ADMIN).
func (h *ReservationHandler) ListByDate(c echo.Context) error {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		return h.fail(c, badRequest(err.Error()))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Reservations.ListByDate(ctx, date)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Cancel: PUT /api/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.Cancel(ctx, c.Param("id"), caller(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Complete: PUT /api/reservations/:id/complete.
func (h *ReservationHandler) Complete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.Complete(ctx, c.Param("id"), caller(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// CheckIn: POST /api/reservations/:id/check-in.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.CheckIn(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}
