package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

// AvailabilityHandler serves the read-only seat and room views.
type AvailabilityHandler struct {
	errorLog
	Availability *service.AvailabilityService
}

func NewAvailabilityHandler(a *service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{errorLog: errorLog{Log: log}, Availability: a}
}

// window reads ?date&startTime&endTime.  A missing date is today; a
// missing window is the current hour.
func (h *AvailabilityHandler) window(c echo.Context) (model.Date, service.Window, error) {
	date, err := dateParam(c.QueryParam("date"), h.Availability.Today())
	if err != nil {
		return model.Date{}, service.Window{}, err
	}
	start, err := clockParam(c.QueryParam("startTime"))
	if err != nil {
		return model.Date{}, service.Window{}, err
	}
	end, err := clockParam(c.QueryParam("endTime"))
	if err != nil {
		return model.Date{}, service.Window{}, err
	}
	w, err := h.Availability.ResolveWindow(start, end)
	return date, w, err
}

// slot reads a mandatory ?date&startTime&endTime triple.
func slot(c echo.Context) (model.Date, model.Clock, model.Clock, error) {
	if c.QueryParam("date") == "" {
		return model.Date{}, 0, 0, badRequest("date is required")
	}
	date, err := dateParam(c.QueryParam("date"), model.Date{})
	if err != nil {
		return model.Date{}, 0, 0, err
	}
	start, err := requiredClock(c.QueryParam("startTime"), "startTime")
	if err != nil {
		return model.Date{}, 0, 0, err
	}
	end, err := requiredClock(c.QueryParam("endTime"), "endTime")
	if err != nil {
		return model.Date{}, 0, 0, err
	}
	return date, start, end, nil
}

// CheckAvailability: GET /api/reservations/check-availability.
func (h *AvailabilityHandler) CheckAvailability(c echo.Context) error {
	seatID := c.QueryParam("seatId")
	if seatID == "" {
		return h.fail(c, badRequest("seatId is required"))
	}
	date, start, end, err := slot(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Availability.CheckSeat(ctx, seatID, date, start, end)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// AvailableSlots: GET /api/reservations/available-slots.
func (h *AvailabilityHandler) AvailableSlots(c echo.Context) error {
	roomID := c.QueryParam("studyRoomId")
	if roomID == "" {
		return h.fail(c, badRequest("studyRoomId is required"))
	}
	date, err := dateParam(c.QueryParam("date"), h.Availability.Today())
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Availability.AvailableSlots(ctx, roomID, date)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RoomStatus: GET /api/reservations/study-room/:id/status.
func (h *AvailabilityHandler) RoomStatus(c echo.Context) error {
	date, w, err := h.window(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Availability.RoomStatusAt(ctx, c.Param("id"), date, w)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RoomSeatsStatus: GET /api/reservations/study-room/:id/seats-status.
func (h *AvailabilityHandler) RoomSeatsStatus(c echo.Context) error {
	date, w, err := h.window(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Availability.RoomSeatsStatus(ctx, c.Param("id"), date, w)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RoomsStatus: GET /api/reservations/study-rooms/status.
func (h *AvailabilityHandler) RoomsStatus(c echo.Context) error {
	date, w, err := h.window(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Availability.RoomsStatus(ctx, date, w)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RoomDetail: GET /api/reservations/study-rooms/:id/detail.
func (h *AvailabilityHandler) RoomDetail(c echo.Context) error {
	date, w, err := h.window(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Availability.RoomDetailAt(ctx, c.Param("id"), date, w)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SeatStatusForSlot: GET /api/seats/:id/status-for-time-slot.
func (h *AvailabilityHandler) SeatStatusForSlot(c echo.Context) error {
	date, start, end, err := slot(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Availability.SeatStatusForSlot(ctx, c.Param("id"), date, start, end)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SeatRealTime: GET /api/seats/:id/real-time-status.
func (h *AvailabilityHandler) SeatRealTime(c echo.Context) error {
	date, err := dateParam(c.QueryParam("date"), model.Date{})
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Availability.SeatRealTimeStatus(ctx, c.Param("id"), date)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
