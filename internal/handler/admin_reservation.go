package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/middleware"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/repository"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

// AdminReservationHandler serves the admin search, soft delete and manual
// check-in.
type AdminReservationHandler struct {
	errorLog
	Reservations *service.AdminReservationService
}

func NewAdminReservationHandler(s *service.AdminReservationService, log *logger.Logger) *AdminReservationHandler {
	return &AdminReservationHandler{errorLog: errorLog{Log: log}, Reservations: s}
}

// Search: GET /api/admin/reservations?userId&seatId&studyRoomId&status&startDate&endDate&page&size.
func (h *AdminReservationHandler) Search(c echo.Context) error {
	f := repository.ReservationFilter{
		UserID:      c.QueryParam("userId"),
		SeatID:      c.QueryParam("seatId"),
		StudyRoomID: c.QueryParam("studyRoomId"),
	}
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := model.ParseReservationStatus(raw)
		if !ok {
			return h.fail(c, badRequest("unknown status "+raw))
		}
		f.Status = st
	}
	for name, dst := range map[string]**model.Date{"startDate": &f.From, "endDate": &f.To} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		d, err := model.ParseDate(raw)
		if err != nil {
			return h.fail(c, badRequest(name+": "+err.Error()))
		}
		*dst = &d
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Reservations.Search(ctx, f, intQuery(c, "page", 1), intQuery(c, "size", service.DefaultPageSize))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Delete: DELETE /api/admin/reservations/:id (soft delete).
func (h *AdminReservationHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Reservations.Delete(ctx, c.Param("id"), middleware.UserID(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "reservation deleted"})
}

// AdjustStatus: PUT /api/admin/reservations/:id/adjust-status.
func (h *AdminReservationHandler) AdjustStatus(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.AdjustCheckIn(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}
