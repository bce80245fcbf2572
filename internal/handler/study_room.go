package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
	"github.com/iliyamo/studyroom-seat-reservation/internal/storage"
)

// StudyRoomHandler serves room browsing and administration.
type StudyRoomHandler struct {
	errorLog
	Rooms *service.StudyRoomService
}

func NewStudyRoomHandler(r *service.StudyRoomService, log *logger.Logger) *StudyRoomHandler {
	return &StudyRoomHandler{errorLog: errorLog{Log: log}, Rooms: r}
}

type createRoomReq struct {
	Name           string `json:"name" validate:"required,max=100"`
	Location       string `json:"location" validate:"max=255"`
	Description    string `json:"description"`
	Capacity       int    `json:"capacity" validate:"required,gt=0,lte=500"`
	OpenTime       string `json:"openTime" validate:"required,hhmm"`
	CloseTime      string `json:"closeTime" validate:"required,hhmm"`
	MaxAdvanceDays int    `json:"maxAdvanceDays" validate:"gte=0,lte=30"`
	ImageURL       string `json:"imageUrl" validate:"omitempty,max=512"`
}

// updateRoomReq mirrors createRoomReq with every field optional.
type updateRoomReq struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=100"`
	Location       *string `json:"location" validate:"omitempty,max=255"`
	Description    *string `json:"description"`
	Capacity       *int    `json:"capacity" validate:"omitempty,gt=0,lte=500"`
	OpenTime       *string `json:"openTime" validate:"omitempty,hhmm"`
	CloseTime      *string `json:"closeTime" validate:"omitempty,hhmm"`
	MaxAdvanceDays *int    `json:"maxAdvanceDays" validate:"omitempty,gte=0,lte=30"`
	Status         *string `json:"status" validate:"omitempty,oneof=AVAILABLE UNAVAILABLE MAINTENANCE"`
}

type roomStatusReq struct {
	Status string `json:"status" validate:"required,oneof=AVAILABLE UNAVAILABLE MAINTENANCE"`
}

// List: GET /api/study-rooms.
func (h *StudyRoomHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rooms, err := h.Rooms.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rooms)
}

// Get: GET /api/study-rooms/:id.
func (h *StudyRoomHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Rooms.Get(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, room)
}

// Seats: GET /api/study-rooms/:id/seats.
func (h *StudyRoomHandler) Seats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	seats, err := h.Rooms.Seats(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, seats)
}

// Create: POST /api/admins/study-rooms.
func (h *StudyRoomHandler) Create(c echo.Context) error {
	var req createRoomReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	open, _ := model.ParseClock(req.OpenTime)
	closeAt, _ := model.ParseClock(req.CloseTime)

	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Rooms.Create(ctx, service.CreateRoomInput{
		Name:           req.Name,
		Location:       req.Location,
		Description:    req.Description,
		Capacity:       req.Capacity,
		OpenTime:       open,
		CloseTime:      closeAt,
		MaxAdvanceDays: req.MaxAdvanceDays,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, room)
}

// Update: PUT /api/admins/study-rooms/:id.
func (h *StudyRoomHandler) Update(c echo.Context) error {
	var req updateRoomReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	in := service.UpdateRoomInput{
		Name:           req.Name,
		Location:       req.Location,
		Description:    req.Description,
		Capacity:       req.Capacity,
		MaxAdvanceDays: req.MaxAdvanceDays,
	}
	if req.OpenTime != nil {
		cl, _ := model.ParseClock(*req.OpenTime)
		in.OpenTime = &cl
	}
	if req.CloseTime != nil {
		cl, _ := model.ParseClock(*req.CloseTime)
		in.CloseTime = &cl
	}
	if req.Status != nil {
		st, _ := model.ParseRoomStatus(*req.Status)
		in.Status = &st
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Rooms.Update(ctx, c.Param("id"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, room)
}

// SetStatus: PUT /api/admins/study-rooms/:id/status.
func (h *StudyRoomHandler) SetStatus(c echo.Context) error {
	var req roomStatusReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	st, _ := model.ParseRoomStatus(req.Status)
	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Rooms.SetStatus(ctx, c.Param("id"), st)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, room)
}

// Delete: DELETE /api/admins/study-rooms/:id.
func (h *StudyRoomHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rooms.Delete(ctx, c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadImage: POST /api/admins/study-rooms/:id/upload-image, multipart
// field "file".
func (h *StudyRoomHandler) UploadImage(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return h.fail(c, badRequest("multipart field \"file\" is required"))
	}
	if fh.Size > storage.MaxUploadBytes {
		return h.fail(c, badRequest("image is too large"))
	}
	f, err := fh.Open()
	if err != nil {
		return h.fail(c, err)
	}
	defer f.Close()

	// Decoding and resizing can take longer than the store timeout.
	room, err := h.Rooms.UploadImage(c.Request().Context(), c.Param("id"), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, room)
}
