package router // package router defines how HTTP routes are registered for the API

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/handler"
	"github.com/iliyamo/studyroom-seat-reservation/internal/middleware"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

// Handlers bundles every HTTP handler the API mounts.
type Handlers struct {
	Health            echo.HandlerFunc
	Auth              *handler.AuthHandler
	Users             *handler.UserHandler
	Reservations      *handler.ReservationHandler
	Availability      *handler.AvailabilityHandler
	Rooms             *handler.StudyRoomHandler
	Seats             *handler.SeatHandler
	AdminReservations *handler.AdminReservationHandler
	Feedback          *handler.FeedbackHandler
}

// Options carries the route-level middleware and static settings.  Nil
// middleware is skipped.
type Options struct {
	JWTSecret     string
	RateLimit     echo.MiddlewareFunc // login, register and booking
	ResponseCache echo.MiddlewareFunc // study-room browse GETs
	UploadDir     string
	UploadPrefix  string // URL path UploadDir is served under, e.g. /uploads
}

func optional(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Register mounts the whole API on e.  Unauthenticated: /healthz, user
// register/login, admin login and the uploads directory.  Everything else
// needs a bearer token; admin routes additionally need role ADMIN.
func Register(e *echo.Echo, h Handlers, o Options) {
	limited := optional(o.RateLimit)
	cached := optional(o.ResponseCache)
	auth := middleware.JWTAuth(o.JWTSecret)
	admin := middleware.RequireRole(model.RoleAdmin)

	if h.Health != nil {
		e.GET("/healthz", h.Health)
	}
	if o.UploadDir != "" && strings.HasPrefix(o.UploadPrefix, "/") {
		e.Static(o.UploadPrefix, o.UploadDir)
	}

	api := e.Group("/api")

	// ---- Users ----
	api.POST("/users/register", h.Auth.RegisterUser, limited...)
	api.POST("/users/login", h.Auth.LoginUser, limited...)
	users := api.Group("/users", auth)
	users.PUT("/change-password", h.Users.ChangePassword)
	users.GET("/blacklist", h.Users.ListBlacklisted, admin)
	users.POST("/blacklist/:userId", h.Users.AddToBlacklist, admin)
	users.DELETE("/blacklist/:userId", h.Users.RemoveFromBlacklist, admin)
	users.GET("/:id", h.Users.Get)
	users.GET("/:id/blacklist-status", h.Users.BlacklistStatus)

	// ---- Admins ----
	api.POST("/admins/login", h.Auth.LoginAdmin, limited...)
	admins := api.Group("/admins", auth, admin)
	admins.POST("/register", h.Auth.RegisterAdmin)
	admins.PUT("/change-password", h.Auth.ChangeAdminPassword)
	admins.GET("/users", h.Users.List)
	admins.PUT("/users/change-password", h.Users.ResetPassword)
	admins.POST("/study-rooms", h.Rooms.Create)
	admins.PUT("/study-rooms/:id", h.Rooms.Update)
	admins.PUT("/study-rooms/:id/status", h.Rooms.SetStatus)
	admins.DELETE("/study-rooms/:id", h.Rooms.Delete)
	admins.POST("/study-rooms/:id/upload-image", h.Rooms.UploadImage)

	// ---- Reservations ----
	res := api.Group("/reservations", auth)
	res.POST("", h.Reservations.Create, limited...)
	res.POST("/quick", h.Reservations.Quick, limited...)
	res.GET("/check-availability", h.Availability.CheckAvailability)
	res.GET("/available-slots", h.Availability.AvailableSlots)
	res.GET("/study-rooms/status", h.Availability.RoomsStatus)
	res.GET("/study-rooms/:id/detail", h.Availability.RoomDetail)
	res.GET("/study-room/:id/status", h.Availability.RoomStatus)
	res.GET("/study-room/:id/seats-status", h.Availability.RoomSeatsStatus)
	res.GET("/user/:userId", h.Reservations.ListByUser)
	res.GET("/user/:userId/status/:status", h.Reservations.ListByUser)
	res.GET("/seat/:seatId", h.Reservations.ListBySeat, admin)
	res.GET("/study-room/:studyRoomId", h.Reservations.ListByRoom, admin)
	res.GET("/date/:date", h.Reservations.ListByDate, admin)
	res.GET("/:id", h.Reservations.Get)
	res.PUT("/:id/cancel", h.Reservations.Cancel)
	res.PUT("/:id/complete", h.Reservations.Complete)
	res.POST("/:id/check-in", h.Reservations.CheckIn)

	// ---- Study rooms (browse) ----
	rooms := api.Group("/study-rooms", auth)
	rooms.GET("", h.Rooms.List, cached...)
	rooms.GET("/:id", h.Rooms.Get, cached...)
	rooms.GET("/:id/seats", h.Rooms.Seats)

	// ---- Seats ----
	seats := api.Group("/seats", auth)
	seats.GET("/:id", h.Seats.Get)
	seats.GET("/:id/status-for-time-slot", h.Availability.SeatStatusForSlot)
	seats.GET("/:id/real-time-status", h.Availability.SeatRealTime)
	seats.POST("", h.Seats.Create, admin)
	seats.POST("/batch/:studyRoomId", h.Seats.CreateBatch, admin)
	seats.PUT("/:id/status", h.Seats.SetStatus, admin)
	seats.DELETE("/:id", h.Seats.Delete, admin)
	seats.DELETE("/study-room/:studyRoomId", h.Seats.DeleteByRoom, admin)

	// ---- Admin reservation management and feedback ----
	adm := api.Group("/admin", auth, admin)
	adm.GET("/reservations", h.AdminReservations.Search)
	adm.DELETE("/reservations/:id", h.AdminReservations.Delete)
	adm.PUT("/reservations/:id/adjust-status", h.AdminReservations.AdjustStatus)
	adm.GET("/feedback", h.Feedback.List)
	adm.PUT("/feedback/:id", h.Feedback.Respond)

	// ---- Feedback ----
	fb := api.Group("/feedback", auth)
	fb.POST("", h.Feedback.Submit)
	fb.GET("", h.Feedback.Mine)
	fb.GET("/:id", h.Feedback.Get)
}
