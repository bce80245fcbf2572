package handler // handler defines http handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/middleware"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

var validate = newValidator()

// newValidator registers the "hhmm" and "isodate" tags next to the
// built-in ones.  Both accept empty strings so they combine with omitempty
// and required.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := model.ParseClock(s)
		return err == nil
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := model.ParseDate(s)
		return err == nil
	})
	// Report json names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind decodes the body (and path/query params) into dst and validates it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &service.ValidationError{Code: service.CodeInvalidRequest, Message: "invalid body"}
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &service.ValidationError{Code: service.CodeInvalidRequest, Message: err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "hhmm":
			msgs = append(msgs, fe.Field()+" must be HH:MM")
		case "isodate":
			msgs = append(msgs, fe.Field()+" must be YYYY-MM-DD")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return &service.ValidationError{Code: service.CodeInvalidRequest, Message: strings.Join(msgs, "; ")}
}

// errorLog is embedded by every handler so unexpected failures reach the
// category log along with the request id.
type errorLog struct {
	Log *logger.Logger
}

func (e errorLog) fail(c echo.Context, err error) error { return writeError(c, e.Log, err) }

// writeError maps service errors onto status codes.  The body is always
// {"error": code, "message": text} plus per-error extras.  Only the 500
// fallthrough is logged; everything else is an expected outcome.
func writeError(c echo.Context, log *logger.Logger, err error) error {
	var (
		ve *service.ValidationError
		ce *service.ConflictError
		be *service.BlacklistedError
		te *service.CheckInTimeError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Code, "message": ve.Message})
	case errors.As(err, &ce):
		body := echo.Map{"error": ce.Code, "message": ce.Message}
		if ce.Conflict != nil {
			body["conflict"] = ce.Conflict
		}
		return c.JSON(http.StatusConflict, body)
	case errors.As(err, &be):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":          "user_blacklisted",
			"message":        be.Error(),
			"remaining_time": be.RemainingMillis(),
		})
	case errors.As(err, &te):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":        te.Code(),
			"message":      te.Error(),
			"window_start": te.WindowStart,
			"window_end":   te.WindowEnd,
		})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "access denied"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials", "message": "invalid username or password"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout", "message": "request timed out"})
	case errors.As(err, &he):
		return c.JSON(he.Code, echo.Map{"error": strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_")), "message": fmt.Sprint(he.Message)})
	}
	log.Error("HANDLER", fmt.Sprintf("%s %s [%s]: %v",
		c.Request().Method, c.Path(), c.Response().Header().Get(middleware.HeaderRequestID), err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal server error"})
}

// reqCtx is the request context with requestTimeout applied.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// caller describes the authenticated principal for ownership checks.
func caller(c echo.Context) service.Caller {
	return service.Caller{ID: middleware.UserID(c), Admin: middleware.Role(c) == model.RoleAdmin}
}

func badRequest(msg string) error {
	return &service.ValidationError{Code: service.CodeInvalidRequest, Message: msg}
}

// dateParam parses a YYYY-MM-DD value; empty yields def.
func dateParam(raw string, def model.Date) (model.Date, error) {
	if raw == "" {
		return def, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, badRequest(err.Error())
	}
	return d, nil
}

// clockParam parses an optional HH:MM value.
func clockParam(raw string) (*model.Clock, error) {
	if raw == "" {
		return nil, nil
	}
	cl, err := model.ParseClock(raw)
	if err != nil {
		return nil, badRequest(err.Error())
	}
	return &cl, nil
}

func requiredClock(raw, name string) (model.Clock, error) {
	if raw == "" {
		return 0, badRequest(name + " is required")
	}
	cl, err := clockParam(raw)
	if err != nil {
		return 0, err
	}
	return *cl, nil
}

func intQuery(c echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return n
	}
	return def
}
