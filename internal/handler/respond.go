// Package handler contains the Echo handlers of the MapIt API. Handlers
// bind the request, check that required fields are present, call a
// service under a request timeout and shape the {success, ...} envelope.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mapit/internal/service"
)

// Handler bundles the services behind the HTTP API.
type Handler struct {
	Accounts Accounts
	Admins   Admins
	Maps     Maps
	Zones    Zones
	Commerce Commerce
	DB       Pinger

	JWTSecret    string
	AccessTTLMin int
	// Timeout bounds the service call of every request.
	Timeout time.Duration
	// ExposeDetail adds the cause of server errors to responses. It is
	// off in production.
	ExposeDetail bool
	Log          *slog.Logger
}

func (h *Handler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	d := h.Timeout
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(c.Request().Context(), d)
}

func ok(c echo.Context, status int, body echo.Map) error {
	body["success"] = true
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": msg})
}

// fail writes the envelope for a service error.
func (h *Handler) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	msg := "internal server error"
	var se *service.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case service.KindValidation:
			status = http.StatusBadRequest
		case service.KindUnauthorized:
			status = http.StatusUnauthorized
		case service.KindNotFound:
			status = http.StatusNotFound
		case service.KindConflict:
			status = http.StatusConflict
		}
		if status != http.StatusInternalServerError {
			msg = se.Message
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status, msg = http.StatusInternalServerError, "request timed out"
	}

	body := echo.Map{"success": false, "error": msg}
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		if h.ExposeDetail {
			body["detail"] = err.Error()
		}
	}
	return c.JSON(status, body)
}

// HTTPError is installed as the Echo error handler so that unknown
// routes, wrong methods, recovered panics and middleware errors use the
// same {success: false, error} envelope as the handlers.
func (h *Handler) HTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		if werr := h.fail(c, err); werr != nil {
			h.Log.Error("write error response", "error", werr)
		}
		return
	}
	msg := http.StatusText(he.Code)
	if m, isStr := he.Message.(string); isStr && m != "" {
		msg = m
	}
	if he.Code >= http.StatusInternalServerError {
		h.Log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}
	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(he.Code)
	} else {
		werr = c.JSON(he.Code, echo.Map{"success": false, "error": msg})
	}
	if werr != nil {
		h.Log.Error("write error response", "error", werr)
	}
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// flexID is an integer id that clients may send as a JSON number or a
// numeric string. Zero means absent.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(n)
	return nil
}

func (f flexID) ptr() *int64 {
	if f <= 0 {
		return nil
	}
	v := int64(f)
	return &v
}

// present drops JSON null so that it reads as an omitted field.
func present(raw json.RawMessage) json.RawMessage {
	if strings.TrimSpace(string(raw)) == "null" {
		return nil
	}
	return raw
}
