package dispatch

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cjdenio/webbridge/pkg/models"
)

// HandlerError lets a route handler pick the status of the error response
// that replaces its result. Plain errors become 500s.
type HandlerError struct {
	Status int
	Err    error
}

func (e *HandlerError) Error() string { return e.Err.Error() }
func (e *HandlerError) Unwrap() error { return e.Err }

// Errorf builds a HandlerError with the given status.
func Errorf(status int, format string, args ...any) error {
	return &HandlerError{Status: status, Err: fmt.Errorf(format, args...)}
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WantsJSON reports whether an error for req should be rendered as JSON:
// the Accept header mentions application/json, or X-Requested-With is
// fetch or XMLHttpRequest.
func WantsJSON(req *models.Request) bool {
	if req.Accepts(models.ContentTypeJSON) {
		return true
	}
	xrw := strings.TrimSpace(req.Header("X-Requested-With"))
	return strings.EqualFold(xrw, "fetch") || strings.EqualFold(xrw, "XMLHttpRequest")
}

// ErrorResponse renders msg for req, as {"success":false,"error":msg} when
// the caller negotiated JSON and as plain text otherwise.
func ErrorResponse(req *models.Request, status int, msg string) models.Response {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if WantsJSON(req) {
		res, err := models.NewJSON(errorBody{Success: false, Error: msg}, models.WithStatus(status))
		if err == nil {
			return res
		}
	}
	return models.NewText(msg, models.WithStatus(status), models.WithContentType(models.ContentTypeText))
}
